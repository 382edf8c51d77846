package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "id,Time_spent_Alone,Stage_fear,Social_event_attendance,Going_outside,Drained_after_socializing,Friends_circle_size,Post_frequency,Personality\n"

const smallCSV = header +
	"0,4.0,No,4.0,6.0,No,13.0,5.0,Extrovert\n" +
	"1,9.0,Yes,0.0,0.0,Yes,0.0,3.0,Introvert\n" +
	"2,9.0,Yes,1.0,2.0,Yes,5.0,2.0,Introvert\n" +
	"3,0.0,No,6.0,7.0,No,14.0,8.0,Extrovert\n" +
	"4,,,9.0,4.0,No,8.0,5.0,Extrovert\n" +
	"5,3.0,No,,5.0,,10.0,,Extrovert\n"

func parseString(t *testing.T, data string) (*Table, *Imputer, error) {
	t.Helper()
	return Parse(strings.NewReader(data), "test.csv", DefaultOptions())
}

func TestParsePreparesTable(t *testing.T) {
	table, im, err := parseString(t, smallCSV)
	require.NoError(t, err)
	require.Equal(t, 6, table.Len())

	want := [][]float64{
		{4, 0, 4, 6, 0, 13, 5},
		{9, 1, 0, 0, 1, 0, 3},
		{9, 1, 1, 2, 1, 5, 2},
		{0, 0, 6, 7, 0, 14, 8},
		{5, 0, 9, 4, 0, 8, 5},
		{3, 0, 4, 5, 0, 10, 4.6},
	}
	if diff := cmp.Diff(want, table.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 1, 1, 0, 0, 0}, table.Labels)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, table.IDs)

	mean, ok := im.Mean(PostFrequency)
	require.True(t, ok)
	assert.Equal(t, 4.6, mean)
	assert.Equal(t, []string{TimeSpentAlone, SocialEventAttendance, GoingOutside, FriendsCircleSize, PostFrequency}, im.Columns)
}

func TestPreparedTableHasNoMissingValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSynthetic(&buf, 100, 7))
	require.Contains(t, buf.String(), ",,", "synthetic data should contain missing cells")

	table, _, err := parseString(t, buf.String())
	require.NoError(t, err)
	require.Equal(t, 100, table.Len())

	for i, row := range table.Features {
		require.Len(t, row, table.Schema.Len())
		for j, v := range row {
			assert.False(t, math.IsNaN(v), "row %d col %d is NaN", i, j)
		}
	}
	for col, f := range table.Schema.Fields {
		if !f.IsCategorical() {
			continue
		}
		for i, row := range table.Features {
			assert.Contains(t, []float64{0, 1}, row[col], "row %d %s", i, f.Name)
		}
	}
	assert.Equal(t, [2]int{50, 50}, table.ClassCounts())
}

func TestModeFillPicksMoreFrequentValue(t *testing.T) {
	data := header +
		"a,1,Yes,1,1,No,1,1,Extrovert\n" +
		"b,1,Yes,1,1,No,1,1,Introvert\n" +
		"c,1,No,1,1,Yes,1,1,Extrovert\n" +
		"d,1,,1,1,,1,1,Introvert\n"

	table, _, err := parseString(t, data)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 0, 1}, table.column(StageFear))
	assert.Equal(t, []float64{0, 0, 1, 0}, table.column(DrainedAfterSocializing))
}

func TestModeTieBreak(t *testing.T) {
	got, ok := mode([]string{"Yes", "No", "", "Yes", "No"})
	require.True(t, ok)
	assert.Equal(t, No, got)

	_, ok = mode([]string{"", "NA"})
	assert.False(t, ok)
}

func TestParseUnknownCategoryIsEncodingError(t *testing.T) {
	data := header + "0,1,Maybe,1,1,No,1,1,Extrovert\n"
	_, _, err := parseString(t, data)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, StageFear, encErr.Column)
	assert.Equal(t, 2, encErr.Row)
	assert.Equal(t, "Maybe", encErr.Value)
}

func TestParseUnknownLabelIsEncodingError(t *testing.T) {
	data := header + "0,1,No,1,1,No,1,1,Ambivert\n"
	_, _, err := parseString(t, data)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, LabelColumn, encErr.Column)
}

func TestParseDataLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty file", "", "file is empty"},
		{"header only", header, "no data rows"},
		{"missing column", "id,Time_spent_Alone,Personality\n0,1,Extrovert\n", "missing required column"},
		{"duplicate id", header + "0,1,No,1,1,No,1,1,Extrovert\n0,2,No,1,1,No,1,1,Introvert\n", "duplicate id"},
		{"bad number", header + "0,lots,No,1,1,No,1,1,Extrovert\n", "not a number"},
		{"missing label", header + "0,1,No,1,1,No,1,1,\n", "missing Personality"},
		{"empty numeric column", header + "0,,No,1,1,No,1,1,Extrovert\n", "no values to impute"},
		{"empty categorical column", header + "0,1,,1,1,No,1,1,Extrovert\n", "no values to take a mode"},
		{"ragged row", header + "0,1,No\n", "reading rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseString(t, tt.data)
			var loadErr *DataLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, "test.csv", loadErr.Path)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")
	_, _, err := Load(path, DefaultOptions())

	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(smallCSV), 0o644))

	table, im, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())
	assert.NotNil(t, im)

	sum := sha256.Sum256([]byte(smallCSV))
	assert.Equal(t, hex.EncodeToString(sum[:]), table.SHA256)
}

func TestParseCustomIDColumnAndExtraColumns(t *testing.T) {
	data := "row,notes,Time_spent_Alone,Stage_fear,Social_event_attendance,Going_outside,Drained_after_socializing,Friends_circle_size,Post_frequency,Personality\n" +
		"r1,hello,1,No,1,1,No,1,1,Extrovert\n"
	opts := DefaultOptions()
	opts.IDColumn = "row"

	table, _, err := Parse(strings.NewReader(data), "custom.csv", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, table.IDs)
}

func TestWriteSyntheticIsDeterministic(t *testing.T) {
	var a, b, c bytes.Buffer
	require.NoError(t, WriteSynthetic(&a, 40, 42))
	require.NoError(t, WriteSynthetic(&b, 40, 42))
	require.NoError(t, WriteSynthetic(&c, 40, 43))

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	assert.Error(t, WriteSynthetic(&a, 0, 42))
}
