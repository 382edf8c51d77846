package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
)

func TestParseValuesRoundTrip(t *testing.T) {
	schema := dataset.DefaultSchema()
	want := referenceQuery()
	want.TimeSpentAlone = 2.5
	want.StageFear = dataset.Yes

	got, err := ParseValues(schema, want.Values())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseValuesReportsBadNumbers(t *testing.T) {
	schema := dataset.DefaultSchema()
	values := referenceQuery().Values()
	values[dataset.GoingOutside] = "often"
	values[dataset.PostFrequency] = "  "

	_, err := ParseValues(schema, values)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		dataset.GoingOutside:  "must be a number",
		dataset.PostFrequency: "is required",
	}, verr.ByField())
}

func TestParseValuesLeavesCategoriesToValidate(t *testing.T) {
	schema := dataset.DefaultSchema()
	values := referenceQuery().Values()
	values[dataset.StageFear] = "Maybe"

	obs, err := ParseValues(schema, values)
	require.NoError(t, err)
	assert.Equal(t, "Maybe", obs.StageFear)
	assert.Error(t, Validate(obs))
}
