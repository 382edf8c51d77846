// Package dataset loads the labeled behavioral dataset and turns it into a
// fully numeric feature table.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultIDColumn is the unique row identifier column.
const DefaultIDColumn = "id"

// Options controls how a dataset file is read.
type Options struct {
	IDColumn string
	Schema   Schema
}

// DefaultOptions reads the id column and the default feature schema.
func DefaultOptions() Options {
	return Options{IDColumn: DefaultIDColumn, Schema: DefaultSchema()}
}

// Table is a prepared dataset: every cell numeric, nothing missing.
// Features rows are laid out in Schema order.
type Table struct {
	Schema   Schema
	IDs      []string
	Features [][]float64
	Labels   []int
	// SHA256 is the hex digest of the file Load read. Parse leaves it empty.
	SHA256 string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Labels)
}

// column returns a copy of the named feature column.
func (t *Table) column(name string) []float64 {
	col := t.Schema.Index(name)
	if col < 0 {
		return nil
	}
	out := make([]float64, len(t.Features))
	for i, row := range t.Features {
		out[i] = row[col]
	}
	return out
}

// ClassCounts returns the number of Extrovert and Introvert rows.
func (t *Table) ClassCounts() [2]int {
	var counts [2]int
	for _, y := range t.Labels {
		counts[y]++
	}
	return counts
}

// Load reads and prepares the dataset at path. Categorical features have
// missing values replaced by the column mode and are encoded to 0/1; numeric
// features are mean-imputed. The fitted imputer is returned for reuse.
// The file is hashed as it is read.
func Load(path string, opts Options) (*Table, *Imputer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	tee := io.TeeReader(f, h)
	t, im, err := Parse(tee, path, opts)
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, nil, &DataLoadError{Path: path, Err: err}
	}
	t.SHA256 = hex.EncodeToString(h.Sum(nil))
	return t, im, nil
}

// Parse prepares a dataset read from r. name identifies the source in errors.
func Parse(r io.Reader, name string, opts Options) (*Table, *Imputer, error) {
	t, im, err := parse(r, opts)
	if err != nil {
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			return nil, nil, encErr
		}
		return nil, nil, &DataLoadError{Path: name, Err: err}
	}
	return t, im, nil
}

func parse(r io.Reader, opts Options) (*Table, *Imputer, error) {
	if opts.IDColumn == "" {
		opts.IDColumn = DefaultIDColumn
	}
	if len(opts.Schema.Fields) == 0 {
		opts.Schema = DefaultSchema()
	}
	schema := opts.Schema
	if err := schema.Validate(); err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("file is empty")
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[h] = i
	}

	required := append([]string{opts.IDColumn}, schema.Names()...)
	required = append(required, LabelColumn)
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading rows: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no data rows")
	}

	cell := func(rec []string, column string) string {
		return strings.TrimSpace(rec[columns[column]])
	}
	line := func(i int) int { return i + 2 } // header is line 1

	t := &Table{
		Schema:   schema,
		IDs:      make([]string, len(records)),
		Features: make([][]float64, len(records)),
		Labels:   make([]int, len(records)),
	}

	seen := make(map[string]int, len(records))
	for i, rec := range records {
		id := cell(rec, opts.IDColumn)
		if isMissing(id) {
			return nil, nil, fmt.Errorf("line %d: missing %s", line(i), opts.IDColumn)
		}
		if prev, ok := seen[id]; ok {
			return nil, nil, fmt.Errorf("line %d: duplicate %s %q (first seen on line %d)", line(i), opts.IDColumn, id, line(prev))
		}
		seen[id] = i
		t.IDs[i] = id
		t.Features[i] = make([]float64, schema.Len())
	}

	for col, f := range schema.Fields {
		switch f.Kind {
		case Categorical:
			values := make([]string, len(records))
			for i, rec := range records {
				values[i] = cell(rec, f.Name)
			}
			fill, ok := mode(values)
			if !ok {
				return nil, nil, fmt.Errorf("column %s has no values to take a mode from", f.Name)
			}
			for i, v := range values {
				if isMissing(v) {
					v = fill
				}
				code, err := EncodeYesNo(f.Name, v)
				if err != nil {
					return nil, nil, &EncodingError{Column: f.Name, Row: line(i), Value: v}
				}
				t.Features[i][col] = code
			}
		default:
			for i, rec := range records {
				v := cell(rec, f.Name)
				if isMissing(v) {
					t.Features[i][col] = math.NaN()
					continue
				}
				x, err := strconv.ParseFloat(v, 64)
				if err != nil || math.IsInf(x, 0) || math.IsNaN(x) {
					return nil, nil, fmt.Errorf("line %d: %s is not a number: %q", line(i), f.Name, v)
				}
				t.Features[i][col] = x
			}
		}
	}

	for i, rec := range records {
		v := cell(rec, LabelColumn)
		if isMissing(v) {
			return nil, nil, fmt.Errorf("line %d: missing %s", line(i), LabelColumn)
		}
		y, err := EncodePersonality(v)
		if err != nil {
			return nil, nil, &EncodingError{Column: LabelColumn, Row: line(i), Value: v}
		}
		t.Labels[i] = y
	}

	im, err := FitMeanImputer(schema, t.Features)
	if err != nil {
		return nil, nil, err
	}
	for i, row := range t.Features {
		t.Features[i] = im.Transform(row)
	}

	return t, im, nil
}

// mode returns the most frequent non-missing value. Ties go to the
// lexicographically smallest value.
func mode(values []string) (string, bool) {
	counts := make(map[string]int)
	for _, v := range values {
		if !isMissing(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}

func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}
