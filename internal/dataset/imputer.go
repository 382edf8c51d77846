package dataset

import (
	"fmt"
	"math"
)

// Imputer fills missing numeric features with the column means it was
// fitted on. Missing values are represented as NaN.
type Imputer struct {
	Columns []string
	Means   []float64
	index   []int // column of each entry in the feature vector
}

// FitMeanImputer computes the mean of every numeric schema field over the
// non-missing values in rows.
func FitMeanImputer(schema Schema, rows [][]float64) (*Imputer, error) {
	im := &Imputer{}
	for col, f := range schema.Fields {
		if f.Kind != Numeric {
			continue
		}
		var sum float64
		var n int
		for _, row := range rows {
			if v := row[col]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("column %s has no values to impute from", f.Name)
		}
		im.Columns = append(im.Columns, f.Name)
		im.Means = append(im.Means, sum/float64(n))
		im.index = append(im.index, col)
	}
	return im, nil
}

// Transform returns a copy of row with missing numeric features replaced
// by the fitted means.
func (im *Imputer) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	for i, col := range im.index {
		if col < len(out) && math.IsNaN(out[col]) {
			out[col] = im.Means[i]
		}
	}
	return out
}

// Mean returns the fitted mean for a column.
func (im *Imputer) Mean(column string) (float64, bool) {
	if im == nil {
		return 0, false
	}
	for i, c := range im.Columns {
		if c == column {
			return im.Means[i], true
		}
	}
	return 0, false
}
