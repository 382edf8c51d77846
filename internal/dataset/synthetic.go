package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

// missingRate is the chance that a synthetic feature cell is left empty.
const missingRate = 0.03

type featureRange struct {
	lo, hi float64
}

// profile describes how one personality class answers each question.
type profile struct {
	label    string
	alone    featureRange
	fearYes  float64
	events   featureRange
	outside  featureRange
	drainYes float64
	friends  featureRange
	posts    featureRange
}

var (
	extrovertProfile = profile{
		label:    Extrovert,
		alone:    featureRange{0, 4},
		fearYes:  0.15,
		events:   featureRange{4, 10},
		outside:  featureRange{3, 7},
		drainYes: 0.1,
		friends:  featureRange{6, 15},
		posts:    featureRange{3, 10},
	}
	introvertProfile = profile{
		label:    Introvert,
		alone:    featureRange{4, 11},
		fearYes:  0.85,
		events:   featureRange{0, 4},
		outside:  featureRange{0, 3},
		drainYes: 0.9,
		friends:  featureRange{0, 6},
		posts:    featureRange{0, 3},
	}
)

// WriteSynthetic writes a balanced labeled dataset of the given size. Rows
// alternate Extrovert and Introvert, and the same seed always produces the
// same bytes.
func WriteSynthetic(w io.Writer, rows int, seed int64) error {
	if rows <= 0 {
		return fmt.Errorf("rows must be positive, got %d", rows)
	}
	rng := rand.New(rand.NewSource(seed))
	schema := DefaultSchema()

	cw := csv.NewWriter(w)
	header := append([]string{DefaultIDColumn}, schema.Names()...)
	header = append(header, LabelColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := 0; i < rows; i++ {
		p := extrovertProfile
		if i%2 == 1 {
			p = introvertProfile
		}
		record := []string{
			strconv.Itoa(i),
			numericCell(rng, p.alone, 0.5),
			yesNoCell(rng, p.fearYes),
			numericCell(rng, p.events, 1),
			numericCell(rng, p.outside, 1),
			yesNoCell(rng, p.drainYes),
			numericCell(rng, p.friends, 1),
			numericCell(rng, p.posts, 1),
			p.label,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// numericCell draws a value in r rounded to step, or an empty cell.
func numericCell(rng *rand.Rand, r featureRange, step float64) string {
	missing := rng.Float64() < missingRate
	v := r.lo + rng.Float64()*(r.hi-r.lo)
	if missing {
		return ""
	}
	v = float64(int(v/step+0.5)) * step
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func yesNoCell(rng *rand.Rand, pYes float64) string {
	missing := rng.Float64() < missingRate
	yes := rng.Float64() < pYes
	switch {
	case missing:
		return ""
	case yes:
		return Yes
	default:
		return No
	}
}
