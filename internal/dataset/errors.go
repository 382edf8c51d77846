package dataset

import "fmt"

// DataLoadError reports a dataset that could not be read or does not match
// the expected layout. No model can be trained from it.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("loading dataset: %v", e.Err)
	}
	return fmt.Sprintf("loading dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// EncodingError reports a categorical value outside the known vocabulary.
// Row is the 1-based line in the source file, or 0 for a single query.
type EncodingError struct {
	Column string
	Row    int
	Value  string
}

func (e *EncodingError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("encoding %s at line %d: unexpected value %q", e.Column, e.Row, e.Value)
	}
	return fmt.Sprintf("encoding %s: unexpected value %q", e.Column, e.Value)
}
