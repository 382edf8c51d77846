package dataset

import "fmt"

// Categorical vocabulary.
const (
	Yes = "Yes"
	No  = "No"

	Extrovert = "Extrovert"
	Introvert = "Introvert"
)

// Label codes.
const (
	LabelExtrovert = 0
	LabelIntrovert = 1
)

// EncodeYesNo maps "Yes" to 1 and "No" to 0.
func EncodeYesNo(column, value string) (float64, error) {
	switch value {
	case Yes:
		return 1, nil
	case No:
		return 0, nil
	}
	return 0, &EncodingError{Column: column, Value: value}
}

// DecodeYesNo is the inverse of EncodeYesNo.
func DecodeYesNo(code float64) (string, error) {
	switch code {
	case 1:
		return Yes, nil
	case 0:
		return No, nil
	}
	return "", fmt.Errorf("no Yes/No value for code %v", code)
}

// EncodePersonality maps "Extrovert" to 0 and "Introvert" to 1.
func EncodePersonality(value string) (int, error) {
	switch value {
	case Extrovert:
		return LabelExtrovert, nil
	case Introvert:
		return LabelIntrovert, nil
	}
	return 0, &EncodingError{Column: LabelColumn, Value: value}
}

// DecodePersonality is the inverse of EncodePersonality.
func DecodePersonality(label int) (string, error) {
	switch label {
	case LabelExtrovert:
		return Extrovert, nil
	case LabelIntrovert:
		return Introvert, nil
	}
	return "", fmt.Errorf("no personality for label %d", label)
}
