package dataset

import (
	"fmt"
	"strings"
)

// Column names of the behavioral dataset.
const (
	TimeSpentAlone          = "Time_spent_Alone"
	StageFear               = "Stage_fear"
	SocialEventAttendance   = "Social_event_attendance"
	GoingOutside            = "Going_outside"
	DrainedAfterSocializing = "Drained_after_socializing"
	FriendsCircleSize       = "Friends_circle_size"
	PostFrequency           = "Post_frequency"

	LabelColumn = "Personality"
)

// SchemaVersion identifies the feature layout produced by DefaultSchema.
const SchemaVersion = "v1"

// Kind is the type of a feature column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Field describes one feature column and the bounds a user may enter for it.
type Field struct {
	Name    string
	Kind    Kind
	Prompt  string
	Group   string
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// IsCategorical reports whether the field holds a Yes/No value.
func (f Field) IsCategorical() bool {
	return f.Kind == Categorical
}

// Schema is the ordered feature list shared by training and prediction.
// The position of a field in Fields is its column in every feature vector.
type Schema struct {
	Version string
	Fields  []Field
}

// DefaultSchema returns the seven-feature layout the model is trained on.
func DefaultSchema() Schema {
	return Schema{
		Version: SchemaVersion,
		Fields: []Field{
			{Name: TimeSpentAlone, Kind: Numeric, Prompt: "Hours spent alone per day", Group: "Time & Social Behavior", Min: 0, Max: 12, Step: 0.5, Default: 3},
			{Name: StageFear, Kind: Categorical, Prompt: "Do you experience stage fear?", Group: "Psychological Traits", Max: 1, Step: 1},
			{Name: SocialEventAttendance, Kind: Numeric, Prompt: "Social events attended per month", Group: "Time & Social Behavior", Min: 0, Max: 10, Step: 1, Default: 5},
			{Name: GoingOutside, Kind: Numeric, Prompt: "Times going outside per week", Group: "Time & Social Behavior", Min: 0, Max: 7, Step: 1, Default: 4},
			{Name: DrainedAfterSocializing, Kind: Categorical, Prompt: "Do you feel drained after socializing?", Group: "Psychological Traits", Max: 1, Step: 1},
			{Name: FriendsCircleSize, Kind: Numeric, Prompt: "Number of close friends", Group: "Time & Social Behavior", Min: 0, Max: 20, Step: 1, Default: 8},
			{Name: PostFrequency, Kind: Numeric, Prompt: "Social media posts per week", Group: "Time & Social Behavior", Min: 0, Max: 15, Step: 1, Default: 5},
		},
	}
}

// Len returns the number of features.
func (s Schema) Len() int {
	return len(s.Fields)
}

// Names returns the feature names in column order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the column of the named feature, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named feature.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Validate checks the schema is usable: a version, at least one field,
// and no duplicate or blank names.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Version) == "" {
		return fmt.Errorf("schema has no version")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s has no fields", s.Version)
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema %s: field %d has no name", s.Version, i)
		}
		if f.Name == LabelColumn {
			return fmt.Errorf("schema %s: label column %q cannot be a feature", s.Version, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Version, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Matches reports whether a model trained with the given version and
// feature names can consume vectors built by this schema.
func (s Schema) Matches(version string, names []string) bool {
	if version != s.Version || len(names) != len(s.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if names[i] != f.Name {
			return false
		}
	}
	return true
}

// Vector lays out named values in schema order. Every field must be
// present and no unknown names are accepted.
func (s Schema) Vector(values map[string]float64) ([]float64, error) {
	if len(values) != len(s.Fields) {
		for name := range values {
			if s.Index(name) < 0 {
				return nil, fmt.Errorf("unknown feature %q", name)
			}
		}
	}
	vec := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", f.Name)
		}
		vec[i] = v
	}
	return vec, nil
}
