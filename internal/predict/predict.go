// Package predict turns one user's answers into a personality prediction
// using a trained model. It has no UI or I/O dependencies.
package predict

import (
	"fmt"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/model"
)

// Observation holds one user's raw answers. Categorical answers are the
// literal strings "Yes" or "No".
type Observation struct {
	TimeSpentAlone          float64 `json:"Time_spent_Alone" validate:"gte=0,lte=12"`
	StageFear               string  `json:"Stage_fear" validate:"required,oneof=Yes No"`
	SocialEventAttendance   float64 `json:"Social_event_attendance" validate:"gte=0,lte=10"`
	GoingOutside            float64 `json:"Going_outside" validate:"gte=0,lte=7"`
	DrainedAfterSocializing string  `json:"Drained_after_socializing" validate:"required,oneof=Yes No"`
	FriendsCircleSize       float64 `json:"Friends_circle_size" validate:"gte=0,lte=20"`
	PostFrequency           float64 `json:"Post_frequency" validate:"gte=0,lte=15"`
}

// DefaultObservation returns the answers the form starts with.
func DefaultObservation(schema dataset.Schema) Observation {
	def := func(name string) float64 {
		f, _ := schema.Field(name)
		return f.Default
	}
	return Observation{
		TimeSpentAlone:          def(dataset.TimeSpentAlone),
		StageFear:               dataset.No,
		SocialEventAttendance:   def(dataset.SocialEventAttendance),
		GoingOutside:            def(dataset.GoingOutside),
		DrainedAfterSocializing: dataset.No,
		FriendsCircleSize:       def(dataset.FriendsCircleSize),
		PostFrequency:           def(dataset.PostFrequency),
	}
}

// Features encodes the observation into named numeric features.
func (o Observation) Features() (map[string]float64, error) {
	fear, err := dataset.EncodeYesNo(dataset.StageFear, o.StageFear)
	if err != nil {
		return nil, err
	}
	drained, err := dataset.EncodeYesNo(dataset.DrainedAfterSocializing, o.DrainedAfterSocializing)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		dataset.TimeSpentAlone:          o.TimeSpentAlone,
		dataset.StageFear:               fear,
		dataset.SocialEventAttendance:   o.SocialEventAttendance,
		dataset.GoingOutside:            o.GoingOutside,
		dataset.DrainedAfterSocializing: drained,
		dataset.FriendsCircleSize:       o.FriendsCircleSize,
		dataset.PostFrequency:           o.PostFrequency,
	}, nil
}

// Prediction is a label with its class probabilities
// [P(Extrovert), P(Introvert)].
type Prediction struct {
	Label         int        `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
}

// Personality returns "Extrovert" or "Introvert".
func (p Prediction) Personality() string {
	name, err := dataset.DecodePersonality(p.Label)
	if err != nil {
		return "Unknown"
	}
	return name
}

// Confidence is the larger of the two class probabilities.
func (p Prediction) Confidence() float64 {
	if p.Probabilities[1] > p.Probabilities[0] {
		return p.Probabilities[1]
	}
	return p.Probabilities[0]
}

// Context is everything a prediction needs, built once after training.
// It is never modified afterwards, so one Context can serve concurrent
// requests.
type Context struct {
	schema       dataset.Schema
	model        *model.Model
	imputer      *dataset.Imputer
	accuracy     float64
	trainingRows int
}

// NewContext bundles a trained model with the schema it was trained on.
// It fails if the model's feature layout does not match the schema.
func NewContext(schema dataset.Schema, m *model.Model, im *dataset.Imputer, accuracy float64, trainingRows int) (*Context, error) {
	if m == nil {
		return nil, fmt.Errorf("no model")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if !schema.Matches(m.SchemaVersion, m.Features) {
		return nil, fmt.Errorf("model features %v (schema %s) do not match schema %s %v",
			m.Features, m.SchemaVersion, schema.Version, schema.Names())
	}
	return &Context{
		schema:       schema,
		model:        m,
		imputer:      im,
		accuracy:     accuracy,
		trainingRows: trainingRows,
	}, nil
}

// Schema returns the feature schema.
func (c *Context) Schema() dataset.Schema { return c.schema }

// Accuracy returns the held-out accuracy of the model.
func (c *Context) Accuracy() float64 { return c.accuracy }

// TrainingRows returns the number of rows in the prepared dataset.
func (c *Context) TrainingRows() int { return c.trainingRows }

// Algorithm returns the classifier's display name.
func (c *Context) Algorithm() string { return model.Algorithm }

// Imputer returns the numeric imputer fitted on the dataset.
func (c *Context) Imputer() *dataset.Imputer { return c.imputer }

// Coefficients returns a copy of the feature weights keyed by feature name.
func (c *Context) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(c.model.Coef))
	for i, name := range c.model.Features {
		out[name] = c.model.Coef[i]
	}
	return out
}

// Intercept returns the model intercept.
func (c *Context) Intercept() float64 { return c.model.Intercept }

// Predict encodes obs, lays it out in schema order and classifies it.
func Predict(c *Context, obs Observation) (Prediction, error) {
	features, err := obs.Features()
	if err != nil {
		return Prediction{}, err
	}
	vec, err := c.schema.Vector(features)
	if err != nil {
		return Prediction{}, err
	}
	probs, err := c.model.PredictProba(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("predicting: %w", err)
	}
	label, err := c.model.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("predicting: %w", err)
	}
	return Prediction{Label: label, Probabilities: probs}, nil
}
