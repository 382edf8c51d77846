package predict

import (
	"strconv"
	"strings"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
)

// ParseValues builds an Observation from raw answers keyed by column name,
// as submitted by a form. Numbers that do not parse are reported as a
// *ValidationError; range and vocabulary checks are left to Validate.
func ParseValues(schema dataset.Schema, values map[string]string) (Observation, error) {
	var obs Observation
	verr := &ValidationError{}

	for _, f := range schema.Fields {
		raw := strings.TrimSpace(values[f.Name])
		if f.IsCategorical() {
			setCategorical(&obs, f.Name, raw)
			continue
		}
		if raw == "" {
			verr.Fields = append(verr.Fields, FieldError{Field: f.Name, Message: "is required"})
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{Field: f.Name, Message: "must be a number"})
			continue
		}
		setNumeric(&obs, f.Name, v)
	}

	if len(verr.Fields) > 0 {
		return obs, verr
	}
	return obs, nil
}

// Values returns the observation as strings keyed by column name.
func (o Observation) Values() map[string]string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]string{
		dataset.TimeSpentAlone:          num(o.TimeSpentAlone),
		dataset.StageFear:               o.StageFear,
		dataset.SocialEventAttendance:   num(o.SocialEventAttendance),
		dataset.GoingOutside:            num(o.GoingOutside),
		dataset.DrainedAfterSocializing: o.DrainedAfterSocializing,
		dataset.FriendsCircleSize:       num(o.FriendsCircleSize),
		dataset.PostFrequency:           num(o.PostFrequency),
	}
}

func setNumeric(obs *Observation, name string, v float64) {
	switch name {
	case dataset.TimeSpentAlone:
		obs.TimeSpentAlone = v
	case dataset.SocialEventAttendance:
		obs.SocialEventAttendance = v
	case dataset.GoingOutside:
		obs.GoingOutside = v
	case dataset.FriendsCircleSize:
		obs.FriendsCircleSize = v
	case dataset.PostFrequency:
		obs.PostFrequency = v
	}
}

func setCategorical(obs *Observation, name, v string) {
	switch name {
	case dataset.StageFear:
		obs.StageFear = v
	case dataset.DrainedAfterSocializing:
		obs.DrainedAfterSocializing = v
	}
}
