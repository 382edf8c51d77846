package server

import (
	"github.com/TobiSchelling/personality-predictor/internal/dataset"
)

type labelCopy struct {
	Emoji           string
	Description     string
	Characteristics string
}

var labelText = map[int]labelCopy{
	dataset.LabelExtrovert: {
		Emoji:       "🦁",
		Description: "You tend to be outgoing, social, and energized by interactions with others!",
		Characteristics: `**Extrovert Characteristics:**

- You likely gain energy from social interactions
- You probably enjoy being around people
- You may prefer group activities over solo pursuits
- You tend to think out loud and process information through conversation
`,
	},
	dataset.LabelIntrovert: {
		Emoji:       "🦉",
		Description: "You tend to be reflective, prefer solitude, and recharge through alone time!",
		Characteristics: `**Introvert Characteristics:**

- You likely recharge through alone time
- You probably prefer deep, meaningful conversations over small talk
- You may enjoy solitary activities and introspection
- You tend to think before speaking and process information internally
`,
	},
}

const spectrumNote = `**Remember:** Personality is complex and exists on a spectrum.
This prediction is based on behavioral patterns and should be taken as a general guide.
`

// insights returns the markdown shown under a prediction.
func insights(label int) string {
	return labelText[label].Characteristics + "\n" + spectrumNote
}
