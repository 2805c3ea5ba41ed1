package entity

import "strconv"

// Reading: числовое значение или метка состояния
type Reading struct {
	Number  float64 `json:"number,omitempty"`
	Label   string  `json:"label,omitempty"`
	IsLabel bool    `json:"is_label,omitempty"`
}

// NumberReading создает числовое значение
func NumberReading(v float64) Reading {
	return Reading{Number: v}
}

// LabelReading создает значение-метку состояния
func LabelReading(label string) Reading {
	return Reading{Label: label, IsLabel: true}
}

func (r Reading) String() string {
	if r.IsLabel {
		return r.Label
	}
	return strconv.FormatFloat(r.Number, 'g', -1, 64)
}
