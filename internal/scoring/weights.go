package scoring

import (
	"github.com/alvmarrod/fair/internal/config"
)

// WithSignal weighs an account whose post dates could be parsed
var WithSignal = config.Weights{
	Burstiness: 0.35,
	Temporal:   0.25,
	Engagement: 0.20,
	Username:   0.15,
	Name:       0.05,
}

// WithoutSignal weighs an account with no usable post dates; the temporal
// signals are absent and their share moves to the remaining ones
var WithoutSignal = config.Weights{
	Engagement: 0.40,
	Username:   0.35,
	Name:       0.25,
}

// fuzzySignals are the normalized signals of one account, all on a
// "higher = more suspicious" scale
type fuzzySignals struct {
	Burstiness float64
	Temporal   float64
	Engagement float64
	Username   float64
	Name       float64
}

// combine returns the weighted sum, accumulated in table order
func combine(w config.Weights, s fuzzySignals) float64 {
	return w.Burstiness*s.Burstiness +
		w.Temporal*s.Temporal +
		w.Engagement*s.Engagement +
		w.Username*s.Username +
		w.Name*s.Name
}
