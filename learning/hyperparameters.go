// Package learning holds the optimizer settings and the learning rate schedule
package learning

import (
	"errors"
	"fmt"
	"math"

	"gorgonia.org/gorgonia"
)

// ErrBadHyperParameters is returned by HyperParameters.Validate.
var ErrBadHyperParameters = errors.New("invalid hyperparameters")

type HyperParameters struct {
	LearningRate float64 `mapstructure:"learning_rate"` // initial Adam step size
	Epochs       int     `mapstructure:"epochs"`        // total number of epochs
	BatchSize    int     `mapstructure:"batch_size"`    // rows per step

	// DecayAfter is the first epoch at which the learning rate decays.
	DecayAfter int `mapstructure:"decay_after"`
	// DecayRate is k in lr = lr * exp(-k), applied once per decaying epoch.
	DecayRate float64 `mapstructure:"decay_rate"`

	Clip float64 `mapstructure:"clip"` // gradient clip, 0 disables
}

// Default returns Adam at 1e-3 for 100 epochs of 32 rows, decaying by
// exp(-0.1) per epoch from epoch 10.
func Default() HyperParameters {
	return HyperParameters{
		LearningRate: 1e-3,
		Epochs:       100,
		BatchSize:    32,
		DecayAfter:   10,
		DecayRate:    0.1,
	}
}

func (h HyperParameters) Validate() error {
	if h.LearningRate <= 0 || math.IsNaN(h.LearningRate) {
		return fmt.Errorf("%w: learning_rate %v", ErrBadHyperParameters, h.LearningRate)
	}
	if h.Epochs <= 0 || h.BatchSize <= 0 {
		return fmt.Errorf("%w: epochs %d, batch_size %d", ErrBadHyperParameters, h.Epochs, h.BatchSize)
	}
	if h.DecayAfter < 0 || h.DecayRate < 0 || h.Clip < 0 {
		return fmt.Errorf("%w: decay_after %d, decay_rate %v, clip %v", ErrBadHyperParameters, h.DecayAfter, h.DecayRate, h.Clip)
	}
	return nil
}

// Schedule returns the learning rate for epoch given the rate in effect
// before it. From DecayAfter on every epoch gets a new rate, and gorgonia's
// Adam solver cannot change its rate in place, so the trainer starts a
// fresh solver each such epoch. Its moment estimates restart from zero
// every epoch and the first steps after a change use the bias corrected,
// near full size update of a newly started Adam.
func (h HyperParameters) Schedule(epoch int, lr float64) float64 {
	if epoch < h.DecayAfter {
		return lr
	}
	return lr * math.Exp(-h.DecayRate)
}

// RateAt replays Schedule from the initial rate up to and including epoch.
func (h HyperParameters) RateAt(epoch int) float64 {
	lr := h.LearningRate
	for e := 0; e <= epoch; e++ {
		lr = h.Schedule(e, lr)
	}
	return lr
}

// NewSolver returns an Adam solver stepping at lr.
func (h HyperParameters) NewSolver(lr float64) gorgonia.Solver {
	opts := []gorgonia.SolverOpt{gorgonia.WithLearnRate(lr)}
	if h.Clip > 0 {
		opts = append(opts, gorgonia.WithClip(h.Clip))
	}
	return gorgonia.NewAdamSolver(opts...)
}
