package trainer

import (
	"context"
	"fmt"

	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/net/tacotron"
)

// batchesToSample returns how many of total batches give a mean cost within
// a margin of (100-significance) percent at the matching confidence. It is
// Cochran's estimate for a proportion of 0.5 with finite population
// correction, clamped to [1, total].
func batchesToSample(total int, significance byte) int {
	if total <= 1 || significance >= 100 {
		return total
	}
	margin := float64(100-significance) / 100
	z := zScore(100 - significance)
	n0 := z * z * 0.25 / (margin * margin)
	n := int(n0 * float64(total) / (float64(total) - 1 + n0))
	return min(max(n, 1), total)
}

// zScore is the two sided normal quantile for alpha percent.
func zScore(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576
	case alpha <= 5:
		return 1.96
	case alpha <= 10:
		return 1.645
	}
	return 1.96
}

// Evaluator measures the cost of a model on a generator without updating it.
type Evaluator struct {
	g   *tacotron.Graph
	vm  gorgonia.VM
	gen *datasets.Generator

	// Significance selects how many batches are sampled per call; 100 runs
	// a whole epoch of the generator.
	Significance byte
}

// NewEvaluator builds a cost graph for gen over the current weights of m.
// Close releases it.
func NewEvaluator(m *tacotron.Model, gen *datasets.Generator, significance byte) (*Evaluator, error) {
	g, err := m.Build(gen.BatchSize(), true)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		g:            g,
		vm:           gorgonia.NewTapeMachine(g.ExprGraph()),
		gen:          gen,
		Significance: significance,
	}, nil
}

// Close releases the machine.
func (e *Evaluator) Close() error {
	return e.vm.Close()
}

// Sync loads the current parameter values of m into the evaluation graph.
func (e *Evaluator) Sync(m *tacotron.Model) error {
	return e.g.Load(m.Weights())
}

// Evaluate returns the mean cost over a sample of batches.
func (e *Evaluator) Evaluate(ctx context.Context) (float64, error) {
	n := batchesToSample(e.gen.StepsPerEpoch(), e.Significance)
	var sum float64
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := e.g.Let(e.gen.Next()); err != nil {
			return 0, err
		}
		if err := e.vm.RunAll(); err != nil {
			return 0, fmt.Errorf("evaluate: %w", err)
		}
		loss, err := e.g.Loss()
		e.vm.Reset()
		if err != nil {
			return 0, err
		}
		sum += loss
	}
	return sum / float64(n), nil
}
