package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/learning"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
	"github.com/neurlang/tacotron/text"
)

// ErrDiverged is returned when the training loss stops being finite.
var ErrDiverged = errors.New("training diverged")

// Options control checkpointing and progress reporting of Train.
type Options struct {
	// Checkpoint is the destination file; empty disables saving.
	Checkpoint string
	// CheckpointEvery saves after every n epochs; 0 saves only at the end.
	CheckpointEvery int
	// BestOnly skips periodic saves whose epoch loss is not a new minimum.
	// The validation loss decides when Validation is set.
	BestOnly bool

	// Tokenizer and Mel are stored in checkpoints next to the weights.
	Tokenizer *text.Tokenizer
	Mel       mel.Params
	// Standardized marks checkpoints of models trained on standardized
	// spectrograms.
	Standardized bool

	// Resume continues the run recorded in a checkpoint: epoch count,
	// learning rate and loss history.
	Resume *tacotron.Checkpoint

	// Validation is sampled after every epoch when set.
	Validation   *datasets.Generator
	Significance byte

	// OnEpoch is called after every epoch with its mean loss.
	OnEpoch func(epoch int, loss float64)
}

// Train fits m on gen for hp.Epochs epochs of gen.StepsPerEpoch steps.
// The learning rate follows hp.Schedule, evaluated at the start of every
// epoch. The trained weights are left in m, also when ctx is cancelled.
func Train(ctx context.Context, m *tacotron.Model, gen *datasets.Generator, hp learning.HyperParameters, opts Options) (*History, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	if opts.Checkpoint != "" && opts.Tokenizer == nil {
		return nil, fmt.Errorf("trainer: checkpointing needs the tokenizer")
	}
	if gen.Bands() != m.Config().MelDim {
		return nil, fmt.Errorf("%w: generator has %d bands, model %d", datasets.ErrBadBatchConfig, gen.Bands(), m.Config().MelDim)
	}

	g, err := m.Build(gen.BatchSize(), true)
	if err != nil {
		return nil, err
	}
	if _, err := gorgonia.Grad(g.Cost(), g.Learnables()...); err != nil {
		return nil, fmt.Errorf("trainer: gradient: %w", err)
	}
	vm := gorgonia.NewTapeMachine(g.ExprGraph(), gorgonia.BindDualValues(g.Learnables()...))
	defer vm.Close()

	history := &History{RunID: tacotron.NewRunID()}
	start, lr := 0, hp.LearningRate
	if c := opts.Resume; c != nil {
		history.RunID = c.RunID
		history.Loss = append(history.Loss, c.Loss...)
		start = c.Epoch
		if c.LearningRate > 0 {
			lr = c.LearningRate
		}
		for i := range history.Loss {
			history.LearningRate = append(history.LearningRate, hp.RateAt(i))
		}
	}

	var eval *Evaluator
	if opts.Validation != nil {
		if eval, err = NewEvaluator(m, opts.Validation, opts.Significance); err != nil {
			return nil, err
		}
		defer eval.Close()
	}

	save := func(epoch int) error {
		if opts.Checkpoint == "" {
			return nil
		}
		if err := m.Snapshot(g); err != nil {
			return err
		}
		c := tacotron.NewCheckpoint(history.RunID, m, opts.Tokenizer, opts.Mel)
		c.Epoch = epoch
		c.LearningRate = lr
		c.Loss = history.Loss
		c.Standardized = opts.Standardized
		if err := tacotron.SaveCheckpoint(opts.Checkpoint, c); err != nil {
			return fmt.Errorf("trainer: save checkpoint: %w", err)
		}
		log.Info("Checkpoint saved", "path", opts.Checkpoint, "epoch", epoch)
		return nil
	}

	log.Info("Training", "run", history.RunID, "epochs", hp.Epochs, "start", start,
		"steps", gen.StepsPerEpoch(), "batch", gen.BatchSize(), "learnables", len(g.Learnables()))

	solver := hp.NewSolver(lr)
	steps := gen.StepsPerEpoch()
	for epoch := start; epoch < hp.Epochs; epoch++ {
		if next := hp.Schedule(epoch, lr); next != lr {
			lr = next
			solver = hp.NewSolver(lr)
		}
		began := time.Now()
		var sum float64
		for step := 0; step < steps; step++ {
			if err := ctx.Err(); err != nil {
				return history, finish(m, g, err)
			}
			loss, err := trainStep(g, vm, solver, gen.Next())
			if err != nil {
				return history, finish(m, g, fmt.Errorf("epoch %d step %d: %w", epoch, step, err))
			}
			sum += loss
			log.Debug("Step", "epoch", epoch, "step", step, "loss", loss)
		}
		loss := sum / float64(steps)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return history, finish(m, g, fmt.Errorf("%w: epoch %d loss %v", ErrDiverged, epoch, loss))
		}
		improved := history.Best() < 0 || loss < history.Loss[history.Best()]
		history.Loss = append(history.Loss, loss)
		history.LearningRate = append(history.LearningRate, lr)

		fields := []any{"epoch", epoch + 1, "loss", loss, "lr", lr, "took", time.Since(began).Round(time.Millisecond)}
		if eval != nil {
			if err := m.Snapshot(g); err != nil {
				return history, err
			}
			if err := eval.Sync(m); err != nil {
				return history, err
			}
			vloss, err := eval.Evaluate(ctx)
			if err != nil {
				return history, finish(m, g, err)
			}
			best := history.BestValidation()
			improved = best < 0 || vloss < history.Validation[best]
			history.Validation = append(history.Validation, vloss)
			fields = append(fields, "validation", vloss)
		}
		log.Info("Epoch", fields...)
		if opts.OnEpoch != nil {
			opts.OnEpoch(epoch, loss)
		}

		if opts.CheckpointEvery > 0 && (epoch+1)%opts.CheckpointEvery == 0 && epoch+1 < hp.Epochs {
			if !opts.BestOnly || improved {
				if err := save(epoch + 1); err != nil {
					return history, err
				}
			}
		}
	}
	if err := m.Snapshot(g); err != nil {
		return history, err
	}
	if start < hp.Epochs {
		if err := save(hp.Epochs); err != nil {
			return history, err
		}
	}
	return history, nil
}

func trainStep(g *tacotron.Graph, vm gorgonia.VM, solver gorgonia.Solver, b datasets.Batch) (float64, error) {
	defer vm.Reset()
	if err := g.Let(b); err != nil {
		return 0, err
	}
	if err := vm.RunAll(); err != nil {
		return 0, err
	}
	loss, err := g.Loss()
	if err != nil {
		return 0, err
	}
	if err := solver.Step(gorgonia.NodesToValueGrads(g.Learnables())); err != nil {
		return 0, err
	}
	return loss, nil
}

// finish keeps the weights reached so far and returns cause.
func finish(m *tacotron.Model, g *tacotron.Graph, cause error) error {
	if err := m.Snapshot(g); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
