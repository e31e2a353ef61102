package tacotron

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/text"
)

// Graph is one unrolled instance of the network with a static batch size.
// Mel and PostNet outputs have shape (batch, mel, 1, frames). Both are
// copied out during the run, as later operations reuse their buffers.
type Graph struct {
	g     *gorgonia.ExprGraph
	cfg   Config
	batch int

	tokens []*gorgonia.Node
	masks  []*gorgonia.Node
	frames []*gorgonia.Node
	target *gorgonia.Node

	prenet    []*gorgonia.Node
	mel, post       *gorgonia.Node
	melVal, postVal gorgonia.Value
	cost            *gorgonia.Node

	params     map[string]*gorgonia.Node
	learnables gorgonia.Nodes
}

// ExprGraph returns the underlying expression graph.
func (g *Graph) ExprGraph() *gorgonia.ExprGraph {
	return g.g
}

// Batch is the static number of rows.
func (g *Graph) Batch() int {
	return g.batch
}

// Cost is MSE(mel, target) + MSE(postnet, target). Nil on inference graphs.
func (g *Graph) Cost() *gorgonia.Node {
	return g.cost
}

// Learnables returns the trained parameters in creation order. PreNet
// parameters are excluded as its output does not reach the cost.
func (g *Graph) Learnables() gorgonia.Nodes {
	return g.learnables
}

// Let binds a training batch: tokens, decoder input and target.
func (g *Graph) Let(b datasets.Batch) error {
	if err := g.LetInputs(b.Tokens, b.Frames); err != nil {
		return err
	}
	if g.target == nil {
		return nil
	}
	T, M := g.cfg.MaxFrames, g.cfg.MelDim
	backing := make([]float32, g.batch*M*T)
	for row, frames := range b.Frames {
		for t := 0; t < T; t++ {
			for m := 0; m < M; m++ {
				backing[(row*M+m)*T+t] = frames[t*M+m]
			}
		}
	}
	return gorgonia.Let(g.target, tensor.New(tensor.WithShape(g.batch, M, 1, T), tensor.WithBacking(backing)))
}

// LetInputs binds token ids and decoder frames. Each token row holds
// MaxTextLen ids, each frame row MaxFrames x MelDim values in frame major
// order. A nil frames or a nil row is an all zero decoder input.
func (g *Graph) LetInputs(tokens [][]int, frames [][]float32) error {
	if len(tokens) != g.batch {
		return fmt.Errorf("tacotron: %d token rows for batch %d", len(tokens), g.batch)
	}
	if frames != nil && len(frames) != g.batch {
		return fmt.Errorf("tacotron: %d frame rows for batch %d", len(frames), g.batch)
	}
	V, M := g.cfg.VocabSize, g.cfg.MelDim
	for row, ids := range tokens {
		if len(ids) != g.cfg.MaxTextLen {
			return fmt.Errorf("tacotron: token row %d has %d ids, want %d", row, len(ids), g.cfg.MaxTextLen)
		}
		for _, id := range ids {
			if id < 0 || id >= V {
				return fmt.Errorf("tacotron: token id %d outside vocabulary of %d", id, V)
			}
		}
	}
	for row := range frames {
		if frames[row] != nil && len(frames[row]) != g.cfg.MaxFrames*M {
			return fmt.Errorf("tacotron: frame row %d has %d values, want %d", row, len(frames[row]), g.cfg.MaxFrames*M)
		}
	}

	for t := range g.tokens {
		onehot := make([]float32, g.batch*V)
		mask := make([]float32, g.batch)
		for row, ids := range tokens {
			if ids[t] != text.Pad {
				onehot[row*V+ids[t]] = 1
				mask[row] = 1
			}
		}
		if err := gorgonia.Let(g.tokens[t], tensor.New(tensor.WithShape(g.batch, V), tensor.WithBacking(onehot))); err != nil {
			return err
		}
		if err := gorgonia.Let(g.masks[t], tensor.New(tensor.WithShape(g.batch, 1), tensor.WithBacking(mask))); err != nil {
			return err
		}
	}

	for t := range g.frames {
		src := t
		if g.cfg.ShiftDecoderInput {
			src = t - 1
		}
		step := make([]float32, g.batch*M)
		if src >= 0 {
			for row := range frames {
				if frames[row] != nil {
					copy(step[row*M:(row+1)*M], frames[row][src*M:(src+1)*M])
				}
			}
		}
		if err := gorgonia.Let(g.frames[t], tensor.New(tensor.WithShape(g.batch, M), tensor.WithBacking(step))); err != nil {
			return err
		}
	}
	return nil
}

// Loss returns the value of Cost after a forward pass.
func (g *Graph) Loss() (float64, error) {
	if g.cost == nil || g.cost.Value() == nil {
		return 0, fmt.Errorf("tacotron: no cost computed")
	}
	switch v := g.cost.Value().Data().(type) {
	case float32:
		return float64(v), nil
	case []float32:
		if len(v) == 1 {
			return float64(v[0]), nil
		}
	}
	return 0, fmt.Errorf("tacotron: unexpected cost value %v", g.cost.Value())
}

func (g *Graph) spectrograms(name string, v gorgonia.Value) ([]*mel.Spectrogram, error) {
	if v == nil {
		return nil, fmt.Errorf("tacotron: %s not computed", name)
	}
	data, ok := v.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("tacotron: %s holds %T", name, v.Data())
	}
	T, M := g.cfg.MaxFrames, g.cfg.MelDim
	out := make([]*mel.Spectrogram, g.batch)
	for row := range out {
		s := mel.NewSpectrogram(T, M)
		for m := 0; m < M; m++ {
			for t := 0; t < T; t++ {
				s.Set(t, m, data[(row*M+m)*T+t])
			}
		}
		out[row] = s
	}
	return out, nil
}

// MelOutputs returns the projected decoder frames of every row.
func (g *Graph) MelOutputs() ([]*mel.Spectrogram, error) {
	return g.spectrograms("mel", g.melVal)
}

// PostNetOutputs returns the refined frames of every row.
func (g *Graph) PostNetOutputs() ([]*mel.Spectrogram, error) {
	return g.spectrograms("postnet", g.postVal)
}

// PreNetOutputs returns the per step prenet activations of row, each of
// PreNetUnits values.
func (g *Graph) PreNetOutputs(row int) ([][]float32, error) {
	if row < 0 || row >= g.batch {
		return nil, fmt.Errorf("tacotron: row %d outside batch %d", row, g.batch)
	}
	U := g.cfg.PreNetUnits
	out := make([][]float32, len(g.prenet))
	for t, n := range g.prenet {
		if n.Value() == nil {
			return nil, fmt.Errorf("tacotron: prenet step %d not computed", t)
		}
		data := n.Value().Data().([]float32)
		out[t] = append([]float32(nil), data[row*U:(row+1)*U]...)
	}
	return out, nil
}

// Load binds stored parameter values to the matching nodes of g.
func (g *Graph) Load(w Weights) error {
	for name, n := range g.params {
		t, ok := w[name]
		if !ok {
			continue
		}
		if !t.Shape().Eq(n.Shape()) {
			return fmt.Errorf("%w: parameter %s has shape %v, want %v", ErrInvalidConfig, name, t.Shape(), n.Shape())
		}
		if err := gorgonia.Let(n, t.Clone()); err != nil {
			return err
		}
	}
	return nil
}
