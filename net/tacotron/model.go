package tacotron

import (
	"fmt"
	"strings"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/layer"
	"github.com/neurlang/tacotron/layer/dense"
	"github.com/neurlang/tacotron/layer/lstm"
	"github.com/neurlang/tacotron/layer/postnet"
	"github.com/neurlang/tacotron/layer/prenet"
)

// Weights is the named parameter store of a model.
type Weights map[string]*tensor.Dense

// Clone returns a deep copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for name, t := range w {
		out[name] = t.Clone().(*tensor.Dense)
	}
	return out
}

// Model couples a configuration with its parameters. Graphs built from the
// same model share initial values through Weights. A Model must not be
// built from and snapshotted into concurrently.
type Model struct {
	cfg     Config
	weights Weights
}

// New creates a model. A nil or partial w is completed with fresh values on
// the first Build.
func New(cfg Config, w Weights) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		w = make(Weights)
	}
	return &Model{cfg: cfg, weights: w}, nil
}

// Config returns the model configuration.
func (m *Model) Config() Config {
	return m.cfg
}

// Weights returns the parameter store. It is shared, not copied.
func (m *Model) Weights() Weights {
	return m.weights
}

// Resized returns a model over the same weights unrolled to other lengths.
func (m *Model) Resized(maxTextLen, maxFrames int) (*Model, error) {
	cfg := m.cfg
	cfg.MaxTextLen = maxTextLen
	cfg.MaxFrames = maxFrames
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg, weights: m.weights}, nil
}

// frozen reports parameters outside the loss path.
func frozen(name string) bool {
	return strings.HasPrefix(name, "prenet.")
}

type builder struct {
	g        *gorgonia.ExprGraph
	weights  Weights
	training bool

	names  []string
	params map[string]*gorgonia.Node
	fresh  []string
	err    error
}

func (b *builder) Graph() *gorgonia.ExprGraph {
	return b.g
}

func (b *builder) Training() bool {
	return b.training
}

func (b *builder) Param(name string, shape tensor.Shape, init gorgonia.InitWFn) *gorgonia.Node {
	if n, ok := b.params[name]; ok {
		return n
	}
	opts := []gorgonia.NodeConsOpt{gorgonia.WithShape(shape...), gorgonia.WithName(name)}
	stored, ok := b.weights[name]
	switch {
	case ok && stored.Shape().Eq(shape):
		opts = append(opts, gorgonia.WithValue(stored.Clone()))
	case ok:
		if b.err == nil {
			b.err = fmt.Errorf("%w: parameter %s has shape %v, want %v", ErrInvalidConfig, name, stored.Shape(), shape)
		}
		opts = append(opts, gorgonia.WithInit(init))
	default:
		opts = append(opts, gorgonia.WithInit(init))
		b.fresh = append(b.fresh, name)
	}
	n := gorgonia.NewTensor(b.g, layer.Dtype, len(shape), opts...)
	b.params[name] = n
	b.names = append(b.names, name)
	return n
}

// Build lays the network for batch rows. Training graphs apply dropout and
// carry a target and a cost; inference graphs have neither.
func (m *Model) Build(batch int, training bool) (ret *Graph, err error) {
	if batch <= 0 {
		return nil, fmt.Errorf("%w: batch %d", ErrInvalidConfig, batch)
	}
	defer func() {
		if r := recover(); r != nil {
			ret = nil
			err = fmt.Errorf("tacotron: build graph: %v", r)
		}
	}()

	cfg := m.cfg
	b := &builder{
		g:        gorgonia.NewGraph(),
		weights:  m.weights,
		training: training,
		params:   make(map[string]*gorgonia.Node),
	}

	embedding := b.Param("embedding", tensor.Shape{cfg.VocabSize, cfg.EmbeddingDim}, gorgonia.GlorotU(1))
	encoder := lstm.MustNew(cfg.EmbeddingDim, cfg.EncoderDim).Lay(b, "encoder")
	pre := prenet.MustNew(cfg.EncoderDim, cfg.PreNetUnits, cfg.PreNetDropout)
	pre.Chained = cfg.PreNetChained
	preNet := pre.Lay(b, "prenet")
	decoder := lstm.MustNew(cfg.MelDim, cfg.DecoderDim).Lay(b, "decoder")
	projection := dense.MustNew(cfg.DecoderDim, cfg.MelDim, false).Lay(b, "projection")
	postNet := postnet.MustNew(cfg.MelDim, cfg.PostNetFilters, cfg.PostNetKernel, cfg.PostNetLayers).Lay(b, "postnet")
	if b.err != nil {
		return nil, b.err
	}

	g := &Graph{
		g:      b.g,
		cfg:    cfg,
		batch:  batch,
		params: b.params,
	}

	embedded := make([]*gorgonia.Node, cfg.MaxTextLen)
	g.tokens = make([]*gorgonia.Node, cfg.MaxTextLen)
	g.masks = make([]*gorgonia.Node, cfg.MaxTextLen)
	for t := range g.tokens {
		g.tokens[t] = gorgonia.NewMatrix(b.g, layer.Dtype, gorgonia.WithShape(batch, cfg.VocabSize), gorgonia.WithName(fmt.Sprintf("tokens%d", t)))
		g.masks[t] = gorgonia.NewMatrix(b.g, layer.Dtype, gorgonia.WithShape(batch, 1), gorgonia.WithName(fmt.Sprintf("mask%d", t)))
		embedded[t] = gorgonia.Must(gorgonia.Mul(g.tokens[t], embedding))
	}

	h0 := layer.Zeros(b.g, "h0", batch, cfg.EncoderDim)
	c0 := layer.Zeros(b.g, "c0", batch, cfg.EncoderDim)
	encoded, h, c := encoder.UnrollMasked(embedded, g.masks, h0, c0)

	g.prenet = make([]*gorgonia.Node, len(encoded))
	for t, e := range encoded {
		g.prenet[t] = preNet.Forward(e)
	}

	g.frames = make([]*gorgonia.Node, cfg.MaxFrames)
	for t := range g.frames {
		g.frames[t] = gorgonia.NewMatrix(b.g, layer.Dtype, gorgonia.WithShape(batch, cfg.MelDim), gorgonia.WithName(fmt.Sprintf("frame%d", t)))
	}
	decoded, _, _ := decoder.Unroll(g.frames, h, c)

	steps := make([]*gorgonia.Node, len(decoded))
	for t, d := range decoded {
		steps[t] = gorgonia.Must(gorgonia.Reshape(projection.Forward(d), tensor.Shape{batch, cfg.MelDim, 1, 1}))
	}
	if len(steps) == 1 {
		g.mel = steps[0]
	} else {
		g.mel = gorgonia.Must(gorgonia.Concat(3, steps...))
	}
	g.post = postNet.Forward(g.mel)
	gorgonia.Read(g.mel, &g.melVal)
	gorgonia.Read(g.post, &g.postVal)

	if training {
		g.target = gorgonia.NewTensor(b.g, layer.Dtype, 4, gorgonia.WithShape(batch, cfg.MelDim, 1, cfg.MaxFrames), gorgonia.WithName("target"))
		melLoss := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(gorgonia.Must(gorgonia.Sub(g.mel, g.target))))))
		postLoss := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(gorgonia.Must(gorgonia.Sub(g.post, g.target))))))
		g.cost = gorgonia.Must(gorgonia.Add(melLoss, postLoss))
	}

	for _, name := range b.names {
		if !frozen(name) {
			g.learnables = append(g.learnables, b.params[name])
		}
	}
	for _, name := range b.fresh {
		m.weights[name] = b.params[name].Value().(*tensor.Dense).Clone().(*tensor.Dense)
	}
	return g, nil
}

// Snapshot copies the current parameter values of g into the model.
func (m *Model) Snapshot(g *Graph) error {
	for name, n := range g.params {
		t, ok := n.Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("tacotron: parameter %s holds %T", name, n.Value())
		}
		m.weights[name] = t.Clone().(*tensor.Dense)
	}
	return nil
}
