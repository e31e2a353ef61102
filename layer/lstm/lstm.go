// Package lstm implements a long short-term memory recurrent layer unrolled
// over a fixed number of steps.
package lstm

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/layer"
)

type LSTMLayer struct {
	in, hidden int
}

type gate struct {
	wx, wh, b *gorgonia.Node
}

// LSTM is a laid recurrent layer.
type LSTM struct {
	Hidden int

	input, forget, cell, output gate
}

// MustNew creates a new LSTM layer with in input and hidden state features
func MustNew(in, hidden int) *LSTMLayer {
	o, err := New(in, hidden)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new LSTM layer with in input and hidden state features
func New(in, hidden int) (*LSTMLayer, error) {
	if in <= 0 || hidden <= 0 {
		return nil, fmt.Errorf("lstm: bad size %dx%d", in, hidden)
	}
	return &LSTMLayer{in: in, hidden: hidden}, nil
}

func (l *LSTMLayer) gate(b layer.Builder, name string, bias gorgonia.InitWFn) gate {
	return gate{
		wx: b.Param(name+".wx", tensor.Shape{l.in, l.hidden}, gorgonia.GlorotU(1)),
		wh: b.Param(name+".wh", tensor.Shape{l.hidden, l.hidden}, gorgonia.GlorotU(1)),
		b:  b.Param(name+".b", tensor.Shape{1, l.hidden}, bias),
	}
}

// Lay creates the four gates. The forget gate bias starts at one.
func (l *LSTMLayer) Lay(b layer.Builder, name string) *LSTM {
	return &LSTM{
		Hidden: l.hidden,
		input:  l.gate(b, name+".i", gorgonia.Zeroes()),
		forget: l.gate(b, name+".f", gorgonia.Ones()),
		cell:   l.gate(b, name+".c", gorgonia.Zeroes()),
		output: l.gate(b, name+".o", gorgonia.Zeroes()),
	}
}

func (g gate) pre(x, h *gorgonia.Node) *gorgonia.Node {
	xw := gorgonia.Must(gorgonia.Mul(x, g.wx))
	hw := gorgonia.Must(gorgonia.Mul(h, g.wh))
	return gorgonia.Must(gorgonia.BroadcastAdd(gorgonia.Must(gorgonia.Add(xw, hw)), g.b, nil, []byte{0}))
}

// Step advances the state by one input of shape (batch, in).
func (l *LSTM) Step(x, h, c *gorgonia.Node) (hNext, cNext *gorgonia.Node) {
	i := gorgonia.Must(gorgonia.Sigmoid(l.input.pre(x, h)))
	f := gorgonia.Must(gorgonia.Sigmoid(l.forget.pre(x, h)))
	g := gorgonia.Must(gorgonia.Tanh(l.cell.pre(x, h)))
	o := gorgonia.Must(gorgonia.Sigmoid(l.output.pre(x, h)))

	cNext = gorgonia.Must(gorgonia.Add(
		gorgonia.Must(gorgonia.HadamardProd(f, c)),
		gorgonia.Must(gorgonia.HadamardProd(i, g)),
	))
	hNext = gorgonia.Must(gorgonia.HadamardProd(o, gorgonia.Must(gorgonia.Tanh(cNext))))
	return
}

// Unroll runs Step over xs starting from (h0, c0) and returns every hidden
// output together with the final state.
func (l *LSTM) Unroll(xs []*gorgonia.Node, h0, c0 *gorgonia.Node) (hs []*gorgonia.Node, h, c *gorgonia.Node) {
	h, c = h0, c0
	hs = make([]*gorgonia.Node, len(xs))
	for t, x := range xs {
		h, c = l.Step(x, h, c)
		hs[t] = h
	}
	return
}

// UnrollMasked is Unroll where masks[t] of shape (batch, 1) holds 1 for real
// steps and 0 for padding. Padded steps carry the previous state and output.
func (l *LSTM) UnrollMasked(xs, masks []*gorgonia.Node, h0, c0 *gorgonia.Node) (hs []*gorgonia.Node, h, c *gorgonia.Node) {
	h, c = h0, c0
	hs = make([]*gorgonia.Node, len(xs))
	for t, x := range xs {
		hNext, cNext := l.Step(x, h, c)
		h = keep(masks[t], hNext, h)
		c = keep(masks[t], cNext, c)
		hs[t] = h
	}
	return
}

// keep selects next where mask is 1 and prev where it is 0.
func keep(mask, next, prev *gorgonia.Node) *gorgonia.Node {
	delta := gorgonia.Must(gorgonia.Sub(next, prev))
	delta = gorgonia.Must(gorgonia.BroadcastHadamardProd(delta, mask, nil, []byte{1}))
	return gorgonia.Must(gorgonia.Add(prev, delta))
}

// Learnables returns all gate parameters.
func (l *LSTM) Learnables() (ret gorgonia.Nodes) {
	for _, g := range []gate{l.input, l.forget, l.cell, l.output} {
		ret = append(ret, g.wx, g.wh, g.b)
	}
	return
}
