// Package prenet implements the two layer bottleneck applied to encoder outputs
package prenet

import (
	"fmt"

	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/layer"
	"github.com/neurlang/tacotron/layer/dense"
)

type PreNetLayer struct {
	in, units int
	dropout   float64

	// Chained feeds the first dense output into the second one. When false
	// the second dense reads the block input and the first is computed and
	// discarded.
	Chained bool
}

// PreNet is a laid prenet.
type PreNet struct {
	First, Second *dense.Dense
	dropout       float64
	training      bool
	chained       bool
}

// MustNew creates a new prenet from in features to units with dropout rate
func MustNew(in, units int, dropout float64) *PreNetLayer {
	o, err := New(in, units, dropout)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new prenet from in features to units with dropout rate
func New(in, units int, dropout float64) (*PreNetLayer, error) {
	if in <= 0 || units <= 0 {
		return nil, fmt.Errorf("prenet: bad size %dx%d", in, units)
	}
	if dropout < 0 || dropout >= 1 {
		return nil, fmt.Errorf("prenet: dropout %v out of [0,1)", dropout)
	}
	return &PreNetLayer{in: in, units: units, dropout: dropout}, nil
}

// Lay creates both dense layers. The second one reads the block input unless
// the layer is chained, so its input width follows that choice.
func (l *PreNetLayer) Lay(b layer.Builder, name string) *PreNet {
	secondIn := l.in
	if l.Chained {
		secondIn = l.units
	}
	return &PreNet{
		First:    dense.MustNew(l.in, l.units, true).Lay(b, name+".dense1"),
		Second:   dense.MustNew(secondIn, l.units, true).Lay(b, name+".dense2"),
		dropout:  l.dropout,
		training: b.Training(),
		chained:  l.Chained,
	}
}

func (p *PreNet) drop(x *gorgonia.Node) *gorgonia.Node {
	if !p.training || p.dropout == 0 {
		return x
	}
	return gorgonia.Must(gorgonia.Dropout(x, p.dropout))
}

// Forward maps a (batch, in) node to (batch, units).
func (p *PreNet) Forward(x *gorgonia.Node) *gorgonia.Node {
	first := p.drop(p.First.Forward(x))
	if p.chained {
		return p.drop(p.Second.Forward(first))
	}
	return p.drop(p.Second.Forward(x))
}

// Learnables returns the parameters of both dense layers.
func (p *PreNet) Learnables() gorgonia.Nodes {
	return append(p.First.Learnables(), p.Second.Learnables()...)
}
