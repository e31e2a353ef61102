// Package dense implements a fully connected layer
package dense

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/layer"
)

type DenseLayer struct {
	in, out int
	relu    bool
}

// Dense is a laid fully connected layer.
type Dense struct {
	W, B *gorgonia.Node
	relu bool
}

// MustNew creates a new dense layer from in to out features
func MustNew(in, out int, relu bool) *DenseLayer {
	o, err := New(in, out, relu)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new dense layer from in to out features
func New(in, out int, relu bool) (o *DenseLayer, err error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("dense: bad size %dx%d", in, out)
	}
	return &DenseLayer{in: in, out: out, relu: relu}, nil
}

// Lay creates the weight and bias of the layer
func (l *DenseLayer) Lay(b layer.Builder, name string) *Dense {
	return &Dense{
		W:    b.Param(name+".w", tensor.Shape{l.in, l.out}, gorgonia.GlorotU(1)),
		B:    b.Param(name+".b", tensor.Shape{1, l.out}, gorgonia.Zeroes()),
		relu: l.relu,
	}
}

// Forward maps a (batch, in) node to (batch, out).
func (d *Dense) Forward(x *gorgonia.Node) *gorgonia.Node {
	y := gorgonia.Must(gorgonia.Mul(x, d.W))
	y = gorgonia.Must(gorgonia.BroadcastAdd(y, d.B, nil, []byte{0}))
	if d.relu {
		y = gorgonia.Must(gorgonia.Rectify(y))
	}
	return y
}

// Learnables returns the weight and bias.
func (d *Dense) Learnables() gorgonia.Nodes {
	return gorgonia.Nodes{d.W, d.B}
}
