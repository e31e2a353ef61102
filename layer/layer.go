// Package layer defines how network blocks obtain their parameters and
// shared helpers for wiring them into a gorgonia expression graph.
package layer

import (
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Dtype is the element type of every parameter and activation.
var Dtype = tensor.Float32

// Builder owns the expression graph of one model instance.
type Builder interface {

	// Graph returns the expression graph blocks are added to.
	Graph() *gorgonia.ExprGraph

	// Param returns a parameter node named name. A stored value of the same
	// name is reused, otherwise init initializes the node.
	Param(name string, shape tensor.Shape, init gorgonia.InitWFn) *gorgonia.Node

	// Training reports whether the graph is built for training, which
	// enables dropout.
	Training() bool
}

// Zeros returns a constant, non learnable node filled with zeros.
func Zeros(g *gorgonia.ExprGraph, name string, shape ...int) *gorgonia.Node {
	return gorgonia.NewTensor(g, Dtype, len(shape), gorgonia.WithShape(shape...), gorgonia.WithName(name), gorgonia.WithInit(gorgonia.Zeroes()))
}
