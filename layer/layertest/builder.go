// Package layertest provides a layer.Builder for tests
package layertest

import (
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/layer"
)

// Builder creates every parameter with Init when set, otherwise with the
// initializer the layer asks for.
type Builder struct {
	G     *gorgonia.ExprGraph
	Init  gorgonia.InitWFn
	Train bool
	Names []string
}

// New returns a builder over a fresh graph.
func New(init gorgonia.InitWFn, training bool) *Builder {
	return &Builder{G: gorgonia.NewGraph(), Init: init, Train: training}
}

func (b *Builder) Graph() *gorgonia.ExprGraph {
	return b.G
}

func (b *Builder) Training() bool {
	return b.Train
}

func (b *Builder) Param(name string, shape tensor.Shape, init gorgonia.InitWFn) *gorgonia.Node {
	if b.Init != nil {
		init = b.Init
	}
	b.Names = append(b.Names, name)
	return gorgonia.NewTensor(b.G, layer.Dtype, len(shape), gorgonia.WithShape(shape...), gorgonia.WithName(name), gorgonia.WithInit(init))
}

// Input returns a node holding data with the given shape.
func (b *Builder) Input(name string, data []float32, shape ...int) *gorgonia.Node {
	return gorgonia.NewTensor(b.G, layer.Dtype, len(shape), gorgonia.WithShape(shape...), gorgonia.WithName(name),
		gorgonia.WithValue(tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))))
}

// Run executes the graph once.
func (b *Builder) Run() error {
	vm := gorgonia.NewTapeMachine(b.G)
	defer vm.Close()
	return vm.RunAll()
}

// Values returns the float32 data of n.
func Values(n *gorgonia.Node) []float32 {
	return n.Value().Data().([]float32)
}
