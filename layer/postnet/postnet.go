// Package postnet implements the convolutional residual refiner of mel frames.
//
// Activations are laid out as (batch, channels, 1, time) so a 1-D
// convolution over time is a 2-D convolution with a (1, k) kernel.
package postnet

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/layer"
)

// Epsilon keeps the normalization finite for constant channels.
const Epsilon = 1e-3

type PostNetLayer struct {
	channels, filters, kernel, depth int
}

type conv struct {
	w, b   *gorgonia.Node
	kernel int
}

type norm struct {
	gamma, beta *gorgonia.Node
	channels    int
}

// PostNet is a laid postnet.
type PostNet struct {
	convs []conv
	norms []norm
	last  conv
}

// MustNew creates a postnet over channels mel bands with depth hidden
// convolutions of filters outputs each
func MustNew(channels, filters, kernel, depth int) *PostNetLayer {
	o, err := New(channels, filters, kernel, depth)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a postnet over channels mel bands with depth hidden
// convolutions of filters outputs each
func New(channels, filters, kernel, depth int) (*PostNetLayer, error) {
	if channels <= 0 || filters <= 0 || depth < 0 {
		return nil, fmt.Errorf("postnet: bad size %d/%d/%d", channels, filters, depth)
	}
	if kernel <= 0 || kernel%2 == 0 {
		return nil, fmt.Errorf("postnet: kernel %d must be odd", kernel)
	}
	return &PostNetLayer{channels: channels, filters: filters, kernel: kernel, depth: depth}, nil
}

func (l *PostNetLayer) conv(b layer.Builder, name string, in, out int) conv {
	return conv{
		w:      b.Param(name+".w", tensor.Shape{out, in, 1, l.kernel}, gorgonia.GlorotU(1)),
		b:      b.Param(name+".b", tensor.Shape{1, out, 1, 1}, gorgonia.Zeroes()),
		kernel: l.kernel,
	}
}

// Lay creates depth convolution and normalization pairs and the final
// projection back to channels.
func (l *PostNetLayer) Lay(b layer.Builder, name string) *PostNet {
	p := &PostNet{}
	in := l.channels
	for i := 0; i < l.depth; i++ {
		prefix := fmt.Sprintf("%s.conv%d", name, i+1)
		p.convs = append(p.convs, l.conv(b, prefix, in, l.filters))
		p.norms = append(p.norms, norm{
			gamma:    b.Param(fmt.Sprintf("%s.bn%d.gamma", name, i+1), tensor.Shape{1, l.filters, 1, 1}, gorgonia.Ones()),
			beta:     b.Param(fmt.Sprintf("%s.bn%d.beta", name, i+1), tensor.Shape{1, l.filters, 1, 1}, gorgonia.Zeroes()),
			channels: l.filters,
		})
		in = l.filters
	}
	p.last = l.conv(b, fmt.Sprintf("%s.conv%d", name, l.depth+1), in, l.channels)
	return p
}

func (c conv) forward(x *gorgonia.Node) *gorgonia.Node {
	y := gorgonia.Must(gorgonia.Conv2d(x, c.w, tensor.Shape{1, c.kernel}, []int{0, c.kernel / 2}, []int{1, 1}, []int{1, 1}))
	return gorgonia.Must(gorgonia.BroadcastAdd(y, c.b, nil, []byte{0, 2, 3}))
}

// forward normalizes every channel over batch and time.
func (n norm) forward(x *gorgonia.Node) *gorgonia.Node {
	stat := tensor.Shape{1, n.channels, 1, 1}
	eps := gorgonia.NewConstant(float32(Epsilon))

	mean := gorgonia.Must(gorgonia.Reshape(gorgonia.Must(gorgonia.Mean(x, 0, 2, 3)), stat))
	centred := gorgonia.Must(gorgonia.BroadcastSub(x, mean, nil, []byte{0, 2, 3}))
	variance := gorgonia.Must(gorgonia.Reshape(gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(centred)), 0, 2, 3)), stat))
	std := gorgonia.Must(gorgonia.Sqrt(gorgonia.Must(gorgonia.Add(variance, eps))))

	y := gorgonia.Must(gorgonia.BroadcastHadamardDiv(centred, std, nil, []byte{0, 2, 3}))
	y = gorgonia.Must(gorgonia.BroadcastHadamardProd(y, n.gamma, nil, []byte{0, 2, 3}))
	return gorgonia.Must(gorgonia.BroadcastAdd(y, n.beta, nil, []byte{0, 2, 3}))
}

// Residual returns the correction for x of shape (batch, channels, 1, time).
func (p *PostNet) Residual(x *gorgonia.Node) *gorgonia.Node {
	y := x
	for i := range p.convs {
		y = gorgonia.Must(gorgonia.Rectify(p.convs[i].forward(y)))
		y = p.norms[i].forward(y)
	}
	return p.last.forward(y)
}

// Forward returns x refined by its residual. The sum is written into the
// residual buffer so x keeps its value.
func (p *PostNet) Forward(x *gorgonia.Node) *gorgonia.Node {
	return gorgonia.Must(gorgonia.Add(p.Residual(x), x))
}

// Learnables returns every convolution and normalization parameter.
func (p *PostNet) Learnables() (ret gorgonia.Nodes) {
	for i := range p.convs {
		ret = append(ret, p.convs[i].w, p.convs[i].b, p.norms[i].gamma, p.norms[i].beta)
	}
	return append(ret, p.last.w, p.last.b)
}
