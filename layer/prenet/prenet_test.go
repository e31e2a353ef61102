package prenet

import (
	"testing"

	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/layer/layertest"
)

func TestNew(t *testing.T) {
	for _, c := range []struct {
		in, units int
		dropout   float64
	}{
		{0, 2, 0.5},
		{2, 0, 0.5},
		{2, 2, 1},
		{2, 2, -0.1},
	} {
		if _, err := New(c.in, c.units, c.dropout); err == nil {
			t.Errorf("%+v accepted", c)
		}
	}
}

func TestForward(t *testing.T) {
	for _, c := range []struct {
		chained bool
		want    float32
	}{
		// the second layer reads x = [1 2]: 1+2+1
		{false, 4},
		// the second layer reads [4 4]: 4+4+1
		{true, 9},
	} {
		b := layertest.New(gorgonia.Ones(), false)
		l := MustNew(2, 2, 0.5)
		l.Chained = c.chained
		p := l.Lay(b, "prenet")
		y := p.Forward(b.Input("x", []float32{1, 2}, 1, 2))
		if err := b.Run(); err != nil {
			t.Fatal(err)
		}
		for _, v := range layertest.Values(y) {
			if v != c.want {
				t.Errorf("chained %v: got %v, want %v", c.chained, v, c.want)
			}
		}
		if n := len(p.Learnables()); n != 4 {
			t.Errorf("%d learnables", n)
		}
	}
}

func TestDropoutOnlyWhenTraining(t *testing.T) {
	b := layertest.New(gorgonia.Ones(), true)
	p := MustNew(2, 2, 0.5).Lay(b, "prenet")
	y := p.Forward(b.Input("x", []float32{1, 2}, 1, 2))
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if got := len(layertest.Values(y)); got != 2 {
		t.Errorf("%d values", got)
	}
}
