package lstm

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/layer/layertest"
)

func inputs(b *layertest.Builder, steps int) (xs []*gorgonia.Node) {
	for t := 0; t < steps; t++ {
		xs = append(xs, b.Input("x"+string(rune('0'+t)), []float32{1, float32(t)}, 1, 2))
	}
	return
}

func TestUnrollShapes(t *testing.T) {
	b := layertest.New(nil, false)
	l := MustNew(2, 3).Lay(b, "lstm")
	h0 := b.Input("h0", make([]float32, 3), 1, 3)
	c0 := b.Input("c0", make([]float32, 3), 1, 3)
	hs, h, c := l.Unroll(inputs(b, 4), h0, c0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if len(hs) != 4 || hs[3] != h {
		t.Fatalf("%d outputs", len(hs))
	}
	for _, v := range append(layertest.Values(h), layertest.Values(c)...) {
		if math.IsNaN(float64(v)) {
			t.Fatal("NaN state")
		}
	}
	for _, v := range layertest.Values(h) {
		if v <= -1 || v >= 1 {
			t.Errorf("hidden value %v outside (-1, 1)", v)
		}
	}
	if n := len(l.Learnables()); n != 12 {
		t.Errorf("%d learnables", n)
	}
}

func TestStepOnes(t *testing.T) {
	b := layertest.New(gorgonia.Ones(), false)
	l := MustNew(1, 1).Lay(b, "lstm")
	x := b.Input("x", []float32{1}, 1, 1)
	h0 := b.Input("h0", []float32{0}, 1, 1)
	c0 := b.Input("c0", []float32{0}, 1, 1)
	h, c := l.Step(x, h0, c0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	// every gate sees 1*1 + 0*1 + 1 = 2
	s := 1 / (1 + math.Exp(-2))
	wantC := s * math.Tanh(2)
	wantH := s * math.Tanh(wantC)
	if got := float64(layertest.Values(c)[0]); math.Abs(got-wantC) > 1e-5 {
		t.Errorf("c = %v, want %v", got, wantC)
	}
	if got := float64(layertest.Values(h)[0]); math.Abs(got-wantH) > 1e-5 {
		t.Errorf("h = %v, want %v", got, wantH)
	}
}

func TestUnrollMaskedKeepsState(t *testing.T) {
	b := layertest.New(nil, false)
	l := MustNew(2, 3).Lay(b, "lstm")
	h0 := b.Input("h0", []float32{0.1, 0.2, 0.3, -0.1, -0.2, -0.3}, 2, 3)
	c0 := b.Input("c0", []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	var xs, masks []*gorgonia.Node
	for t := 0; t < 3; t++ {
		xs = append(xs, b.Input("x"+string(rune('0'+t)), []float32{1, 2, 3, 4}, 2, 2))
		// row 0 is real on the first step only, row 1 never
		m := []float32{0, 0}
		if t == 0 {
			m[0] = 1
		}
		masks = append(masks, b.Input("m"+string(rune('0'+t)), m, 2, 1))
	}
	hs, h, c := l.UnrollMasked(xs, masks, h0, c0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	first, last := layertest.Values(hs[0]), layertest.Values(h)
	for i := 0; i < 3; i++ {
		if last[i] != first[i] {
			t.Errorf("row 0 changed after its last real step: %v != %v", last[i], first[i])
		}
	}
	h0v, c0v, cv := layertest.Values(h0), layertest.Values(c0), layertest.Values(c)
	for i := 3; i < 6; i++ {
		if last[i] != h0v[i] || cv[i] != c0v[i] {
			t.Errorf("padded row changed at %d", i)
		}
	}
}
