package learning

import (
	"errors"
	"math"
	"testing"
)

func TestSchedule(t *testing.T) {
	h := Default()
	for epoch := 0; epoch < 10; epoch++ {
		if lr := h.Schedule(epoch, 0.5); lr != 0.5 {
			t.Errorf("epoch %d: lr %v", epoch, lr)
		}
	}
	want := 0.5 * math.Exp(-0.1)
	if lr := h.Schedule(10, 0.5); math.Abs(lr-want) > 1e-15 {
		t.Errorf("epoch 10: lr %v, want %v", lr, want)
	}
}

func TestRateAt(t *testing.T) {
	h := Default()
	if lr := h.RateAt(9); lr != h.LearningRate {
		t.Errorf("epoch 9: %v", lr)
	}
	want := h.LearningRate * math.Exp(-0.1*3)
	if lr := h.RateAt(12); math.Abs(lr-want) > 1e-12 {
		t.Errorf("epoch 12: %v, want %v", lr, want)
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
	for _, h := range []HyperParameters{
		{LearningRate: 0, Epochs: 1, BatchSize: 1},
		{LearningRate: 1, Epochs: 0, BatchSize: 1},
		{LearningRate: 1, Epochs: 1, BatchSize: 0},
		{LearningRate: 1, Epochs: 1, BatchSize: 1, DecayRate: -1},
	} {
		if err := h.Validate(); !errors.Is(err, ErrBadHyperParameters) {
			t.Errorf("%+v: %v", h, err)
		}
	}
}

func TestNewSolver(t *testing.T) {
	h := Default()
	h.Clip = 5
	if h.NewSolver(1e-3) == nil {
		t.Fatal("nil solver")
	}
}
