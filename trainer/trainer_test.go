package trainer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/learning"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
	"github.com/neurlang/tacotron/text"
)

func fixture(t *testing.T) (*tacotron.Model, *datasets.Generator, *text.Tokenizer) {
	t.Helper()
	texts := []string{"ab", "ba", "abc"}
	tok := text.NewTokenizer()
	tok.Fit(texts)
	var mels []*mel.Spectrogram
	for i := range texts {
		s := mel.NewSpectrogram(2+i, 3)
		for j := range s.Data {
			s.Data[j] = float32((i+j)%4) / 4
		}
		mels = append(mels, s)
	}
	cfg := tacotron.Config{
		VocabSize:      tok.VocabSize(),
		EmbeddingDim:   4,
		EncoderDim:     4,
		DecoderDim:     4,
		MelDim:         3,
		PreNetUnits:    2,
		PreNetDropout:  0.5,
		PostNetFilters: 3,
		PostNetKernel:  3,
		PostNetLayers:  1,
		MaxTextLen:     3,
		MaxFrames:      4,
	}
	m, err := tacotron.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	gen, err := datasets.NewGenerator(text.EncodeAll(tok, texts), mels, 2, cfg.MaxTextLen, cfg.MaxFrames)
	if err != nil {
		t.Fatal(err)
	}
	return m, gen, tok
}

func TestBatchesToSample(t *testing.T) {
	for _, c := range []struct {
		n            int
		significance byte
		want         int
	}{
		{0, 95, 0},
		{1, 95, 1},
		{10, 100, 10},
		{10, 95, 9},
	} {
		if got := batchesToSample(c.n, c.significance); got != c.want {
			t.Errorf("batchesToSample(%d, %d) = %d, want %d", c.n, c.significance, got, c.want)
		}
	}
	if got := batchesToSample(100000, 95); got < 300 || got > 400 {
		t.Errorf("large population sample %d", got)
	}
}

func TestTrainAndResume(t *testing.T) {
	m, gen, tok := fixture(t)
	path := filepath.Join(t.TempDir(), "model.ckpt")
	hp := learning.Default()
	hp.Epochs = 2
	hp.BatchSize = 2

	var seen []int
	history, err := Train(context.Background(), m, gen, hp, Options{
		Checkpoint: path,
		Tokenizer:  tok,
		Mel:        mel.DefaultParams(),
		OnEpoch:    func(epoch int, loss float64) { seen = append(seen, epoch) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(history.Loss) != 2 || len(seen) != 2 || seen[1] != 1 {
		t.Fatalf("history %v, epochs %v", history.Loss, seen)
	}

	c, err := Resume(true, path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Epoch != 2 || c.RunID != history.RunID || len(c.Loss) != 2 {
		t.Fatalf("checkpoint epoch %d run %s loss %v", c.Epoch, c.RunID, c.Loss)
	}
	restored, err := c.Model()
	if err != nil {
		t.Fatal(err)
	}
	hp.Epochs = 3
	resumed, err := Train(context.Background(), restored, gen, hp, Options{Resume: c})
	if err != nil {
		t.Fatal(err)
	}
	if len(resumed.Loss) != 3 || resumed.RunID != history.RunID {
		t.Errorf("resumed history %v run %s", resumed.Loss, resumed.RunID)
	}
}

func TestResumeMissing(t *testing.T) {
	c, err := Resume(true, filepath.Join(t.TempDir(), "none"))
	if err != nil || c != nil {
		t.Errorf("got %v, %v", c, err)
	}
	if c, err := Resume(false, "whatever"); err != nil || c != nil {
		t.Errorf("got %v, %v", c, err)
	}
}

func TestTrainCancelled(t *testing.T) {
	m, gen, _ := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hp := learning.Default()
	hp.Epochs = 1
	_, err := Train(ctx, m, gen, hp, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestTrainBandMismatch(t *testing.T) {
	m, _, tok := fixture(t)
	gen, err := datasets.NewGenerator([][]int{{1}}, []*mel.Spectrogram{mel.NewSpectrogram(1, 5)}, 1, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Train(context.Background(), m, gen, learning.Default(), Options{Tokenizer: tok})
	if !errors.Is(err, datasets.ErrBadBatchConfig) {
		t.Errorf("got %v", err)
	}
}

func TestHistoryBest(t *testing.T) {
	h := &History{Loss: []float64{3, 1, 2}}
	if h.Best() != 1 {
		t.Errorf("best %d", h.Best())
	}
	if (&History{}).Best() != -1 {
		t.Error("empty history has a best epoch")
	}
	h.Validation = []float64{5, 6, 4}
	if h.BestValidation() != 2 {
		t.Errorf("best validation %d", h.BestValidation())
	}
}

func TestEvaluate(t *testing.T) {
	m, gen, _ := fixture(t)
	e, err := NewEvaluator(m, gen, 100)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	first, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first <= 0 || math.IsNaN(first) || math.IsInf(first, 0) {
		t.Fatalf("loss %v", first)
	}
	again, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(first-again) > 1e-6 {
		t.Errorf("same batches gave %v then %v", first, again)
	}

	other, err := tacotron.New(m.Config(), m.Weights().Clone())
	if err != nil {
		t.Fatal(err)
	}
	w := other.Weights()["projection.w"].Data().([]float32)
	for i := range w {
		w[i] = 3 * w[i]
	}
	if err := e.Sync(other); err != nil {
		t.Fatal(err)
	}
	moved, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if moved == first {
		t.Error("Sync did not change the evaluated weights")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestTrainBestOnly(t *testing.T) {
	m, gen, tok := fixture(t)
	_, validation, _ := fixture(t)
	path := filepath.Join(t.TempDir(), "model.ckpt")
	hp := learning.Default()
	hp.Epochs = 5
	hp.BatchSize = 2

	// saved[e] is the epoch stored on disk when epoch e finished, before
	// its own periodic save.
	saved := map[int]int{}
	history, err := Train(context.Background(), m, gen, hp, Options{
		Checkpoint:      path,
		CheckpointEvery: 1,
		BestOnly:        true,
		Tokenizer:       tok,
		Mel:             mel.DefaultParams(),
		Standardized:    true,
		Validation:      validation,
		Significance:    100,
		OnEpoch: func(epoch int, loss float64) {
			saved[epoch] = -1
			if _, err := os.Stat(path); err != nil {
				return
			}
			c, err := tacotron.LoadCheckpoint(path)
			if err != nil {
				t.Errorf("epoch %d: %v", epoch, err)
				return
			}
			saved[epoch] = c.Epoch
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(history.Validation) != hp.Epochs {
		t.Fatalf("validation history %v", history.Validation)
	}

	want := -1
	for e := 0; e < hp.Epochs; e++ {
		if saved[e] != want {
			t.Errorf("epoch %d: checkpoint of epoch %d on disk, want %d (validation %v)", e, saved[e], want, history.Validation)
		}
		best := true
		for _, v := range history.Validation[:e] {
			if v <= history.Validation[e] {
				best = false
			}
		}
		if best {
			want = e + 1
		}
	}

	c, err := tacotron.LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Epoch != hp.Epochs || !c.Standardized {
		t.Errorf("final checkpoint epoch %d standardized %v", c.Epoch, c.Standardized)
	}
}
