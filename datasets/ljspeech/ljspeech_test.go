package ljspeech

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neurlang/tacotron/audio"
	"github.com/neurlang/tacotron/mel"
)

func testCorpus(t *testing.T, lines []string, wavs map[string]int) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "list.txt"), []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatal(err)
	}
	for name, n := range wavs {
		y := make([]float64, n)
		for i := range y {
			y[i] = 0.3 * math.Sin(float64(i)/5)
		}
		if err := audio.WriteWav(filepath.Join(dir, name), y, 8000); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func params() mel.Params {
	return mel.Params{SampleRate: 8000, NFFT: 256, HopLength: 64, NumMels: 8, TopDB: 80}
}

func TestNewDataset(t *testing.T) {
	dir := testCorpus(t, []string{"a|Hello There.", "bad line", "b.wav|General Kenobi."},
		map[string]int{"a.wav": 640, "b.wav": 1280})
	d, err := NewDataset(dir, mel.NewExtractor(params()), Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 || len(d.Mels) != 2 || len(d.Sequences) != 2 {
		t.Fatalf("unexpected sizes: %d records, %d mels", d.Len(), len(d.Mels))
	}
	if d.Texts[0] != "hello there " {
		t.Errorf("text not normalized: %q", d.Texts[0])
	}
	if got := d.Tokenizer.Decode(d.Sequences[1]); got != "general kenobi " {
		t.Errorf("decoded %q", got)
	}
	frames, maxText := d.FrameStats()
	if frames != 1+1280/64 || maxText != len("general kenobi ") {
		t.Errorf("FrameStats = %d, %d", frames, maxText)
	}
	g, err := d.Generator(2, 16, 24)
	if err != nil {
		t.Fatal(err)
	}
	if b := g.Next(); b.Size != 2 || len(b.Frames[0]) != 24*8 {
		t.Errorf("batch size %d, frame row %d", b.Size, len(b.Frames[0]))
	}
}

func TestNewDatasetMissingAudio(t *testing.T) {
	dir := testCorpus(t, []string{"a|one", "missing|two"}, map[string]int{"a.wav": 640})
	if _, err := NewDataset(dir, mel.NewExtractor(params()), Options{}); err == nil || !strings.Contains(err.Error(), "record 1") {
		t.Errorf("expected record 1 failure, got %v", err)
	}
}

func TestNewDatasetNoManifest(t *testing.T) {
	_, err := NewDataset(t.TempDir(), mel.NewExtractor(params()), Options{})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestExpandExt(t *testing.T) {
	dir := testCorpus(t, []string{"a|one", "b|two"}, map[string]int{"a.WAV": 640, "b.WAV": 640})
	if _, err := NewDataset(dir, mel.NewExtractor(params()), Options{}); err == nil {
		t.Fatal("ids resolved without the corpus extension")
	}
	d, err := NewDataset(dir, mel.NewExtractor(params()), Options{ExpandExt: ".WAV"})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Mels) != 2 {
		t.Errorf("%d spectrograms", len(d.Mels))
	}
}

func TestSplit(t *testing.T) {
	d, err := LoadText(testCorpus(t, []string{"a|one", "b|two", "c|three", "d|four"}, nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		fraction    float64
		train, held int
	}{
		{0, 4, 0},
		{0.25, 3, 1},
		{0.01, 3, 1},
		{0.5, 2, 2},
		{0.99, 1, 3},
	} {
		train, held := d.Split(c.fraction)
		got := 0
		if held != nil {
			got = held.Len()
		}
		if train.Len() != c.train || got != c.held {
			t.Errorf("Split(%v) = %d/%d, want %d/%d", c.fraction, train.Len(), got, c.train, c.held)
		}
	}
	_, held := d.Split(0.25)
	if held.Records[0].Audio != "d" || held.Tokenizer != d.Tokenizer || held.Mels != nil {
		t.Errorf("held out %+v", held.Records)
	}
	one := &Dataset{Records: d.Records[:1], Texts: d.Texts[:1], Sequences: d.Sequences[:1]}
	if train, held := one.Split(0.5); held != nil || train.Len() != 1 {
		t.Error("single utterance split")
	}
}
