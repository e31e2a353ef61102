package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/neurlang/tacotron/mel"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := writeManifest(t, "LJ001-0001|Printing, in the only sense.\n"+
		"broken line without separator\n"+
		"\n"+
		"a|b|c\n"+
		"  LJ001-0002.wav|in being comparatively modern.  \n")
	got, err := LoadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{"LJ001-0001", "Printing, in the only sense."},
		{"LJ001-0002.wav", "in being comparatively modern."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadManifest = %#v", got)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestAudioPath(t *testing.T) {
	if got := AudioPath("corpus", Record{Audio: "LJ001-0001"}, ""); got != filepath.Join("corpus", "LJ001-0001.wav") {
		t.Errorf("AudioPath = %s", got)
	}
	if got := AudioPath("corpus", Record{Audio: "LJ001-0001"}, ".WAV"); got != filepath.Join("corpus", "LJ001-0001.WAV") {
		t.Errorf("AudioPath = %s", got)
	}
	if got := AudioPath("corpus", Record{Audio: "a.flac"}, ".wav"); got != filepath.Join("corpus", "a.flac") {
		t.Errorf("AudioPath = %s", got)
	}
}

func TestPadSequence(t *testing.T) {
	for _, tc := range []struct {
		in   []int
		max  int
		want []int
	}{
		{[]int{1, 2}, 5, []int{1, 2, 0, 0, 0}},
		{[]int{1, 2, 3}, 3, []int{1, 2, 3}},
		{[]int{1, 2, 3, 4}, 2, []int{3, 4}},
		{[]int{1, 2, 3, 4}, 0, []int{}},
		{nil, 2, []int{0, 0}},
	} {
		if got := PadSequence(tc.in, tc.max, 0); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("PadSequence(%v, %d) = %v", tc.in, tc.max, got)
		}
	}
	if got := PadSequence([]int{4}, 3, 9); !reflect.DeepEqual(got, []int{4, 9, 9}) {
		t.Errorf("custom fill: %v", got)
	}
}

func TestPadFrames(t *testing.T) {
	s := mel.NewSpectrogram(3, 2)
	for i := range s.Data {
		s.Data[i] = float32(i + 1)
	}
	if got := PadFrames(s, 4, 2); !reflect.DeepEqual(got, []float32{1, 2, 3, 4, 5, 6, 0, 0}) {
		t.Errorf("padded = %v", got)
	}
	if got := PadFrames(s, 2, 2); !reflect.DeepEqual(got, []float32{3, 4, 5, 6}) {
		t.Errorf("truncated = %v", got)
	}
	if got := PadFrames(s, 2, 1); !reflect.DeepEqual(got, []float32{3, 5}) {
		t.Errorf("narrowed = %v", got)
	}
}

func corpus(n int) ([][]int, []*mel.Spectrogram) {
	seqs := make([][]int, n)
	mels := make([]*mel.Spectrogram, n)
	for i := range seqs {
		seqs[i] = []int{i + 1}
		mels[i] = mel.NewSpectrogram(1, 2)
		mels[i].Data[0] = float32(i + 1)
	}
	return seqs, mels
}

func TestGeneratorOffsets(t *testing.T) {
	for _, tc := range []struct{ n, b int }{{10, 3}, {9, 3}, {1, 4}, {7, 1}} {
		seqs, mels := corpus(tc.n)
		g, err := NewGenerator(seqs, mels, tc.b, 4, 2)
		if err != nil {
			t.Fatal(err)
		}
		steps := (tc.n + tc.b - 1) / tc.b
		if g.StepsPerEpoch() != steps {
			t.Errorf("n=%d b=%d: steps %d, want %d", tc.n, tc.b, g.StepsPerEpoch(), steps)
		}
		seen := map[int]bool{}
		for i := 0; i < steps; i++ {
			off := g.Offset()
			if seen[off] {
				t.Errorf("n=%d b=%d: offset %d repeated before wrap", tc.n, tc.b, off)
			}
			seen[off] = true
			g.Next()
		}
		if g.Offset() != 0 {
			t.Errorf("n=%d b=%d: expected wrap to 0, got %d", tc.n, tc.b, g.Offset())
		}
	}
}

func TestGeneratorPartialBatch(t *testing.T) {
	seqs, mels := corpus(5)
	g, err := NewGenerator(seqs, mels, 3, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	first := g.Next()
	if first.Size != 3 || !reflect.DeepEqual(first.Tokens[2], []int{3, 0}) {
		t.Errorf("first batch = %+v", first)
	}
	last := g.Next()
	if last.Size != 2 || len(last.Tokens) != 3 {
		t.Fatalf("last batch size %d rows %d", last.Size, len(last.Tokens))
	}
	if !reflect.DeepEqual(last.Tokens[2], []int{0, 0}) || !reflect.DeepEqual(last.Frames[2], []float32{0, 0, 0, 0}) {
		t.Errorf("missing row should be padding: %v %v", last.Tokens[2], last.Frames[2])
	}
	if last.Frames[0][0] != 4 {
		t.Errorf("frames of record 3 = %v", last.Frames[0])
	}
	if again := g.Next(); again.Tokens[0][0] != 1 {
		t.Errorf("generator should wrap to record 0, got %v", again.Tokens[0])
	}
}

func TestGeneratorErrors(t *testing.T) {
	seqs, mels := corpus(3)
	if _, err := NewGenerator(seqs, mels[:2], 2, 2, 2); !errors.Is(err, ErrBadBatchConfig) {
		t.Errorf("length mismatch: %v", err)
	}
	if _, err := NewGenerator(seqs, mels, 0, 2, 2); !errors.Is(err, ErrBadBatchConfig) {
		t.Errorf("zero batch: %v", err)
	}
	if _, err := NewGenerator(nil, nil, 2, 2, 2); !errors.Is(err, ErrBadBatchConfig) {
		t.Errorf("empty corpus: %v", err)
	}
	mels[1] = mel.NewSpectrogram(1, 3)
	if _, err := NewGenerator(seqs, mels, 2, 2, 2); !errors.Is(err, ErrBadBatchConfig) {
		t.Errorf("band mismatch: %v", err)
	}
}
