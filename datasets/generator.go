package datasets

import (
	"errors"
	"fmt"

	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/text"
)

// ErrBadBatchConfig is returned by NewGenerator for inconsistent inputs.
var ErrBadBatchConfig = errors.New("bad batch configuration")

// Batch is one padded training window. Tokens has BatchSize rows of
// MaxTextLen ids, Frames has BatchSize rows of MaxFrames x Bands values.
// Rows at and after Size are padding.
type Batch struct {
	Size   int
	Tokens [][]int
	Frames [][]float32
}

// Generator cycles over a corpus in contiguous fixed size windows, forever.
type Generator struct {
	seqs       [][]int
	mels       []*mel.Spectrogram
	batchSize  int
	maxTextLen int
	maxFrames  int
	bands      int
	offset     int
}

// NewGenerator creates a generator over aligned sequences and spectrograms.
func NewGenerator(seqs [][]int, mels []*mel.Spectrogram, batchSize, maxTextLen, maxFrames int) (*Generator, error) {
	if len(seqs) != len(mels) {
		return nil, fmt.Errorf("%w: %d sequences but %d spectrograms", ErrBadBatchConfig, len(seqs), len(mels))
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrBadBatchConfig)
	}
	if batchSize <= 0 || maxTextLen <= 0 || maxFrames <= 0 {
		return nil, fmt.Errorf("%w: batch %d, text %d, frames %d", ErrBadBatchConfig, batchSize, maxTextLen, maxFrames)
	}
	bands := 0
	for i, m := range mels {
		if m == nil {
			return nil, fmt.Errorf("%w: missing spectrogram %d", ErrBadBatchConfig, i)
		}
		if bands == 0 {
			bands = m.Bands
		} else if m.Bands != bands {
			return nil, fmt.Errorf("%w: spectrogram %d has %d bands, want %d", ErrBadBatchConfig, i, m.Bands, bands)
		}
	}
	return &Generator{
		seqs:       seqs,
		mels:       mels,
		batchSize:  batchSize,
		maxTextLen: maxTextLen,
		maxFrames:  maxFrames,
		bands:      bands,
	}, nil
}

// StepsPerEpoch is the number of windows before the generator wraps around.
func (g *Generator) StepsPerEpoch() int {
	return (len(g.seqs) + g.batchSize - 1) / g.batchSize
}

// Offset returns the first record index of the next batch.
func (g *Generator) Offset() int {
	return g.offset
}

// Bands is the spectrogram height shared by every record.
func (g *Generator) Bands() int {
	return g.bands
}

// BatchSize is the static number of rows of every batch.
func (g *Generator) BatchSize() int {
	return g.batchSize
}

// Next returns the window starting at Offset and advances, wrapping to the
// start of the corpus after the last window.
func (g *Generator) Next() Batch {
	start := g.offset
	end := min(start+g.batchSize, len(g.seqs))
	b := Batch{
		Size:   end - start,
		Tokens: make([][]int, g.batchSize),
		Frames: make([][]float32, g.batchSize),
	}
	for row := 0; row < g.batchSize; row++ {
		i := start + row
		if i < end {
			b.Tokens[row] = PadSequence(g.seqs[i], g.maxTextLen, text.Pad)
			b.Frames[row] = PadFrames(g.mels[i], g.maxFrames, g.bands)
		} else {
			b.Tokens[row] = PadSequence(nil, g.maxTextLen, text.Pad)
			b.Frames[row] = PadFrames(nil, g.maxFrames, g.bands)
		}
	}
	g.offset = end
	if g.offset >= len(g.seqs) {
		g.offset = 0
	}
	return b
}
