package ljspeech

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/neurlang/tacotron/audio"
	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/parallel"
	"github.com/neurlang/tacotron/text"
)

// Options tune corpus assembly.
type Options struct {
	Workers     int    // feature extraction goroutines, 0 means one per logical core
	Standardize bool   // per band zero mean, unit variance spectrograms
	ExpandExt   string // appended to manifest ids without an extension, ".wav" when empty
}

// Dataset is a fully prepared corpus.
type Dataset struct {
	Dir       string
	Records   []datasets.Record
	Texts     []string // normalized transcripts
	Sequences [][]int
	Mels      []*mel.Spectrogram
	Tokenizer *text.Tokenizer
}

// Len is the number of utterances.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Generator wraps the dataset in a cyclic batch generator.
func (d *Dataset) Generator(batchSize, maxTextLen, maxFrames int) (*datasets.Generator, error) {
	return datasets.NewGenerator(d.Sequences, d.Mels, batchSize, maxTextLen, maxFrames)
}

// LoadText reads the manifest, normalizes the transcripts and fits a fresh
// tokenizer over them. Audio is not touched.
func LoadText(dir string) (*Dataset, error) {
	records, err := datasets.LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	texts := text.NormalizeAll(datasets.Transcripts(records))
	tok := text.NewTokenizer()
	tok.Fit(texts)
	return &Dataset{
		Dir:       dir,
		Records:   records,
		Texts:     texts,
		Sequences: text.EncodeAll(tok, texts),
		Tokenizer: tok,
	}, nil
}

// LoadAudio computes the spectrogram of every record. The first failing
// file aborts loading.
func (d *Dataset) LoadAudio(ex *mel.Extractor, opts Options) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = parallel.DefaultLimit()
	}
	rate := ex.Params().SampleRate
	mels := make([]*mel.Spectrogram, len(d.Records))
	start := time.Now()
	err := parallel.ForEachErr(len(d.Records), workers, func(i int) error {
		path := datasets.AudioPath(d.Dir, d.Records[i], opts.ExpandExt)
		samples, err := audio.Load(path, rate)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		s := ex.Compute(samples)
		if opts.Standardize {
			s.Standardize()
		}
		mels[i] = s
		return nil
	})
	if err != nil {
		return err
	}
	d.Mels = mels
	log.Info("Computed spectrograms", "utterances", len(mels), "workers", workers, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// NewDataset is LoadText followed by LoadAudio.
func NewDataset(dir string, ex *mel.Extractor, opts Options) (*Dataset, error) {
	d, err := LoadText(dir)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded manifest", "dir", dir, "utterances", d.Len(), "vocabulary", d.Tokenizer.VocabSize())
	if err := d.LoadAudio(ex, opts); err != nil {
		return nil, err
	}
	return d, nil
}

// Split holds out the last fraction of the utterances. Both parts share the
// tokenizer and the spectrograms. A positive fraction holds out at least one
// utterance and keeps at least one for training; held is nil when the
// corpus is too small or fraction is not positive.
func (d *Dataset) Split(fraction float64) (train, held *Dataset) {
	n := d.Len()
	if fraction <= 0 || n < 2 {
		return d, nil
	}
	k := min(max(int(math.Round(float64(n)*fraction)), 1), n-1)
	return d.slice(0, n-k), d.slice(n-k, n)
}

func (d *Dataset) slice(from, to int) *Dataset {
	out := &Dataset{
		Dir:       d.Dir,
		Records:   d.Records[from:to:to],
		Texts:     d.Texts[from:to:to],
		Sequences: d.Sequences[from:to:to],
		Tokenizer: d.Tokenizer,
	}
	if d.Mels != nil {
		out.Mels = d.Mels[from:to:to]
	}
	return out
}

// FrameStats returns the longest spectrogram and the longest sequence, handy
// for choosing MaxFrames and MaxTextLen.
func (d *Dataset) FrameStats() (maxFrames, maxText int) {
	for _, m := range d.Mels {
		maxFrames = max(maxFrames, m.Frames)
	}
	for _, s := range d.Sequences {
		maxText = max(maxText, len(s))
	}
	return
}
