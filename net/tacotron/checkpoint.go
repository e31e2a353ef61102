package tacotron

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gorgonia.org/tensor"

	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/text"
)

// ErrBadCheckpoint is returned when a checkpoint cannot be decoded or is
// inconsistent.
var ErrBadCheckpoint = errors.New("bad checkpoint")

// StoredTensor is the serialized form of one parameter.
type StoredTensor struct {
	Shape []int     `msgpack:"shape"`
	Data  []float32 `msgpack:"data"`
}

// Checkpoint is everything needed to resume training or to synthesize.
type Checkpoint struct {
	RunID        string                  `msgpack:"run_id"`
	Created      time.Time               `msgpack:"created"`
	Config       Config                  `msgpack:"config"`
	Mel          mel.Params              `msgpack:"mel"`
	Standardized bool                    `msgpack:"standardized"` // trained on per utterance z-scored spectrograms
	Vocabulary   string                  `msgpack:"vocabulary"`
	Epoch        int                     `msgpack:"epoch"`
	LearningRate float64                 `msgpack:"learning_rate"`
	Loss         []float64               `msgpack:"loss"`
	Weights      map[string]StoredTensor `msgpack:"weights"`
}

// NewRunID returns a fresh identifier for a training run.
func NewRunID() string {
	return uuid.NewString()
}

// NewCheckpoint captures the model, its tokenizer and mel parameters.
func NewCheckpoint(runID string, m *Model, tok *text.Tokenizer, p mel.Params) *Checkpoint {
	c := &Checkpoint{
		RunID:      runID,
		Created:    time.Now().UTC(),
		Config:     m.cfg,
		Mel:        p,
		Vocabulary: string(tok.Vocabulary()),
		Weights:    make(map[string]StoredTensor, len(m.weights)),
	}
	for name, t := range m.weights {
		c.Weights[name] = StoredTensor{
			Shape: append([]int(nil), t.Shape()...),
			Data:  append([]float32(nil), t.Data().([]float32)...),
		}
	}
	return c
}

// Model restores the network stored in the checkpoint.
func (c *Checkpoint) Model() (*Model, error) {
	w := make(Weights, len(c.Weights))
	for name, st := range c.Weights {
		size := 1
		for _, d := range st.Shape {
			size *= d
		}
		if len(st.Shape) == 0 || size != len(st.Data) {
			return nil, fmt.Errorf("%w: parameter %s has %d values for shape %v", ErrBadCheckpoint, name, len(st.Data), st.Shape)
		}
		w[name] = tensor.New(tensor.WithShape(st.Shape...), tensor.WithBacking(append([]float32(nil), st.Data...)))
	}
	m, err := New(c.Config, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCheckpoint, err)
	}
	return m, nil
}

// Tokenizer restores the tokenizer stored in the checkpoint.
func (c *Checkpoint) Tokenizer() (*text.Tokenizer, error) {
	tok, err := text.TokenizerFromVocabulary([]rune(c.Vocabulary))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCheckpoint, err)
	}
	if tok.VocabSize() != c.Config.VocabSize {
		return nil, fmt.Errorf("%w: %w: tokenizer has %d ids, model %d", ErrBadCheckpoint, text.ErrVocabularyMismatch, tok.VocabSize(), c.Config.VocabSize)
	}
	return tok, nil
}

// SaveCheckpoint writes c to path as zstd compressed msgpack. The file is
// written next to path and renamed into place.
func SaveCheckpoint(path string, c *Checkpoint) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = writeCheckpoint(file, c)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeCheckpoint(file *os.File, c *Checkpoint) error {
	zw, err := zstd.NewWriter(file)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(c); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCheckpoint, err)
	}
	defer zr.Close()
	var c Checkpoint
	if err := msgpack.NewDecoder(zr).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadCheckpoint, path, err)
	}
	if err := c.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCheckpoint, err)
	}
	return &c, nil
}
