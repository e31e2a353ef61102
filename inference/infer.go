// Package inference synthesizes mel spectrograms and speech from text
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"gorgonia.org/gorgonia"

	"github.com/neurlang/tacotron/audio"
	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
	"github.com/neurlang/tacotron/text"
)

// ErrEmptyText is returned when no character of the input is in the vocabulary.
var ErrEmptyText = errors.New("no known characters in text")

// ErrStandardized is returned when a waveform is requested from a model
// trained on standardized spectrograms. Their per utterance statistics are
// not kept, so the output cannot be mapped back to decibels.
var ErrStandardized = errors.New("model predicts standardized spectrograms")

// Options shape a synthesis pass.
type Options struct {
	MaxTextLen int `mapstructure:"max_text_len"` // encoder steps, longer input is truncated
	MaxFrames  int `mapstructure:"max_frames"`   // decoder steps, the output length

	// Autoregressive runs one pass per frame and feeds every predicted frame
	// back as decoder input. Otherwise the decoder input is all zeros.
	Autoregressive bool `mapstructure:"autoregressive"`

	// PostNet returns the PostNet refined frames instead of the decoder
	// projection.
	PostNet bool `mapstructure:"postnet"`

	// Standardized is copied from the checkpoint. Speak refuses such models.
	Standardized bool `mapstructure:"-"`
}

// DefaultOptions returns 100 encoder and decoder steps with zero decoder input.
func DefaultOptions() Options {
	return Options{MaxTextLen: 100, MaxFrames: 100}
}

// Synthesizer turns text into spectrograms and waveforms. It is not safe
// for concurrent use.
type Synthesizer struct {
	model *tacotron.Model
	tok   *text.Tokenizer
	inv   *mel.Inverter
	opts  Options

	g *tacotron.Graph
}

// NewSynthesizer creates a synthesizer. Zero lengths in opts take the defaults.
func NewSynthesizer(m *tacotron.Model, tok *text.Tokenizer, inv *mel.Inverter, opts Options) *Synthesizer {
	def := DefaultOptions()
	if opts.MaxTextLen <= 0 {
		opts.MaxTextLen = def.MaxTextLen
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = def.MaxFrames
	}
	return &Synthesizer{model: m, tok: tok, inv: inv, opts: opts}
}

func (s *Synthesizer) graph() (*tacotron.Graph, error) {
	if s.g != nil {
		return s.g, nil
	}
	if s.tok.VocabSize() != s.model.Config().VocabSize {
		return nil, fmt.Errorf("%w: tokenizer has %d ids, model %d", text.ErrVocabularyMismatch, s.tok.VocabSize(), s.model.Config().VocabSize)
	}
	m, err := s.model.Resized(s.opts.MaxTextLen, s.opts.MaxFrames)
	if err != nil {
		return nil, err
	}
	if s.opts.Autoregressive && !m.Config().ShiftDecoderInput {
		log.Warn("Autoregressive synthesis with a model trained on unshifted decoder input")
	}
	if s.g, err = m.Build(1, false); err != nil {
		return nil, err
	}
	return s.g, nil
}

// Tokens returns the padded encoder input for input.
func (s *Synthesizer) Tokens(input string) ([]int, error) {
	ids := s.tok.Encode(text.Normalize(input))
	if len(ids) == 0 {
		return nil, ErrEmptyText
	}
	if len(ids) > s.opts.MaxTextLen {
		log.Warn("Text truncated", "tokens", len(ids), "max", s.opts.MaxTextLen)
	}
	return datasets.PadSequence(ids, s.opts.MaxTextLen, text.Pad), nil
}

func (s *Synthesizer) output(g *tacotron.Graph) ([]*mel.Spectrogram, error) {
	if s.opts.PostNet {
		return g.PostNetOutputs()
	}
	return g.MelOutputs()
}

// Mel predicts the spectrogram of input, MaxFrames long. It is the decoder
// projection unless Options.PostNet is set. Autoregressive passes always
// feed back projected frames.
func (s *Synthesizer) Mel(ctx context.Context, input string) (*mel.Spectrogram, error) {
	tokens, err := s.Tokens(input)
	if err != nil {
		return nil, err
	}
	g, err := s.graph()
	if err != nil {
		return nil, err
	}
	vm := gorgonia.NewTapeMachine(g.ExprGraph())
	defer vm.Close()

	if !s.opts.Autoregressive {
		return s.pass(ctx, g, vm, tokens, nil, func() ([]*mel.Spectrogram, error) { return s.output(g) })
	}

	M := s.model.Config().MelDim
	shift := s.model.Config().ShiftDecoderInput
	frames := make([]float32, s.opts.MaxFrames*M)
	var out *mel.Spectrogram
	for t := 0; t < s.opts.MaxFrames; t++ {
		var pred *mel.Spectrogram
		out, err = s.pass(ctx, g, vm, tokens, frames, func() ([]*mel.Spectrogram, error) {
			melOut, err := g.MelOutputs()
			if err != nil {
				return nil, err
			}
			pred = melOut[0]
			if !s.opts.PostNet {
				return melOut, nil
			}
			return g.PostNetOutputs()
		})
		if err != nil {
			return nil, err
		}
		dst := t
		if !shift {
			dst = t + 1
		}
		if dst < s.opts.MaxFrames {
			copy(frames[dst*M:(dst+1)*M], pred.Frame(t))
		}
	}
	return out, nil
}

func (s *Synthesizer) pass(ctx context.Context, g *tacotron.Graph, vm gorgonia.VM, tokens []int, frames []float32, read func() ([]*mel.Spectrogram, error)) (*mel.Spectrogram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer vm.Reset()
	var rows [][]float32
	if frames != nil {
		rows = [][]float32{frames}
	}
	if err := g.LetInputs([][]int{tokens}, rows); err != nil {
		return nil, err
	}
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	out, err := read()
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Speak synthesizes input and writes it as a 16-bit WAV file.
func (s *Synthesizer) Speak(ctx context.Context, input, wavPath string) error {
	if s.opts.Standardized {
		return ErrStandardized
	}
	spec, err := s.Mel(ctx, input)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := s.inv.Invert(spec)
	log.Debug("Inverted", "frames", spec.Frames, "samples", len(samples))
	return audio.WriteWav(wavPath, samples, s.inv.Params().SampleRate)
}
