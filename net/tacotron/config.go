package tacotron

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid model configuration")

// Config holds the network dimensions.
type Config struct {
	VocabSize      int     `mapstructure:"vocab_size" msgpack:"vocab_size"`
	EmbeddingDim   int     `mapstructure:"embedding_dim" msgpack:"embedding_dim"`
	EncoderDim     int     `mapstructure:"encoder_dim" msgpack:"encoder_dim"`
	DecoderDim     int     `mapstructure:"decoder_dim" msgpack:"decoder_dim"`
	MelDim         int     `mapstructure:"mel_dim" msgpack:"mel_dim"`
	PreNetUnits    int     `mapstructure:"prenet_units" msgpack:"prenet_units"`
	PreNetDropout  float64 `mapstructure:"prenet_dropout" msgpack:"prenet_dropout"`
	PreNetChained  bool    `mapstructure:"prenet_chained" msgpack:"prenet_chained"`
	PostNetFilters int     `mapstructure:"postnet_filters" msgpack:"postnet_filters"`
	PostNetKernel  int     `mapstructure:"postnet_kernel" msgpack:"postnet_kernel"`
	PostNetLayers  int     `mapstructure:"postnet_layers" msgpack:"postnet_layers"`
	MaxTextLen     int     `mapstructure:"max_text_len" msgpack:"max_text_len"`
	MaxFrames      int     `mapstructure:"max_frames" msgpack:"max_frames"`

	// ShiftDecoderInput feeds frame t-1 (zeros for t = 0) as decoder input at
	// step t. When false the decoder sees the target frame of the same step.
	ShiftDecoderInput bool `mapstructure:"shift_decoder_input" msgpack:"shift_decoder_input"`
}

// DefaultConfig returns the reference dimensions for a vocabulary of size vocab,
// counting the padding id.
func DefaultConfig(vocab int) Config {
	return Config{
		VocabSize:      vocab,
		EmbeddingDim:   256,
		EncoderDim:     256,
		DecoderDim:     256,
		MelDim:         80,
		PreNetUnits:    128,
		PreNetDropout:  0.5,
		PostNetFilters: 512,
		PostNetKernel:  5,
		PostNetLayers:  5,
		MaxTextLen:     500,
		MaxFrames:      500,
	}
}

// Validate checks that every dimension is usable.
func (c Config) Validate() error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"vocab_size", c.VocabSize},
		{"embedding_dim", c.EmbeddingDim},
		{"encoder_dim", c.EncoderDim},
		{"decoder_dim", c.DecoderDim},
		{"mel_dim", c.MelDim},
		{"prenet_units", c.PreNetUnits},
		{"postnet_filters", c.PostNetFilters},
		{"postnet_kernel", c.PostNetKernel},
		{"max_text_len", c.MaxTextLen},
		{"max_frames", c.MaxFrames},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, d.name, d.value)
		}
	}
	if c.VocabSize < 2 {
		return fmt.Errorf("%w: vocabulary of %d has no symbols besides padding", ErrInvalidConfig, c.VocabSize)
	}
	if c.DecoderDim != c.EncoderDim {
		return fmt.Errorf("%w: decoder_dim %d must equal encoder_dim %d, the decoder starts from the encoder state", ErrInvalidConfig, c.DecoderDim, c.EncoderDim)
	}
	if c.PostNetKernel%2 == 0 {
		return fmt.Errorf("%w: postnet_kernel %d must be odd", ErrInvalidConfig, c.PostNetKernel)
	}
	if c.PostNetLayers < 0 {
		return fmt.Errorf("%w: postnet_layers %d is negative", ErrInvalidConfig, c.PostNetLayers)
	}
	if c.PreNetDropout < 0 || c.PreNetDropout >= 1 {
		return fmt.Errorf("%w: prenet_dropout %v out of [0,1)", ErrInvalidConfig, c.PreNetDropout)
	}
	return nil
}
