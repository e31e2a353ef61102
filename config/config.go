// Package config loads run settings from files, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/neurlang/tacotron/inference"
	"github.com/neurlang/tacotron/learning"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. TACOTRON_TRAINING_EPOCHS.
const EnvPrefix = "TACOTRON"

// Config contains all settings of a training or synthesis run.
type Config struct {
	Data      DataConfig
	Audio     mel.Params
	Model     tacotron.Config // VocabSize is taken from the fitted tokenizer
	Training  learning.HyperParameters
	Inference InferenceConfig
	Log       LogConfig
}

// DataConfig locates the corpus and controls its preprocessing.
type DataConfig struct {
	Dir         string `mapstructure:"dir"`
	Workers     int    `mapstructure:"workers"` // 0 uses every logical core
	Standardize bool   `mapstructure:"standardize"`
	ExpandExt   string `mapstructure:"expand_ext"` // appended to manifest ids without an extension

	// ValidationSplit holds out the last fraction of the corpus. Zero
	// trains on everything.
	ValidationSplit float64 `mapstructure:"validation_split"`
	Significance    byte    `mapstructure:"significance"` // validation sample confidence, percent
	BestOnly        bool    `mapstructure:"best_only"`    // periodic checkpoints only on a new best loss
}

// InferenceConfig controls synthesis and waveform reconstruction.
type InferenceConfig struct {
	inference.Options `mapstructure:",squash"`

	Iterations int     `mapstructure:"iterations"` // Griffin-Lim iterations
	Momentum   float64 `mapstructure:"momentum"`
	Seed       int64   `mapstructure:"seed"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			ExpandExt:    ".wav",
			Significance: 95,
		},
		Audio:    mel.DefaultParams(),
		Model:    tacotron.DefaultConfig(0),
		Training: learning.Default(),
		Inference: InferenceConfig{
			Options:    inference.DefaultOptions(),
			Iterations: 32,
			Momentum:   0.99,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("%w: audio: %w", ErrInvalidConfig, err)
	}
	model := c.Model
	if model.VocabSize < 2 {
		model.VocabSize = 2
	}
	if err := model.Validate(); err != nil {
		return fmt.Errorf("%w: model: %w", ErrInvalidConfig, err)
	}
	if c.Model.MelDim != c.Audio.NumMels {
		return fmt.Errorf("%w: model.mel_dim %d differs from audio.num_mels %d", ErrInvalidConfig, c.Model.MelDim, c.Audio.NumMels)
	}
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("%w: training: %w", ErrInvalidConfig, err)
	}
	if c.Data.Workers < 0 {
		return fmt.Errorf("%w: data.workers %d", ErrInvalidConfig, c.Data.Workers)
	}
	if c.Data.ValidationSplit < 0 || c.Data.ValidationSplit >= 1 {
		return fmt.Errorf("%w: data.validation_split %v", ErrInvalidConfig, c.Data.ValidationSplit)
	}
	if c.Data.Significance == 0 || c.Data.Significance > 100 {
		return fmt.Errorf("%w: data.significance %d", ErrInvalidConfig, c.Data.Significance)
	}
	if c.Inference.MaxTextLen <= 0 || c.Inference.MaxFrames <= 0 {
		return fmt.Errorf("%w: inference lengths %d/%d", ErrInvalidConfig, c.Inference.MaxTextLen, c.Inference.MaxFrames)
	}
	if c.Inference.Iterations <= 0 || c.Inference.Momentum < 0 {
		return fmt.Errorf("%w: griffin-lim iterations %d momentum %v", ErrInvalidConfig, c.Inference.Iterations, c.Inference.Momentum)
	}
	if _, err := log.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyLogLevel sets the global logger level.
func (c Config) ApplyLogLevel() {
	if level, err := log.ParseLevel(strings.ToLower(c.Log.Level)); err == nil {
		log.SetLevel(level)
	}
}
