package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/neurlang/tacotron/learning"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
)

// New returns a viper instance reading path, when not empty, and the
// TACOTRON_ environment. Keys are dotted, e.g. training.batch_size.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads path and the environment into a validated Config.
func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper overlays every key set in v on DefaultConfig.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	// Data settings
	if v.IsSet("data.dir") {
		cfg.Data.Dir = v.GetString("data.dir")
	}
	if v.IsSet("data.workers") {
		cfg.Data.Workers = v.GetInt("data.workers")
	}
	if v.IsSet("data.standardize") {
		cfg.Data.Standardize = v.GetBool("data.standardize")
	}
	if v.IsSet("data.expand_ext") {
		cfg.Data.ExpandExt = v.GetString("data.expand_ext")
	}
	if v.IsSet("data.validation_split") {
		cfg.Data.ValidationSplit = v.GetFloat64("data.validation_split")
	}
	if v.IsSet("data.significance") {
		cfg.Data.Significance = byte(v.GetUint("data.significance"))
	}
	if v.IsSet("data.best_only") {
		cfg.Data.BestOnly = v.GetBool("data.best_only")
	}

	cfg.Audio = loadAudio(v, cfg)
	cfg.Model = loadModel(v, cfg)
	cfg.Training = loadTraining(v, cfg)
	cfg.Inference = loadInference(v, cfg)

	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadAudio loads the mel transform parameters from Viper.
func loadAudio(v *viper.Viper, cfg Config) mel.Params {
	p := cfg.Audio

	if v.IsSet("audio.sample_rate") {
		p.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.n_fft") {
		p.NFFT = v.GetInt("audio.n_fft")
	}
	if v.IsSet("audio.hop_length") {
		p.HopLength = v.GetInt("audio.hop_length")
	}
	if v.IsSet("audio.num_mels") {
		p.NumMels = v.GetInt("audio.num_mels")
	}
	if v.IsSet("audio.fmin") {
		p.FMin = v.GetFloat64("audio.fmin")
	}
	if v.IsSet("audio.fmax") {
		p.FMax = v.GetFloat64("audio.fmax")
	}
	if v.IsSet("audio.top_db") {
		p.TopDB = v.GetFloat64("audio.top_db")
	}

	return p
}

// loadModel loads the network dimensions from Viper.
func loadModel(v *viper.Viper, cfg Config) tacotron.Config {
	m := cfg.Model

	if v.IsSet("model.embedding_dim") {
		m.EmbeddingDim = v.GetInt("model.embedding_dim")
	}
	if v.IsSet("model.encoder_dim") {
		m.EncoderDim = v.GetInt("model.encoder_dim")
	}
	if v.IsSet("model.decoder_dim") {
		m.DecoderDim = v.GetInt("model.decoder_dim")
	}
	if v.IsSet("model.mel_dim") {
		m.MelDim = v.GetInt("model.mel_dim")
	} else if v.IsSet("audio.num_mels") {
		m.MelDim = v.GetInt("audio.num_mels")
	}
	if v.IsSet("model.prenet_units") {
		m.PreNetUnits = v.GetInt("model.prenet_units")
	}
	if v.IsSet("model.prenet_dropout") {
		m.PreNetDropout = v.GetFloat64("model.prenet_dropout")
	}
	if v.IsSet("model.prenet_chained") {
		m.PreNetChained = v.GetBool("model.prenet_chained")
	}
	if v.IsSet("model.postnet_filters") {
		m.PostNetFilters = v.GetInt("model.postnet_filters")
	}
	if v.IsSet("model.postnet_kernel") {
		m.PostNetKernel = v.GetInt("model.postnet_kernel")
	}
	if v.IsSet("model.postnet_layers") {
		m.PostNetLayers = v.GetInt("model.postnet_layers")
	}
	if v.IsSet("model.max_text_len") {
		m.MaxTextLen = v.GetInt("model.max_text_len")
	}
	if v.IsSet("model.max_frames") {
		m.MaxFrames = v.GetInt("model.max_frames")
	}
	if v.IsSet("model.shift_decoder_input") {
		m.ShiftDecoderInput = v.GetBool("model.shift_decoder_input")
	}

	return m
}

// loadTraining loads the optimizer settings from Viper.
func loadTraining(v *viper.Viper, cfg Config) learning.HyperParameters {
	h := cfg.Training

	if v.IsSet("training.learning_rate") {
		h.LearningRate = v.GetFloat64("training.learning_rate")
	}
	if v.IsSet("training.epochs") {
		h.Epochs = v.GetInt("training.epochs")
	}
	if v.IsSet("training.batch_size") {
		h.BatchSize = v.GetInt("training.batch_size")
	}
	if v.IsSet("training.decay_after") {
		h.DecayAfter = v.GetInt("training.decay_after")
	}
	if v.IsSet("training.decay_rate") {
		h.DecayRate = v.GetFloat64("training.decay_rate")
	}
	if v.IsSet("training.clip") {
		h.Clip = v.GetFloat64("training.clip")
	}

	return h
}

// loadInference loads synthesis settings from Viper.
func loadInference(v *viper.Viper, cfg Config) InferenceConfig {
	i := cfg.Inference

	if v.IsSet("inference.max_text_len") {
		i.MaxTextLen = v.GetInt("inference.max_text_len")
	}
	if v.IsSet("inference.max_frames") {
		i.MaxFrames = v.GetInt("inference.max_frames")
	}
	if v.IsSet("inference.autoregressive") {
		i.Autoregressive = v.GetBool("inference.autoregressive")
	}
	if v.IsSet("inference.postnet") {
		i.PostNet = v.GetBool("inference.postnet")
	}
	if v.IsSet("inference.iterations") {
		i.Iterations = v.GetInt("inference.iterations")
	}
	if v.IsSet("inference.momentum") {
		i.Momentum = v.GetFloat64("inference.momentum")
	}
	if v.IsSet("inference.seed") {
		i.Seed = v.GetInt64("inference.seed")
	}

	return i
}

// SetDefaults registers every default so that environment overrides of
// unset keys are visible to Viper.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.workers", d.Data.Workers)
	v.SetDefault("data.standardize", d.Data.Standardize)
	v.SetDefault("data.expand_ext", d.Data.ExpandExt)
	v.SetDefault("data.validation_split", d.Data.ValidationSplit)
	v.SetDefault("data.significance", d.Data.Significance)
	v.SetDefault("data.best_only", d.Data.BestOnly)

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.n_fft", d.Audio.NFFT)
	v.SetDefault("audio.hop_length", d.Audio.HopLength)
	v.SetDefault("audio.num_mels", d.Audio.NumMels)
	v.SetDefault("audio.fmin", d.Audio.FMin)
	v.SetDefault("audio.fmax", d.Audio.FMax)
	v.SetDefault("audio.top_db", d.Audio.TopDB)

	v.SetDefault("model.embedding_dim", d.Model.EmbeddingDim)
	v.SetDefault("model.encoder_dim", d.Model.EncoderDim)
	v.SetDefault("model.decoder_dim", d.Model.DecoderDim)
	v.SetDefault("model.prenet_units", d.Model.PreNetUnits)
	v.SetDefault("model.prenet_dropout", d.Model.PreNetDropout)
	v.SetDefault("model.prenet_chained", d.Model.PreNetChained)
	v.SetDefault("model.postnet_filters", d.Model.PostNetFilters)
	v.SetDefault("model.postnet_kernel", d.Model.PostNetKernel)
	v.SetDefault("model.postnet_layers", d.Model.PostNetLayers)
	v.SetDefault("model.max_text_len", d.Model.MaxTextLen)
	v.SetDefault("model.max_frames", d.Model.MaxFrames)
	v.SetDefault("model.shift_decoder_input", d.Model.ShiftDecoderInput)

	v.SetDefault("training.learning_rate", d.Training.LearningRate)
	v.SetDefault("training.epochs", d.Training.Epochs)
	v.SetDefault("training.batch_size", d.Training.BatchSize)
	v.SetDefault("training.decay_after", d.Training.DecayAfter)
	v.SetDefault("training.decay_rate", d.Training.DecayRate)
	v.SetDefault("training.clip", d.Training.Clip)

	v.SetDefault("inference.max_text_len", d.Inference.MaxTextLen)
	v.SetDefault("inference.max_frames", d.Inference.MaxFrames)
	v.SetDefault("inference.autoregressive", d.Inference.Autoregressive)
	v.SetDefault("inference.postnet", d.Inference.PostNet)
	v.SetDefault("inference.iterations", d.Inference.Iterations)
	v.SetDefault("inference.momentum", d.Inference.Momentum)
	v.SetDefault("inference.seed", d.Inference.Seed)

	v.SetDefault("log.level", d.Log.Level)
}
