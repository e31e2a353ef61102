package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`
data:
  dir: /corpus
  workers: 3
  validation_split: 0.1
  best_only: true
training:
  epochs: 7
  batch_size: 4
audio:
  num_mels: 40
inference:
  autoregressive: true
  postnet: true
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Dir != "/corpus" || cfg.Data.Workers != 3 || cfg.Data.ValidationSplit != 0.1 || !cfg.Data.BestOnly || cfg.Data.ExpandExt != ".wav" {
		t.Errorf("data %+v", cfg.Data)
	}
	if cfg.Training.Epochs != 7 || cfg.Training.BatchSize != 4 || cfg.Training.LearningRate != 1e-3 {
		t.Errorf("training %+v", cfg.Training)
	}
	if cfg.Audio.NumMels != 40 || cfg.Model.MelDim != 40 {
		t.Errorf("mels %d/%d", cfg.Audio.NumMels, cfg.Model.MelDim)
	}
	if !cfg.Inference.Autoregressive || !cfg.Inference.PostNet || cfg.Inference.MaxTextLen != 100 {
		t.Errorf("inference %+v", cfg.Inference)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log %+v", cfg.Log)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TACOTRON_TRAINING_EPOCHS", "11")
	t.Setenv("TACOTRON_MODEL_PRENET_CHAINED", "true")
	t.Setenv("TACOTRON_DATA_EXPAND_EXT", ".flac")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Training.Epochs != 11 || !cfg.Model.PreNetChained {
		t.Errorf("epochs %d chained %v", cfg.Training.Epochs, cfg.Model.PreNetChained)
	}
	if cfg.Data.ExpandExt != ".flac" {
		t.Errorf("expand ext %q", cfg.Data.ExpandExt)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("TACOTRON_TRAINING_BATCH_SIZE", "0")
	if _, err := Load(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidateMelMismatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.MelDim = 64
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
	cfg = DefaultConfig()
	cfg.Data.ValidationSplit = 1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("whole corpus held out: %v", err)
	}
	cfg = DefaultConfig()
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
}
