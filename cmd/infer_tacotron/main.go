package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/neurlang/tacotron/audio"
	"github.com/neurlang/tacotron/config"
	"github.com/neurlang/tacotron/inference"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
	"github.com/neurlang/tacotron/plot"
)

var (
	configFile string
	model      string
	input      string
	out        string
	melplot    string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "infer_tacotron",
		Short:        "Synthesize a WAV file from text",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.Flags().StringVar(&model, "model", "tacotron.ckpt", "checkpoint file to read")
	rootCmd.Flags().StringVar(&input, "text", "", "text to speak")
	rootCmd.Flags().StringVar(&out, "out", "output.wav", "WAV file to write")
	rootCmd.Flags().StringVar(&melplot, "melplot", "", "write the predicted spectrogram to this PNG")
	rootCmd.Flags().Bool("autoregressive", false, "feed predicted frames back into the decoder")
	rootCmd.Flags().Bool("postnet", false, "invert the PostNet output instead of the decoder projection")
	rootCmd.Flags().Int("iterations", 0, "Griffin-Lim iterations (overrides config)")
	rootCmd.Flags().Int("max-frames", 0, "frames to predict (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "verbose logging")
	_ = rootCmd.MarkFlagRequired("text")
}

func execute(cmd *cobra.Command, args []string) error {
	v, err := config.New(configFile)
	if err != nil {
		return err
	}
	_ = v.BindPFlag("inference.autoregressive", cmd.Flags().Lookup("autoregressive"))
	_ = v.BindPFlag("inference.postnet", cmd.Flags().Lookup("postnet"))
	_ = v.BindPFlag("inference.iterations", cmd.Flags().Lookup("iterations"))
	_ = v.BindPFlag("inference.max_frames", cmd.Flags().Lookup("max-frames"))
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	cfg.ApplyLogLevel()
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	c, err := tacotron.LoadCheckpoint(model)
	if err != nil {
		return err
	}
	m, err := c.Model()
	if err != nil {
		return err
	}
	tok, err := c.Tokenizer()
	if err != nil {
		return err
	}
	log.Info("Loaded model", "path", model, "run", c.RunID, "epoch", c.Epoch, "standardized", c.Standardized)

	inv := mel.NewInverter(c.Mel, cfg.Inference.Iterations, cfg.Inference.Momentum, cfg.Inference.Seed)
	opts := cfg.Inference.Options
	opts.Standardized = c.Standardized
	s := inference.NewSynthesizer(m, tok, inv, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spec, err := s.Mel(ctx, input)
	if err != nil {
		return fmt.Errorf("synthesize %q: %w", input, err)
	}
	if melplot != "" {
		if err := plot.Spectrogram(spec, melplot); err != nil {
			return err
		}
		log.Info("Spectrogram plot written", "path", melplot)
	}
	if c.Standardized {
		return fmt.Errorf("%s: %w", model, inference.ErrStandardized)
	}
	samples := inv.Invert(spec)
	if err := audio.WriteWav(out, samples, c.Mel.SampleRate); err != nil {
		return err
	}
	log.Info("Wrote audio", "path", out, "seconds", float64(len(samples))/float64(c.Mel.SampleRate))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Inference failed", "err", err)
		os.Exit(1)
	}
}
