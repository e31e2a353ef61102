package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/neurlang/tacotron/config"
	"github.com/neurlang/tacotron/datasets"
	"github.com/neurlang/tacotron/datasets/ljspeech"
	"github.com/neurlang/tacotron/learning/cu"
	"github.com/neurlang/tacotron/mel"
	"github.com/neurlang/tacotron/net/tacotron"
	"github.com/neurlang/tacotron/parallel"
	"github.com/neurlang/tacotron/plot"
	"github.com/neurlang/tacotron/text"
	"github.com/neurlang/tacotron/trainer"
)

var (
	configFile      string
	dstmodel        string
	resume          bool
	lossplot        string
	debug           bool
	checkpointEvery int

	rootCmd = &cobra.Command{
		Use:          "train_tacotron",
		Short:        "Train a text to mel spectrogram model",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.Flags().String("data", "", "corpus directory containing list.txt")
	rootCmd.Flags().StringVar(&dstmodel, "dstmodel", "tacotron.ckpt", "checkpoint file to write")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "resume from the checkpoint in --dstmodel")
	rootCmd.Flags().Int("epochs", 0, "number of epochs (overrides config)")
	rootCmd.Flags().Int("batch", 0, "batch size (overrides config)")
	rootCmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", 10, "save a checkpoint every n epochs, 0 only at the end")
	rootCmd.Flags().Bool("best-only", false, "skip periodic checkpoints that do not improve the loss")
	rootCmd.Flags().Float64("validation-split", 0, "hold out this fraction of the corpus for validation")
	rootCmd.Flags().StringVar(&lossplot, "lossplot", "", "write the loss curve to this PNG")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log every step")
}

func execute(cmd *cobra.Command, args []string) error {
	v, err := config.New(configFile)
	if err != nil {
		return err
	}
	_ = v.BindPFlag("data.dir", cmd.Flags().Lookup("data"))
	_ = v.BindPFlag("training.epochs", cmd.Flags().Lookup("epochs"))
	_ = v.BindPFlag("training.batch_size", cmd.Flags().Lookup("batch"))
	_ = v.BindPFlag("data.best_only", cmd.Flags().Lookup("best-only"))
	_ = v.BindPFlag("data.validation_split", cmd.Flags().Lookup("validation-split"))
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	cfg.ApplyLogLevel()
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.Data.Dir == "" {
		return fmt.Errorf("no corpus: pass --data or set data.dir")
	}

	brand, avx2, avx512 := parallel.Describe()
	log.Info("Host", "cpu", brand, "cores", parallel.DefaultLimit(), "avx2", avx2, "avx512", avx512)
	if devices, err := cu.Devices(); err != nil {
		log.Warn("CUDA unavailable", "err", err)
	} else {
		for _, d := range devices {
			log.Info("CUDA device", "device", d.String())
		}
	}

	ckpt, err := trainer.Resume(resume, dstmodel)
	if err != nil {
		return err
	}
	params, standardize := cfg.Audio, cfg.Data.Standardize
	if ckpt != nil {
		params, standardize = ckpt.Mel, ckpt.Standardized
	}
	if err := params.Validate(); err != nil {
		return err
	}

	ds, err := ljspeech.LoadText(cfg.Data.Dir)
	if err != nil {
		return err
	}
	if ckpt != nil {
		tok, err := ckpt.Tokenizer()
		if err != nil {
			return err
		}
		ds.Tokenizer = tok
		ds.Sequences = text.EncodeAll(tok, ds.Texts)
	}
	log.Info("Loaded manifest", "dir", cfg.Data.Dir, "utterances", ds.Len(), "vocabulary", ds.Tokenizer.VocabSize())
	if err := ds.LoadAudio(mel.NewExtractor(params), ljspeech.Options{
		Workers:     cfg.Data.Workers,
		Standardize: standardize,
		ExpandExt:   cfg.Data.ExpandExt,
	}); err != nil {
		return err
	}
	longestFrames, longestText := ds.FrameStats()

	var model *tacotron.Model
	if ckpt != nil {
		model, err = ckpt.Model()
	} else {
		mc := cfg.Model
		mc.VocabSize = ds.Tokenizer.VocabSize()
		mc.MelDim = params.NumMels
		model, err = tacotron.New(mc, nil)
	}
	if err != nil {
		return err
	}
	if mc := model.Config(); longestFrames > mc.MaxFrames || longestText > mc.MaxTextLen {
		log.Warn("Corpus longer than the unrolled network, truncating", "frames", longestFrames, "max_frames", mc.MaxFrames, "text", longestText, "max_text_len", mc.MaxTextLen)
	}

	train, held := ds.Split(cfg.Data.ValidationSplit)
	gen, err := train.Generator(cfg.Training.BatchSize, model.Config().MaxTextLen, model.Config().MaxFrames)
	if err != nil {
		return err
	}
	var validation *datasets.Generator
	if held != nil {
		if validation, err = held.Generator(min(cfg.Training.BatchSize, held.Len()), model.Config().MaxTextLen, model.Config().MaxFrames); err != nil {
			return err
		}
		log.Info("Holding out validation utterances", "train", train.Len(), "validation", held.Len(), "significance", cfg.Data.Significance)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	history, err := trainer.Train(ctx, model, gen, cfg.Training, trainer.Options{
		Checkpoint:      dstmodel,
		CheckpointEvery: checkpointEvery,
		BestOnly:        cfg.Data.BestOnly,
		Tokenizer:       ds.Tokenizer,
		Mel:             params,
		Standardized:    standardize,
		Resume:          ckpt,
		Validation:      validation,
		Significance:    cfg.Data.Significance,
	})
	if errors.Is(err, context.Canceled) && history != nil {
		log.Warn("Interrupted, saving progress", "epochs", len(history.Loss))
		c := tacotron.NewCheckpoint(history.RunID, model, ds.Tokenizer, params)
		c.Epoch = len(history.Loss)
		c.Loss = history.Loss
		c.Standardized = standardize
		if n := len(history.LearningRate); n > 0 {
			c.LearningRate = history.LearningRate[n-1]
		}
		if serr := tacotron.SaveCheckpoint(dstmodel, c); serr != nil {
			return errors.Join(err, serr)
		}
	} else if err != nil {
		return err
	}

	if lossplot != "" && history != nil && len(history.Loss) > 0 {
		if err := plot.Loss(history.Loss, lossplot); err != nil {
			return err
		}
		log.Info("Loss plot written", "path", lossplot)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Training failed", "err", err)
		os.Exit(1)
	}
}
