package trainer

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"

	"github.com/neurlang/tacotron/net/tacotron"
)

// Resume loads the checkpoint at dstmodel when resume is set. A missing file
// starts a fresh run and yields nil.
func Resume(resume bool, dstmodel string) (*tacotron.Checkpoint, error) {
	if !resume || dstmodel == "" {
		return nil, nil
	}
	c, err := tacotron.LoadCheckpoint(dstmodel)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("No checkpoint to resume, starting fresh", "path", dstmodel)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("Resuming", "run", c.RunID, "epoch", c.Epoch, "lr", c.LearningRate)
	return c, nil
}
