package trainer

// History is the per epoch record of a run. Index i is epoch i, including
// epochs restored from a checkpoint.
type History struct {
	RunID        string
	Loss         []float64 // mean training step loss
	LearningRate []float64 // rate in effect during the epoch
	Validation   []float64 // sampled validation loss, empty without a validation generator
}

// Best returns the epoch with the lowest training loss, or -1.
func (h *History) Best() int {
	return argmin(h.Loss)
}

// BestValidation returns the epoch with the lowest validation loss, or -1.
func (h *History) BestValidation() int {
	return argmin(h.Validation)
}

func argmin(values []float64) int {
	best := -1
	for i, l := range values {
		if best < 0 || l < values[best] {
			best = i
		}
	}
	return best
}
