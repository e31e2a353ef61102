package datasets

import "github.com/neurlang/tacotron/mel"

// PadSequence right-pads seq with fill to exactly maxLen ids. Longer
// sequences keep their last maxLen ids.
func PadSequence(seq []int, maxLen, fill int) []int {
	if maxLen < 0 {
		maxLen = 0
	}
	if len(seq) > maxLen {
		seq = seq[len(seq)-maxLen:]
	}
	out := make([]int, maxLen)
	n := copy(out, seq)
	for i := n; i < maxLen; i++ {
		out[i] = fill
	}
	return out
}

// PadFrames returns maxFrames x bands values of s, frame-major, zero filled
// after the last frame. Longer spectrograms keep their last maxFrames
// frames, the same way PadSequence truncates. A nil spectrogram yields all
// zeros.
func PadFrames(s *mel.Spectrogram, maxFrames, bands int) []float32 {
	out := make([]float32, maxFrames*bands)
	if s == nil {
		return out
	}
	skip := max(s.Frames-maxFrames, 0)
	frames := s.Frames - skip
	w := min(s.Bands, bands)
	for f := 0; f < frames; f++ {
		copy(out[f*bands:f*bands+w], s.Frame(skip + f)[:w])
	}
	return out
}
