package mel

import "math"

// Spectrogram is a frame-major Frames x Bands matrix of log-power values in dB.
type Spectrogram struct {
	Frames int
	Bands  int
	Data   []float32
}

// NewSpectrogram allocates a zeroed spectrogram.
func NewSpectrogram(frames, bands int) *Spectrogram {
	return &Spectrogram{Frames: frames, Bands: bands, Data: make([]float32, frames*bands)}
}

// At returns the value of band b in frame f.
func (s *Spectrogram) At(f, b int) float32 {
	return s.Data[f*s.Bands+b]
}

// Set stores v at frame f, band b.
func (s *Spectrogram) Set(f, b int, v float32) {
	s.Data[f*s.Bands+b] = v
}

// Frame returns the bands of frame f, sharing storage with s.
func (s *Spectrogram) Frame(f int) []float32 {
	return s.Data[f*s.Bands : (f+1)*s.Bands]
}

// Max returns the largest value, or -Inf for an empty spectrogram.
func (s *Spectrogram) Max() float32 {
	m := float32(math.Inf(-1))
	for _, v := range s.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Standardize rescales every band to zero mean and unit variance over time.
// Bands with zero variance are only centred.
func (s *Spectrogram) Standardize() {
	if s.Frames == 0 {
		return
	}
	for b := 0; b < s.Bands; b++ {
		var mean float64
		for f := 0; f < s.Frames; f++ {
			mean += float64(s.At(f, b))
		}
		mean /= float64(s.Frames)
		var variance float64
		for f := 0; f < s.Frames; f++ {
			d := float64(s.At(f, b)) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(s.Frames))
		for f := 0; f < s.Frames; f++ {
			v := float64(s.At(f, b)) - mean
			if std > 0 {
				v /= std
			}
			s.Set(f, b, float32(v))
		}
	}
}
