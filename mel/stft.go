package mel

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// stft holds the FFT plan and window of one goroutine. gonum FFT plans keep
// scratch space and must not be shared.
type stft struct {
	nfft, hop int
	window    []float64
	fft       *fourier.FFT
	frame     []float64
}

func newSTFT(nfft, hop int, window []float64) *stft {
	return &stft{
		nfft:   nfft,
		hop:    hop,
		window: window,
		fft:    fourier.NewFFT(nfft),
		frame:  make([]float64, nfft),
	}
}

// frames is the centred frame count for n samples.
func (s *stft) frames(n int) int {
	return 1 + n/s.hop
}

// forward returns frames x bins complex coefficients of the zero padded,
// centred signal y.
func (s *stft) forward(y []float64) [][]complex128 {
	pad := s.nfft / 2
	n := s.frames(len(y))
	out := make([][]complex128, n)
	for t := 0; t < n; t++ {
		start := t*s.hop - pad
		for i := range s.frame {
			j := start + i
			if j >= 0 && j < len(y) {
				s.frame[i] = y[j] * s.window[i]
			} else {
				s.frame[i] = 0
			}
		}
		out[t] = s.fft.Coefficients(nil, s.frame)
	}
	return out
}

// inverse overlap-adds the frames, normalizes by the squared window envelope
// and removes the centring pad. The result has exactly length samples.
func (s *stft) inverse(spec [][]complex128, length int) []float64 {
	pad := s.nfft / 2
	total := s.nfft + s.hop*(len(spec)-1)
	y := make([]float64, total)
	env := make([]float64, total)
	scale := 1 / float64(s.nfft)
	for t, coeffs := range spec {
		s.fft.Sequence(s.frame, coeffs)
		off := t * s.hop
		for i, v := range s.frame {
			y[off+i] += v * scale * s.window[i]
			env[off+i] += s.window[i] * s.window[i]
		}
	}
	out := make([]float64, length)
	for i := range out {
		j := i + pad
		if j >= total {
			break
		}
		if env[j] > 1e-11 {
			out[i] = y[j] / env[j]
		} else {
			out[i] = y[j]
		}
	}
	return out
}

// magnitude returns |c|.
func magnitude(c complex128) float64 {
	return cmplx.Abs(c)
}
