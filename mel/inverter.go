package mel

import (
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Inverter reconstructs waveforms from mel spectrograms.
type Inverter struct {
	params     Params
	pinv       *mat.Dense // Bins x NumMels
	window     []float64
	Iterations int
	Momentum   float64
	Seed       int64
}

// NewInverter prepares a Griffin-Lim inverter. Non-positive iterations
// default to 32.
func NewInverter(p Params, iterations int, momentum float64, seed int64) *Inverter {
	if iterations <= 0 {
		iterations = 32
	}
	return &Inverter{
		params:     p,
		pinv:       pseudoInverse(FilterBank(p)),
		window:     hann(p.NFFT),
		Iterations: iterations,
		Momentum:   momentum,
		Seed:       seed,
	}
}

// Magnitude maps a dB mel spectrogram to a frames x bins linear magnitude.
// The filterbank pseudo-inverse can produce negative power, which is clipped.
func (inv *Inverter) Magnitude(s *Spectrogram) [][]float64 {
	melPower := mat.NewDense(s.Bands, s.Frames, nil)
	for t := 0; t < s.Frames; t++ {
		for b := 0; b < s.Bands; b++ {
			melPower.Set(b, t, DBToPower(float64(s.At(t, b))))
		}
	}
	var linear mat.Dense
	linear.Mul(inv.pinv, melPower)

	bins := inv.params.Bins()
	out := make([][]float64, s.Frames)
	for t := range out {
		out[t] = make([]float64, bins)
		for k := 0; k < bins; k++ {
			out[t][k] = math.Sqrt(math.Max(0, linear.At(k, t)))
		}
	}
	return out
}

// Invert runs fast Griffin-Lim on the magnitude of s and returns
// HopLength*(Frames-1) samples.
func (inv *Inverter) Invert(s *Spectrogram) []float64 {
	if s.Frames == 0 || s.Bands != inv.params.NumMels {
		return nil
	}
	mag := inv.Magnitude(s)
	length := inv.params.HopLength * (s.Frames - 1)
	st := newSTFT(inv.params.NFFT, inv.params.HopLength, inv.window)
	rng := rand.New(rand.NewSource(inv.Seed))

	bins := inv.params.Bins()
	angles := make([][]complex128, s.Frames)
	for t := range angles {
		angles[t] = make([]complex128, bins)
		for k := range angles[t] {
			angles[t][k] = cmplx.Rect(1, 2*math.Pi*rng.Float64())
		}
	}
	apply := func() [][]complex128 {
		spec := make([][]complex128, s.Frames)
		for t := range spec {
			spec[t] = make([]complex128, bins)
			for k := range spec[t] {
				spec[t][k] = complex(mag[t][k], 0) * angles[t][k]
			}
		}
		return spec
	}

	var prev [][]complex128
	accel := inv.Momentum / (1 + inv.Momentum)
	for i := 0; i < inv.Iterations; i++ {
		rebuilt := st.forward(st.inverse(apply(), length))
		for t := range angles {
			if t >= len(rebuilt) {
				break
			}
			for k := range angles[t] {
				a := rebuilt[t][k]
				if prev != nil {
					a -= complex(accel, 0) * prev[t][k]
				}
				angles[t][k] = a / complex(cmplx.Abs(a)+1e-16, 0)
			}
		}
		prev = rebuilt
	}
	return st.inverse(apply(), length)
}

// Params returns the transform parameters the inverter was built for.
func (inv *Inverter) Params() Params {
	return inv.params
}
