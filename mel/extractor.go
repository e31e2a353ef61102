package mel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const amin = 1e-10

// Extractor turns waveforms into log-power mel spectrograms. It is safe for
// concurrent use.
type Extractor struct {
	params Params
	bank   *mat.Dense
	window []float64
}

// NewExtractor precomputes the filterbank and window for p.
func NewExtractor(p Params) *Extractor {
	return &Extractor{
		params: p,
		bank:   FilterBank(p),
		window: hann(p.NFFT),
	}
}

// Params returns the parameters the extractor was built with.
func (e *Extractor) Params() Params {
	return e.params
}

// Compute returns the mel spectrogram of samples in dB relative to its maximum.
func (e *Extractor) Compute(samples []float64) *Spectrogram {
	st := newSTFT(e.params.NFFT, e.params.HopLength, e.window)
	spec := st.forward(samples)

	bins := e.params.Bins()
	power := mat.NewDense(bins, len(spec), nil)
	for t, coeffs := range spec {
		for k := 0; k < bins; k++ {
			m := magnitude(coeffs[k])
			power.Set(k, t, m*m)
		}
	}

	var melPower mat.Dense
	melPower.Mul(e.bank, power)

	raw := make([]float64, e.params.NumMels*len(spec))
	out := NewSpectrogram(len(spec), e.params.NumMels)
	for t := 0; t < out.Frames; t++ {
		for b := 0; b < out.Bands; b++ {
			raw[t*out.Bands+b] = melPower.At(b, t)
		}
	}
	for i, v := range PowerToDB(raw, e.params.TopDB) {
		out.Data[i] = float32(v)
	}
	return out
}

// PowerToDB converts power values to decibels relative to their maximum.
// Values below max-topDB are raised to that floor unless topDB is zero.
func PowerToDB(power []float64, topDB float64) []float64 {
	ref := amin
	for _, v := range power {
		if v > ref {
			ref = v
		}
	}
	refDB := 10 * math.Log10(ref)
	out := make([]float64, len(power))
	peak := math.Inf(-1)
	for i, v := range power {
		out[i] = 10*math.Log10(math.Max(amin, v)) - refDB
		if out[i] > peak {
			peak = out[i]
		}
	}
	if topDB > 0 {
		for i := range out {
			if out[i] < peak-topDB {
				out[i] = peak - topDB
			}
		}
	}
	return out
}

// DBToPower inverts PowerToDB with a reference power of one.
func DBToPower(db float64) float64 {
	return math.Pow(10, db/10)
}
