package mel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	fSp        = 200.0 / 3
	minLogHz   = 1000.0
	minLogMel  = minLogHz / fSp
	logStepMel = 0.06875177742094912 // ln(6.4) / 27
)

// HzToMel converts a frequency to the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz < minLogHz {
		return hz / fSp
	}
	return minLogMel + math.Log(hz/minLogHz)/logStepMel
}

// MelToHz is the inverse of HzToMel.
func MelToHz(m float64) float64 {
	if m < minLogMel {
		return m * fSp
	}
	return minLogHz * math.Exp(logStepMel*(m-minLogMel))
}

// FilterBank builds the NumMels x Bins triangular filter matrix with
// Slaney area normalization.
func FilterBank(p Params) *mat.Dense {
	bins := p.Bins()
	fb := mat.NewDense(p.NumMels, bins, nil)

	fftFreqs := make([]float64, bins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(p.SampleRate) / float64(p.NFFT)
	}

	lo, hi := HzToMel(p.FMin), HzToMel(p.fmax())
	melF := make([]float64, p.NumMels+2)
	for i := range melF {
		melF[i] = MelToHz(lo + (hi-lo)*float64(i)/float64(p.NumMels+1))
	}

	for m := 0; m < p.NumMels; m++ {
		lower, center, upper := melF[m], melF[m+1], melF[m+2]
		enorm := 2 / (upper - lower)
		for k, f := range fftFreqs {
			down := (f - lower) / (center - lower)
			up := (upper - f) / (upper - center)
			w := math.Max(0, math.Min(down, up))
			if w > 0 {
				fb.Set(m, k, w*enorm)
			}
		}
	}
	return fb
}

// pseudoInverse returns the Moore-Penrose inverse of a computed through SVD.
func pseudoInverse(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		t := mat.DenseCopyOf(a.T())
		return t
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	tol := 0.0
	if len(values) > 0 {
		tol = values[0] * float64(max(r, c)) * 2.220446049250313e-16
	}
	inv := mat.NewDense(c, r, nil)
	for j, s := range values {
		if s <= tol {
			continue
		}
		for i := 0; i < c; i++ {
			vij := v.At(i, j) / s
			if vij == 0 {
				continue
			}
			for k := 0; k < r; k++ {
				inv.Set(i, k, inv.At(i, k)+vij*u.At(k, j))
			}
		}
	}
	return inv
}
