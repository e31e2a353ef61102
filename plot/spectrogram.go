package plot

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/neurlang/tacotron/mel"
)

// scale is the pixel size of one spectrogram cell.
const scale = 4

// stops approximate the viridis colormap.
var stops = [][3]float64{
	{0.267, 0.005, 0.329},
	{0.229, 0.322, 0.546},
	{0.128, 0.567, 0.551},
	{0.369, 0.789, 0.383},
	{0.993, 0.906, 0.144},
}

func colormap(v float64) (r, g, b float64) {
	v = math.Max(0, math.Min(1, v))
	pos := v * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		c := stops[len(stops)-1]
		return c[0], c[1], c[2]
	}
	f := pos - float64(i)
	a, c := stops[i], stops[i+1]
	return a[0] + f*(c[0]-a[0]), a[1] + f*(c[1]-a[1]), a[2] + f*(c[2]-a[2])
}

// Spectrogram draws s as a heat map with time to the right and the lowest
// band at the bottom.
func Spectrogram(s *mel.Spectrogram, path string) error {
	if s == nil || s.Frames == 0 || s.Bands == 0 {
		return ErrNoData
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range s.Data {
		lo, hi = math.Min(lo, float64(v)), math.Max(hi, float64(v))
	}
	if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: non finite values", ErrNoData)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	dc := gg.NewContext(s.Frames*scale, s.Bands*scale)
	for f := 0; f < s.Frames; f++ {
		for b := 0; b < s.Bands; b++ {
			dc.SetRGB(colormap((float64(s.At(f, b)) - lo) / span))
			dc.DrawRectangle(float64(f*scale), float64((s.Bands-1-b)*scale), scale, scale)
			dc.Fill()
		}
	}
	return dc.SavePNG(path)
}
