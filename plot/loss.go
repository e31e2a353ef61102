package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/fogleman/gg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("nothing to plot")

const (
	width, height = 800, 500
	margin        = 60
)

// Loss draws the per epoch loss as a line chart.
func Loss(history []float64, path string) error {
	if len(history) == 0 {
		return ErrNoData
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return fmt.Errorf("%w: no finite loss", ErrNoData)
	}
	if hi == lo {
		hi = lo + 1
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin, margin, height-margin)
	dc.DrawLine(margin, height-margin, width-margin, height-margin)
	dc.Stroke()

	dc.DrawStringAnchored("Training Loss", width/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored("Epoch", width/2, height-margin/3, 0.5, 0.5)
	dc.DrawStringAnchored("Loss", margin/3, height/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.4g", hi), margin-4, margin, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.4g", lo), margin-4, height-margin, 1, 0.5)
	dc.DrawStringAnchored("1", margin, height-margin+12, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprint(len(history)), width-margin, height-margin+12, 0.5, 0.5)

	x := func(i int) float64 {
		if len(history) == 1 {
			return width / 2
		}
		return margin + float64(i)*float64(width-2*margin)/float64(len(history)-1)
	}
	y := func(v float64) float64 {
		return height - margin - (v-lo)/(hi-lo)*float64(height-2*margin)
	}

	dc.SetRGB(0.12, 0.47, 0.71)
	dc.SetLineWidth(2)
	started := false
	for i, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			started = false
			continue
		}
		if started {
			dc.LineTo(x(i), y(v))
		} else {
			dc.MoveTo(x(i), y(v))
			started = true
		}
	}
	dc.Stroke()
	if len(history) == 1 {
		dc.DrawCircle(x(0), y(history[0]), 3)
		dc.Fill()
	}
	return dc.SavePNG(path)
}
