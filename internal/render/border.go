package render

import (
	"math"
	"math/rand"

	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

// rainbowPeriod, pulsePeriod, gradientSpeed and sparkleDecay are the timing
// constants spec.md §4.2 names but leaves unspecified; chosen to read
// clearly on a small panel and recorded as an Open Question decision.
const (
	rainbowPeriod      = 4.0  // seconds for one full hue rotation
	pulsePeriod        = 2.0  // seconds for one cycle through all pulse colors
	gradientSpeed      = 0.1  // perimeter fractions per second
	sparkleFraction    = 0.05 // fraction of perimeter lit per frame
	sparkleDecaySecs   = 0.1  // ~100ms decay to zero brightness
	sparkleTickSeconds = 1.0 / 60.0
)

// perimeterPoint is one pixel of the panel's one-pixel outer ring.
type perimeterPoint struct{ x, y int }

// perimeter walks the outer ring of a rows x cols rectangle clockwise from
// the top-left corner.
func perimeter(rows, cols int) []perimeterPoint {
	if rows < 2 || cols < 2 {
		pts := make([]perimeterPoint, 0, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				pts = append(pts, perimeterPoint{x, y})
			}
		}
		return pts
	}

	pts := make([]perimeterPoint, 0, 2*(rows+cols)-4)
	for x := 0; x < cols; x++ {
		pts = append(pts, perimeterPoint{x, 0})
	}
	for y := 1; y < rows; y++ {
		pts = append(pts, perimeterPoint{cols - 1, y})
	}
	for x := cols - 2; x >= 0; x-- {
		pts = append(pts, perimeterPoint{x, rows - 1})
	}
	for y := rows - 2; y >= 1; y-- {
		pts = append(pts, perimeterPoint{0, y})
	}
	return pts
}

// borderState holds the sparkle effect's per-pixel decaying brightness,
// persisted across ticks so lit pixels fade rather than blink.
type borderState struct {
	points    []perimeterPoint
	sparkle   []float64
	rng       *rand.Rand
	lastT     float64
	haveLastT bool
}

func newBorderState(rows, cols int) *borderState {
	pts := perimeter(rows, cols)
	return &borderState{
		points:  pts,
		sparkle: make([]float64, len(pts)),
		rng:     rand.New(rand.NewSource(1)),
	}
}

// overlay paints the border effect onto fb's outer ring at time t (seconds
// since the item started).
func (b *borderState) overlay(fb *panel.FrameBuffer, effect model.BorderEffect, base model.Color, t float64) {
	n := len(b.points)
	if n == 0 {
		return
	}

	dt := sparkleTickSeconds
	if b.haveLastT {
		dt = t - b.lastT
		if dt < 0 {
			dt = 0
		}
	}
	b.lastT = t
	b.haveLastT = true

	switch effect.Kind {
	case model.BorderRainbow:
		for i, p := range b.points {
			hue := math.Mod(float64(i)/float64(n)+t/rainbowPeriod, 1)
			fb.SetPixel(p.x, p.y, HSVToRGB(hue, 1, 1))
		}
	case model.BorderPulse:
		colors := effect.Colors
		if len(colors) == 0 {
			colors = []model.Color{base}
		}
		phase := math.Mod(t, pulsePeriod) / pulsePeriod
		idx := int(phase * float64(len(colors)))
		if idx >= len(colors) {
			idx = len(colors) - 1
		}
		c := colors[idx]
		for i, p := range b.points {
			frac := float64(i) / float64(n)
			triangle := 1 - 2*math.Abs(frac-0.5)
			fb.SetPixel(p.x, p.y, scaleColor(c, triangle))
		}
	case model.BorderGradient:
		colors := effect.Colors
		if len(colors) == 0 {
			colors = []model.Color{base}
		}
		for i, p := range b.points {
			fb.SetPixel(p.x, p.y, gradientColor(colors, float64(i)/float64(n), t))
		}
	case model.BorderSparkle:
		colors := effect.Colors
		if len(colors) == 0 {
			colors = []model.Color{base}
		}
		decay := dt / sparkleDecaySecs
		for i := range b.sparkle {
			b.sparkle[i] -= decay
			if b.sparkle[i] < 0 {
				b.sparkle[i] = 0
			}
		}
		toLight := int(sparkleFraction * float64(n))
		for k := 0; k < toLight; k++ {
			i := b.rng.Intn(n)
			b.sparkle[i] = 1
		}
		for i, p := range b.points {
			if b.sparkle[i] <= 0 {
				continue
			}
			c := colors[b.rng.Intn(len(colors))]
			fb.SetPixel(p.x, p.y, scaleColor(c, b.sparkle[i]))
		}
	}
}

func scaleColor(c model.Color, f float64) model.Color {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	scale := func(v uint8) uint8 { return uint8(float64(v) * f) }
	return model.Color{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

// gradientColor linearly interpolates colors around the perimeter at
// position frac in [0,1), rotating by t*gradientSpeed.
func gradientColor(colors []model.Color, frac, t float64) model.Color {
	if len(colors) == 1 {
		return colors[0]
	}
	frac = mod1(frac + t*gradientSpeed)
	segLen := 1.0 / float64(len(colors))
	segIdx := int(frac / segLen)
	if segIdx >= len(colors) {
		segIdx = len(colors) - 1
	}
	next := (segIdx + 1) % len(colors)
	localT := (frac - float64(segIdx)*segLen) / segLen
	return LerpColor(colors[segIdx], colors[next], localT)
}
