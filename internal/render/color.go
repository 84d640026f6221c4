package render

import (
	"math"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// gamma is the exponent used to build gammaLUT, matching spec.md §4.2/§6's
// "γ ≈ 2.2" requirement.
const gamma = 2.2

// gammaLUT is a 256-entry lookup table mapping a linear 0-255 channel value
// to its gamma-corrected 0-255 value. Building it is hand-rolled standard
// math (~15 lines): no package in the retrieval pack implements display
// gamma correction more directly than this, so pulling one in would be the
// stdlib outlier here, not the other way around.
var gammaLUT = buildGammaLUT(gamma)

func buildGammaLUT(g float64) [256]uint8 {
	var lut [256]uint8
	for i := 0; i < 256; i++ {
		normalized := float64(i) / 255.0
		corrected := math.Pow(normalized, g)
		lut[i] = uint8(corrected*255.0 + 0.5)
	}
	return lut
}

// ApplyGammaAndBrightness transforms a linear 0-255 channel value by the
// gamma LUT and the effective brightness percentage (0-100), per spec.md
// §4.2's "out = gamma_lut[c] * effective_brightness / 100". If inverse is
// set, the result is inverted after gamma+brightness, matching the Bound
// driver's inverse_colors knob.
func ApplyGammaAndBrightness(c uint8, effectiveBrightness int, inverse bool) uint8 {
	out := uint8(int(gammaLUT[c]) * Clamp100(effectiveBrightness) / 100)
	if inverse {
		out = 255 - out
	}
	return out
}

// Clamp100 clamps v to [0, 100].
func Clamp100(v int) int {
	return model.Clamp(v, 0, 100)
}

// HSVToRGB converts a hue/saturation/value triplet (each in [0,1]) to an RGB
// Color with 0-255 channels. Used by the Rainbow border effect.
func HSVToRGB(h, s, v float64) model.Color {
	if s <= 0 {
		gray := uint8(v*255 + 0.5)
		return model.Color{R: gray, G: gray, B: gray}
	}
	h = mod1(h) * 6
	i := int(h)
	f := h - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return model.Color{
		R: uint8(r*255 + 0.5),
		G: uint8(g*255 + 0.5),
		B: uint8(b*255 + 0.5),
	}
}

// mod1 wraps x into [0, 1).
func mod1(x float64) float64 {
	x = x - float64(int(x))
	if x < 0 {
		x += 1
	}
	return x
}

// LerpColor linearly interpolates between a and b at t in [0,1].
func LerpColor(a, b model.Color, t float64) model.Color {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return model.Color{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B)}
}
