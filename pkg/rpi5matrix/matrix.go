package rpi5matrix

import (
	"fmt"
	"image/color"
	"math"
)

// Matrix is a thin, coordinate-checked facade over RGBMatrix, mirroring the
// teacher's split between a low-level RGBMatrix and a higher Matrix type.
// Unlike the teacher's version, pixel addressing here is plain row-major:
// HUB75 panels are natively addressed by row and column, so the serpentine
// remap the teacher inherited from WS2811 addressable-strip wiring does not
// apply and has been dropped.
type Matrix struct {
	width, height int
	matrix        *RGBMatrix
}

// NewMatrix builds the bound engine and wraps it.
func NewMatrix(cfg Config) (*Matrix, error) {
	m, err := NewRGBMatrix(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create RGB matrix: %v", err)
	}
	return &Matrix{width: cfg.Cols, height: cfg.Rows, matrix: m}, nil
}

// Close releases the underlying engine.
func (m *Matrix) Close() error {
	return m.matrix.Close()
}

// Clear fills the back buffer with black.
func (m *Matrix) Clear() error {
	return m.matrix.Clear()
}

// SetPixel sets a pixel at (x, y) to c.
func (m *Matrix) SetPixel(x, y int, c color.Color) error {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return fmt.Errorf("coordinates out of bounds: (%d, %d)", x, y)
	}
	return m.matrix.SetPixel(x, y, c)
}

// SetPixelHSV sets a pixel using an HSV triplet (h in [0,1), s and v in
// [0,1]), replacing the teacher's hsvToRGB stub (which always returned
// black) with real HSV math.
func (m *Matrix) SetPixelHSV(x, y int, h, s, v float64) error {
	return m.SetPixel(x, y, hsvToRGB(h, s, v))
}

// Show publishes the back buffer to the engine's refresh loop.
func (m *Matrix) Show() error {
	return m.matrix.Show()
}

// Fill fills the entire matrix with c.
func (m *Matrix) Fill(c color.Color) error {
	return m.matrix.Fill(c)
}

// SetBrightness sets the 0-100 brightness applied by the refresh loop.
func (m *Matrix) SetBrightness(brightness int) error {
	return m.matrix.SetBrightness(brightness)
}

// GetBrightness returns the current brightness.
func (m *Matrix) GetBrightness() int {
	return m.matrix.GetBrightness()
}

// GetDimensions returns the panel's (width, height) in pixels.
func (m *Matrix) GetDimensions() (width, height int) {
	return m.width, m.height
}

// hsvToRGB converts an HSV triplet to an 8-bit RGB color.Color.
func hsvToRGB(h, s, v float64) color.Color {
	h = h - math.Floor(h)
	if s <= 0 {
		gray := uint8(v*255 + 0.5)
		return color.RGBA{gray, gray, gray, 255}
	}

	h *= 6
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
	return color.RGBA{
		R: uint8(r*255 + 0.5),
		G: uint8(g*255 + 0.5),
		B: uint8(b*255 + 0.5),
		A: 255,
	}
}
