package panel

import (
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/fcurrie/led-matrix-controller/pkg/rpi5matrix"
)

// BoundDriver adapts the teacher's rpi5matrix package — standing in for a
// real rpi-rgb-led-matrix Go binding — to the Driver contract. Swap only
// hands the canvas to the engine's own internally-owned refresh goroutine;
// the refresh rate itself is not exposed as a knob here, matching the Bound
// driver's "C-library binding" contract.
type BoundDriver struct {
	matrix *rpi5matrix.Matrix
	canvas *FrameBuffer
	rows, cols int

	swapped atomic.Bool
}

// NewBoundDriver starts the rpi5matrix engine and allocates a canvas.
func NewBoundDriver(cfg Config) (*BoundDriver, error) {
	mcfg := rpi5matrix.Config{
		Rows: cfg.Rows, Cols: cfg.Cols,
		PWMBits:           cfg.PWMBits,
		PWMLSBNanoseconds: cfg.PWMLSBNanoseconds,
		// The renderer already applies gamma and the effective brightness
		// percentage before writing into the canvas (internal/render), so
		// the engine's own brightness knob is left at full scale to avoid
		// double-applying it.
		Brightness:    100,
		InverseColors: cfg.InverseColors,
		NoHardwarePulse:   cfg.NoHardwarePulse,
		ShowRefresh:       cfg.ShowRefresh,
		ChipNumber:        cfg.ChipNumber,
		Pins: rpi5matrix.HUB75Pins{
			R1: cfg.Pins.R1, G1: cfg.Pins.G1, B1: cfg.Pins.B1,
			R2: cfg.Pins.R2, G2: cfg.Pins.G2, B2: cfg.Pins.B2,
			CLK: cfg.Pins.CLK, OE: cfg.Pins.OE, LAT: cfg.Pins.LAT,
			AddrPins: cfg.Pins.AddrPins,
		},
	}

	m, err := rpi5matrix.NewMatrix(mcfg)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to start bound engine: %w", err)
	}

	return &BoundDriver{
		matrix: m,
		canvas: NewFrameBuffer(cfg.Rows, cfg.Cols),
		rows:   cfg.Rows, cols: cfg.Cols,
	}, nil
}

// Canvas returns the buffer the renderer draws into.
func (b *BoundDriver) Canvas() *FrameBuffer {
	return b.canvas
}

// Swap copies every pixel from the canvas into the bound engine's own back
// buffer, then asks it to publish — the engine's internal refresh goroutine
// decides when it actually hits the wire.
func (b *BoundDriver) Swap() error {
	for y := 0; y < b.rows; y++ {
		for x := 0; x < b.cols; x++ {
			c := b.canvas.At(x, y)
			if err := b.matrix.SetPixel(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}); err != nil {
				return fmt.Errorf("panel: set pixel (%d,%d): %w", x, y, err)
			}
		}
	}
	if err := b.matrix.Show(); err != nil {
		return fmt.Errorf("panel: show: %w", err)
	}
	b.swapped.Store(true)
	return nil
}

// HasRendered reports whether Swap has completed at least once.
func (b *BoundDriver) HasRendered() bool {
	return b.swapped.Load()
}

// Close stops the bound engine.
func (b *BoundDriver) Close() error {
	return b.matrix.Close()
}
