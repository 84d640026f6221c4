// Package panel defines the frame buffer contract shared by the Native and
// Bound panel driver variants: a renderer fills a FrameBuffer and calls
// Swap, without knowing which hardware path is underneath.
package panel

import "github.com/fcurrie/led-matrix-controller/internal/model"

// FrameBuffer is a row-major pixel grid the renderer draws into.
type FrameBuffer struct {
	Rows, Cols int
	pixels     []model.Color
}

// NewFrameBuffer allocates a black rows x cols frame.
func NewFrameBuffer(rows, cols int) *FrameBuffer {
	return &FrameBuffer{Rows: rows, Cols: cols, pixels: make([]model.Color, rows*cols)}
}

// SetPixel writes c at (x, y); out-of-bounds coordinates are ignored.
func (fb *FrameBuffer) SetPixel(x, y int, c model.Color) {
	if x < 0 || x >= fb.Cols || y < 0 || y >= fb.Rows {
		return
	}
	fb.pixels[y*fb.Cols+x] = c
}

// At returns the pixel at (x, y), or black if out of bounds.
func (fb *FrameBuffer) At(x, y int) model.Color {
	if x < 0 || x >= fb.Cols || y < 0 || y >= fb.Rows {
		return model.Color{}
	}
	return fb.pixels[y*fb.Cols+x]
}

// Clear sets every pixel back to black.
func (fb *FrameBuffer) Clear() {
	for i := range fb.pixels {
		fb.pixels[i] = model.Color{}
	}
}

// CopyFrom overwrites fb's pixels with src's, panicking if dimensions differ
// (a programmer error: the engine always allocates canvases from the same
// Config).
func (fb *FrameBuffer) CopyFrom(src *FrameBuffer) {
	if fb.Rows != src.Rows || fb.Cols != src.Cols {
		panic("panel: frame buffer dimension mismatch")
	}
	copy(fb.pixels, src.pixels)
}

// Driver is the common contract both panel variants satisfy: the renderer
// draws into the buffer Canvas returns, then calls Swap to publish it.
type Driver interface {
	// Canvas returns the back buffer the caller should draw the next frame
	// into. The returned pointer is stable across calls until the next Swap.
	Canvas() *FrameBuffer
	// Swap publishes the canvas to the display. For the Native driver this
	// blocks until one binary-code-modulation pass has been bit-banged out;
	// for the Bound driver it only hands the buffer to the engine's own
	// refresh goroutine, per spec.md §4.1's "no separately tunable refresh
	// rate" constraint.
	Swap() error
	// Close releases the underlying GPIO/PIO resources.
	Close() error
}

// Config is the hardware configuration shared by both driver variants,
// assembled from internal/config.Config.
type Config struct {
	Rows, Cols        int
	ChainLength       int
	Parallel          int
	PWMBits           int
	PWMLSBNanoseconds int
	DitherBits        int
	GPIOSlowdown      int
	RowSetter         string
	LEDSequence       string
	Multiplexing      int
	PixelMapperChain  string
	HardwareMapping   string
	RefreshRateCap    int
	Interlaced        bool
	InverseColors     bool
	NoHardwarePulse   bool
	ShowRefresh       bool
	ChipNumber        string
	Pins              HUB75Pins
}

// HUB75Pins is the GPIO line assignment driving the panel, shared between
// the Native driver (bit-banged directly) and the Bound driver (handed to
// the internally-owned rpi5matrix engine).
type HUB75Pins struct {
	R1, G1, B1   int
	R2, G2, B2   int
	CLK, OE, LAT int
	// AddrPins holds the row-address lines in LSB-first order (A, B, C, ...).
	AddrPins []int
}
