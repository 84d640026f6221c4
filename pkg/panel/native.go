package panel

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// NativeDriver bit-bangs a HUB75 ribbon directly through gpiocdev, one
// gpiocdev.Line per signal, exactly as cmd/hub75-gpio/main.go's
// HUB75Controller/RenderFrame did for a single fixed 32x8 panel — generalized
// here to Config's rows/cols/chain/parallel geometry and extended from
// simple on/off pixels to full binary-code-modulation.
type NativeDriver struct {
	cfg  Config
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines map[int]*gpiocdev.Line

	front, back *FrameBuffer

	firstSwap bool
}

// NewNativeDriver opens the configured GPIO chip and requests every HUB75
// signal line as an output, matching NewHUB75Controller's "request all
// lines up front, clean up on any failure" behavior.
func NewNativeDriver(cfg Config) (*NativeDriver, error) {
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("panel: invalid dimensions %dx%d", cfg.Rows, cfg.Cols)
	}
	if len(cfg.Pins.AddrPins) == 0 {
		return nil, fmt.Errorf("panel: at least one row-address pin is required")
	}

	chip, err := gpiocdev.NewChip(cfg.ChipNumber)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to open GPIO chip %s: %w", cfg.ChipNumber, err)
	}

	d := &NativeDriver{
		cfg:       cfg,
		chip:      chip,
		lines:     make(map[int]*gpiocdev.Line),
		front:     NewFrameBuffer(cfg.Rows, cfg.Cols),
		back:      NewFrameBuffer(cfg.Rows, cfg.Cols),
		firstSwap: true,
	}

	for _, pin := range d.allPins() {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("panel: failed to request GPIO line %d: %w", pin, err)
		}
		d.lines[pin] = line
	}

	return d, nil
}

func (d *NativeDriver) allPins() []int {
	p := d.cfg.Pins
	pins := []int{p.R1, p.G1, p.B1, p.R2, p.G2, p.B2, p.CLK, p.OE, p.LAT}
	return append(pins, p.AddrPins...)
}

// Canvas returns the back buffer to draw the next frame into.
func (d *NativeDriver) Canvas() *FrameBuffer {
	return d.back
}

// Swap publishes the back buffer and bit-bangs one complete
// binary-code-modulation pass out to the panel before returning, matching
// RenderFrame's synchronous, blocking-per-frame behavior.
func (d *NativeDriver) Swap() error {
	d.mu.Lock()
	d.front.CopyFrom(d.back)
	d.mu.Unlock()

	pwmBits := d.cfg.PWMBits
	if pwmBits <= 0 {
		pwmBits = 11
	}

	rowsPerScan := d.front.Rows
	halfRows := rowsPerScan
	if rowsPerScan > 1 {
		// Matching the teacher's top-half/bottom-half HUB75 wiring: R1/G1/B1
		// drive rows 0..halfRows-1 while R2/G2/B2 drive the mirrored bottom
		// half simultaneously, so only half the rows are scanned per pass.
		halfRows = rowsPerScan / 2
		if halfRows == 0 {
			halfRows = rowsPerScan
		}
	}

	frameStart := time.Now()
	for row := 0; row < halfRows; row++ {
		for plane := 0; plane < pwmBits; plane++ {
			pulse := time.Duration(d.cfg.PWMLSBNanoseconds<<uint(plane)) * time.Nanosecond
			if err := d.renderRowPlane(row, halfRows, plane, pulse); err != nil {
				return err
			}
		}
	}

	if d.cfg.RefreshRateCap > 0 {
		target := time.Second / time.Duration(d.cfg.RefreshRateCap)
		if elapsed := time.Since(frameStart); elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	d.firstSwap = false
	return nil
}

// HasRendered reports whether at least one Swap has completed, backing the
// HTTP API's /healthz readiness check.
func (d *NativeDriver) HasRendered() bool {
	return !d.firstSwap
}

func (d *NativeDriver) renderRowPlane(row, halfRows, plane int, pulse time.Duration) error {
	if err := d.setPin(d.cfg.Pins.OE, 1); err != nil {
		return err
	}
	for bit, pin := range d.cfg.Pins.AddrPins {
		if err := d.setPin(pin, (row>>uint(bit))&1); err != nil {
			return err
		}
	}

	d.mu.Lock()
	for col := 0; col < d.front.Cols; col++ {
		top := applyColor(d.front.At(col, row), d.cfg.InverseColors, plane)
		bottomRow := row + halfRows
		bottom := top
		if bottomRow < d.front.Rows {
			bottom = applyColor(d.front.At(col, bottomRow), d.cfg.InverseColors, plane)
		}

		if err := d.setPin(d.cfg.Pins.R1, int(top.R)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.G1, int(top.G)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.B1, int(top.B)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.R2, int(bottom.R)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.G2, int(bottom.G)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.B2, int(bottom.B)); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.CLK, 1); err != nil {
			d.mu.Unlock()
			return err
		}
		if err := d.setPin(d.cfg.Pins.CLK, 0); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	d.mu.Unlock()

	if err := d.setPin(d.cfg.Pins.LAT, 1); err != nil {
		return err
	}
	if err := d.setPin(d.cfg.Pins.LAT, 0); err != nil {
		return err
	}
	if err := d.setPin(d.cfg.Pins.OE, 0); err != nil {
		return err
	}
	time.Sleep(pulse)
	return d.setPin(d.cfg.Pins.OE, 1)
}

// applyColor extracts plane's bit from c's channels (after optional
// inversion), returning 0/1 values per channel ready for setPin.
func applyColor(c model.Color, inverse bool, plane int) model.Color {
	r, g, b := c.R, c.G, c.B
	if inverse {
		r, g, b = 255-r, 255-g, 255-b
	}
	bit := func(v uint8) uint8 {
		if (v>>uint(plane))&1 != 0 {
			return 1
		}
		return 0
	}
	return model.Color{R: bit(r), G: bit(g), B: bit(b)}
}

func (d *NativeDriver) setPin(pin, value int) error {
	line, ok := d.lines[pin]
	if !ok {
		return fmt.Errorf("panel: pin %d not configured", pin)
	}
	return line.SetValue(value)
}

// Close releases every GPIO line and the chip handle.
func (d *NativeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for pin, line := range d.lines {
		if line != nil {
			if err := line.Close(); err != nil {
				return fmt.Errorf("panel: failed to close line %d: %w", pin, err)
			}
		}
	}
	d.lines = make(map[int]*gpiocdev.Line)

	if d.chip != nil {
		d.chip.Close()
		d.chip = nil
	}
	return nil
}
