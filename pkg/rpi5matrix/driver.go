// Package rpi5matrix is the Bound panel driver's internal engine: the part
// of this module standing in for what a compiled external HUB75 matrix
// library (e.g. rpi-rgb-led-matrix's Go binding) would provide. Once
// started it owns its own refresh goroutine; callers only get a pixel
// buffer and a Show/swap call, matching the "no separately tunable refresh
// rate" constraint of spec.md §4.1's Bound driver contract. Internally it
// is built from the teacher's own pkg/pio (RP1 PIO state-machine emulation)
// and the HUB75 bit-banging program grounded on cmd/hub75-gpio/main.go's
// RenderFrame.
package rpi5matrix

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/fcurrie/led-matrix-controller/pkg/pio"
)

// internalRefreshHz is the fixed rate the bound engine refreshes the panel
// at; unlike the Native driver, this is not exposed as a config knob, since
// a real library binding would own its own timing.
const internalRefreshHz = 120

// Config configures the bound engine.
type Config struct {
	Rows, Cols        int
	PWMBits           int
	PWMLSBNanoseconds int
	Brightness        int // 0-100
	InverseColors     bool
	NoHardwarePulse   bool
	ShowRefresh       bool
	ChipNumber        string
	Pins              HUB75Pins
}

// HUB75Pins is the GPIO line assignment for the bound engine's internal
// HUB75 program.
type HUB75Pins struct {
	R1, G1, B1, R2, G2, B2 int
	CLK, OE, LAT           int
	AddrPins               []int
}

// RGBMatrix is the bound engine: a double-buffered pixel grid refreshed by
// a background goroutine driving pio.HUB75Program.
type RGBMatrix struct {
	rows, cols  int
	pwmBits     int
	pwmLSBNs    int
	inverse     bool
	showRefresh bool

	pioCtrl *pio.PIO
	sm      *pio.StateMachine
	program *pio.HUB75Program

	mu         sync.RWMutex
	brightness int
	front      []color.Color
	back       []color.Color

	stop chan struct{}
	done chan struct{}
}

// NewRGBMatrix opens the GPIO chip and PIO registers, loads the HUB75
// program, and starts the refresh goroutine.
func NewRGBMatrix(cfg Config) (*RGBMatrix, error) {
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.Brightness < 0 || cfg.Brightness > 100 {
		return nil, fmt.Errorf("brightness must be between 0 and 100")
	}

	program, err := pio.NewHUB75Program(pio.HUB75Program{
		R1Pin: cfg.Pins.R1, G1Pin: cfg.Pins.G1, B1Pin: cfg.Pins.B1,
		R2Pin: cfg.Pins.R2, G2Pin: cfg.Pins.G2, B2Pin: cfg.Pins.B2,
		CLKPin: cfg.Pins.CLK, OEPin: cfg.Pins.OE, LAPin: cfg.Pins.LAT,
		AddrPins: cfg.Pins.AddrPins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build HUB75 program: %v", err)
	}

	sm, err := pio.NewStateMachine(pio.Config{
		ChipNumber: cfg.ChipNumber,
		SMNumber:   0,
		Program:    program.GetProgram(),
		Pins:       program.GetPins(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PIO state machine: %v", err)
	}

	if err := program.LoadProgram(sm); err != nil {
		sm.Close()
		return nil, fmt.Errorf("failed to load HUB75 program: %v", err)
	}
	if err := program.Start(sm); err != nil {
		sm.Close()
		return nil, fmt.Errorf("failed to start HUB75 program: %v", err)
	}

	n := cfg.Rows * cfg.Cols
	pwmBits := cfg.PWMBits
	if pwmBits <= 0 {
		pwmBits = 11
	}

	m := &RGBMatrix{
		rows: cfg.Rows, cols: cfg.Cols,
		pwmBits:     pwmBits,
		pwmLSBNs:    cfg.PWMLSBNanoseconds,
		inverse:     cfg.InverseColors,
		showRefresh: cfg.ShowRefresh,
		program:     program,
		sm:          sm,
		brightness:  cfg.Brightness,
		front:       make([]color.Color, n),
		back:        make([]color.Color, n),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for i := range m.front {
		m.front[i] = color.Black
		m.back[i] = color.Black
	}

	go m.refreshLoop()
	return m, nil
}

// Close stops the refresh goroutine and releases the PIO/GPIO resources.
func (m *RGBMatrix) Close() error {
	close(m.stop)
	<-m.done

	if err := m.program.Stop(m.sm); err != nil {
		return fmt.Errorf("failed to stop HUB75 program: %v", err)
	}
	if err := m.program.Close(); err != nil {
		return fmt.Errorf("failed to close HUB75 program: %v", err)
	}
	return m.sm.Close()
}

// SetBrightness sets the 0-100 brightness applied on top of each pixel's
// stored color by the refresh loop.
func (m *RGBMatrix) SetBrightness(brightness int) error {
	if brightness < 0 || brightness > 100 {
		return fmt.Errorf("brightness must be between 0 and 100")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brightness = brightness
	return nil
}

// GetBrightness returns the current brightness.
func (m *RGBMatrix) GetBrightness() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.brightness
}

// SetPixel sets the back buffer pixel at row-major index y*cols+x.
func (m *RGBMatrix) SetPixel(x, y int, c color.Color) error {
	if x < 0 || x >= m.cols || y < 0 || y >= m.rows {
		return fmt.Errorf("pixel coordinates out of bounds: (%d, %d)", x, y)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.back[y*m.cols+x] = c
	return nil
}

// Fill sets every back-buffer pixel to c.
func (m *RGBMatrix) Fill(c color.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.back {
		m.back[i] = c
	}
	return nil
}

// Clear fills the back buffer with black.
func (m *RGBMatrix) Clear() error {
	return m.Fill(color.Black)
}

// GetPixelColor returns the front (currently displayed) buffer's pixel.
func (m *RGBMatrix) GetPixelColor(index int) (uint8, uint8, uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.front) {
		return 0, 0, 0, fmt.Errorf("index out of bounds: %d", index)
	}
	r, g, b, _ := m.front[index].RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), nil
}

// Show publishes the back buffer as the front buffer for the refresh loop
// to pick up on its next pass. It does not block for a full frame: the
// refresh rate is owned internally, matching the Bound driver contract.
func (m *RGBMatrix) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.front, m.back)
	return nil
}

// refreshLoop is the engine's own refresh thread, standing in for what an
// external C library's internal loop would do: it decomposes the front
// buffer into binary-code-modulation planes and renders a full pass every
// tick, the way cmd/hub75-gpio/main.go's RenderFrame did for a single
// fixed-size panel, generalized here to rows/cols and a configurable PWM
// bit depth.
func (m *RGBMatrix) refreshLoop() {
	defer close(m.done)

	ticker := time.NewTicker(time.Second / internalRefreshHz)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			frame := m.buildPlanes()
			if err := m.program.RenderFrame(m.sm, frame, m.pwmLSBNs); err != nil && m.showRefresh {
				fmt.Printf("rpi5matrix: render error: %v\n", err)
			}
		}
	}
}

// buildPlanes decomposes the front buffer into [row][plane][column*6 bytes]
// binary-code-modulation data at the engine's brightness and pwmBits depth.
func (m *RGBMatrix) buildPlanes() [][][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frame := make([][][]byte, m.rows)
	for y := 0; y < m.rows; y++ {
		planes := make([][]byte, m.pwmBits)
		for plane := range planes {
			planes[plane] = make([]byte, m.cols*6)
		}
		for x := 0; x < m.cols; x++ {
			r, g, b, _ := m.front[y*m.cols+x].RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			r8 = scaleBrightness(r8, m.brightness)
			g8 = scaleBrightness(g8, m.brightness)
			b8 = scaleBrightness(b8, m.brightness)
			if m.inverse {
				r8, g8, b8 = 255-r8, 255-g8, 255-b8
			}
			for plane := 0; plane < m.pwmBits; plane++ {
				base := x * 6
				planes[plane][base+0] = bitOf(r8, plane)
				planes[plane][base+1] = bitOf(g8, plane)
				planes[plane][base+2] = bitOf(b8, plane)
				// Bottom half channels (R2/G2/B2) mirror top half here since
				// this engine addresses one row at a time rather than two
				// simultaneous half-panel rows.
				planes[plane][base+3] = bitOf(r8, plane)
				planes[plane][base+4] = bitOf(g8, plane)
				planes[plane][base+5] = bitOf(b8, plane)
			}
		}
		frame[y] = planes
	}
	return frame
}

func bitOf(v uint8, plane int) byte {
	if (v>>uint(plane))&1 != 0 {
		return 1
	}
	return 0
}

func scaleBrightness(v uint8, brightness int) uint8 {
	return uint8(int(v) * brightness / 100)
}
