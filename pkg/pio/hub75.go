package pio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// HUB75Program drives a HUB75 ribbon through a PIO state machine: it shifts
// R1/G1/B1/R2/G2/B2 data for each column, clocks it in with a PIO side-set
// program, and bit-bangs the row-address and latch/OE control lines
// directly via gpiocdev, generalized from the teacher's fixed Adafruit RGB
// Matrix Bonnet pin set to an arbitrary row-address bit width so chains
// taller than 32 rows (more multiplexing address lines) are representable.
type HUB75Program struct {
	R1Pin, G1Pin, B1Pin int
	R2Pin, G2Pin, B2Pin int
	CLKPin, OEPin, LAPin int
	// AddrPins holds the row-address lines in LSB-first order (A, B, C, ...).
	AddrPins []int

	mu    sync.Mutex
	lines map[int]*gpiocdev.Line
}

// NewHUB75Program validates cfg's pin assignment and returns a ready
// HUB75Program. All pins, including every entry of AddrPins, must be
// distinct non-negative GPIO line numbers.
func NewHUB75Program(cfg HUB75Program) (*HUB75Program, error) {
	pins := append([]int{
		cfg.R1Pin, cfg.G1Pin, cfg.B1Pin,
		cfg.R2Pin, cfg.G2Pin, cfg.B2Pin,
		cfg.CLKPin, cfg.OEPin, cfg.LAPin,
	}, cfg.AddrPins...)

	seen := make(map[int]bool, len(pins))
	for _, p := range pins {
		if p < 0 {
			return nil, fmt.Errorf("invalid pin configuration: all pins must be non-negative")
		}
		if seen[p] {
			return nil, fmt.Errorf("invalid pin configuration: pin %d assigned more than once", p)
		}
		seen[p] = true
	}
	if len(cfg.AddrPins) == 0 {
		return nil, fmt.Errorf("invalid pin configuration: at least one row-address pin is required")
	}

	return &HUB75Program{
		R1Pin: cfg.R1Pin, G1Pin: cfg.G1Pin, B1Pin: cfg.B1Pin,
		R2Pin: cfg.R2Pin, G2Pin: cfg.G2Pin, B2Pin: cfg.B2Pin,
		CLKPin: cfg.CLKPin, OEPin: cfg.OEPin, LAPin: cfg.LAPin,
		AddrPins: append([]int(nil), cfg.AddrPins...),
		lines:    make(map[int]*gpiocdev.Line),
	}, nil
}

// GetProgram returns the PIO program clocking R1..B2 out on each OUT
// instruction, side-setting CLK, matching the teacher's direct translation
// of Adafruit's HUB75 PIO assembly:
//
//	loop:
//	    out pins, 6   side 0  ; shift 6 bits out, clock low
//	    nop           side 1  ; clock high, panel latches the bits
//	    jmp loop      side 0  ; clock low, loop back
func (p *HUB75Program) GetProgram() []uint16 {
	return []uint16{
		0x6006, // OUT pins, 6      side 0
		0xB042, // NOP              side 1
		0x0000, // JMP loop         side 0
	}
}

// GetPins returns every GPIO line this program drives.
func (p *HUB75Program) GetPins() []int {
	pins := []int{
		p.R1Pin, p.G1Pin, p.B1Pin,
		p.R2Pin, p.G2Pin, p.B2Pin,
		p.CLKPin, p.OEPin, p.LAPin,
	}
	return append(pins, p.AddrPins...)
}

// LoadProgram configures sm's pins for this program and installs it.
func (p *HUB75Program) LoadProgram(sm *StateMachine) error {
	if sm == nil {
		return fmt.Errorf("state machine is nil")
	}
	for _, pin := range p.GetPins() {
		if err := sm.ConfigurePin(pin); err != nil {
			return fmt.Errorf("failed to configure pin %d: %v", pin, err)
		}
	}

	program := p.GetProgram()
	for i, instr := range program {
		if err := sm.pio.writeReg(PIOBaseAddr+uint32(i*4), uint32(instr)); err != nil {
			return fmt.Errorf("failed to write instruction %d: %v", i, err)
		}
	}

	pinCtrl := uint32(p.R1Pin)
	pinCtrl |= uint32(5) << 20       // OUT count = 6 pins (n-1)
	pinCtrl |= uint32(p.CLKPin) << 10 // side-set base = CLK
	pinCtrl |= uint32(0) << 12       // side-set count = 1 pin (n-1)

	smOffset := uint32(sm.sm * SM_OFFSET)
	return sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_PINCTRL, pinCtrl)
}

// Start begins the HUB75 display operation.
func (p *HUB75Program) Start(sm *StateMachine) error {
	if sm == nil {
		return fmt.Errorf("state machine is nil")
	}
	return sm.Start()
}

// Stop halts the HUB75 display operation.
func (p *HUB75Program) Stop(sm *StateMachine) error {
	if sm == nil {
		return fmt.Errorf("state machine is nil")
	}
	return sm.Stop()
}

// Close releases every GPIO line this program opened.
func (p *HUB75Program) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, line := range p.lines {
		if line != nil {
			line.Close()
		}
	}
	p.lines = make(map[int]*gpiocdev.Line)
	return nil
}

func (p *HUB75Program) getOrRequestLine(sm *StateMachine, pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.lines[pin]; !exists {
		line, err := sm.chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			return fmt.Errorf("failed to request line for pin %d: %v", pin, err)
		}
		p.lines[pin] = line
	}
	return nil
}

func (p *HUB75Program) setPin(pin int, value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	line, exists := p.lines[pin]
	if !exists {
		return fmt.Errorf("pin %d not configured", pin)
	}
	return line.SetValue(value)
}

// UpdateRowPlane shifts one binary-code-modulation plane of one row's
// column data through the chain, latches it, and pulses OE for pulseWidth
// — the base_ns << plane_index timing spec.md §4.1 requires, computed by
// the caller. rowData holds one bit per R1/G1/B1/R2/G2/B2 channel per
// column (6 bytes per column, nonzero meaning the bit is set for this
// plane).
func (p *HUB75Program) UpdateRowPlane(sm *StateMachine, rowIdx int, rowData []byte, pulseWidth time.Duration) error {
	if sm == nil {
		return fmt.Errorf("state machine is nil")
	}

	controlPins := append(append([]int{}, p.AddrPins...), p.OEPin, p.LAPin)
	for _, pin := range controlPins {
		if err := p.getOrRequestLine(sm, pin); err != nil {
			return err
		}
	}

	if err := p.setPin(p.OEPin, 1); err != nil {
		return fmt.Errorf("failed to disable output: %v", err)
	}

	for bit, pin := range p.AddrPins {
		if err := p.setPin(pin, (rowIdx>>uint(bit))&1); err != nil {
			return fmt.Errorf("failed to set address pin %d: %v", pin, err)
		}
	}

	for i := 0; i+5 < len(rowData); i += 6 {
		data := uint32(0)
		for bit := 0; bit < 6; bit++ {
			if rowData[i+bit] > 0 {
				data |= 1 << uint(bit)
			}
		}
		if err := sm.Put(data); err != nil {
			return fmt.Errorf("failed to send column data: %v", err)
		}
	}

	if err := p.setPin(p.LAPin, 1); err != nil {
		return fmt.Errorf("failed to set latch high: %v", err)
	}
	if err := p.setPin(p.LAPin, 0); err != nil {
		return fmt.Errorf("failed to set latch low: %v", err)
	}

	if err := p.setPin(p.OEPin, 0); err != nil {
		return fmt.Errorf("failed to enable output: %v", err)
	}
	time.Sleep(pulseWidth)
	return p.setPin(p.OEPin, 1)
}

// RenderFrame renders one full binary-code-modulation pass of frameData —
// [row][plane][column*6 bytes] — pulsing OE for pwmLSBNanoseconds<<plane on
// each plane, per spec.md §4.1's timing formula.
func (p *HUB75Program) RenderFrame(sm *StateMachine, frameData [][][]byte, pwmLSBNanoseconds int) error {
	if sm == nil {
		return fmt.Errorf("state machine is nil")
	}

	for rowIdx, planes := range frameData {
		for plane, rowData := range planes {
			pulseWidth := time.Duration(pwmLSBNanoseconds<<uint(plane)) * time.Nanosecond
			if err := p.UpdateRowPlane(sm, rowIdx, rowData, pulseWidth); err != nil {
				return fmt.Errorf("failed to render row %d plane %d: %v", rowIdx, plane, err)
			}
		}
	}
	return nil
}
