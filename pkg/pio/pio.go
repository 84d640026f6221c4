// Package pio emulates the Raspberry Pi 5 RP1 south-bridge's PIO block
// through direct register access, the way the teacher's pkg/pio did for the
// HUB75 bonnet. The register map is written through pkg/mmap's /dev/mem
// mapping; GPIO line configuration goes through go-gpiocdev, matching the
// teacher's choice of that library over raw sysfs GPIO everywhere in this
// module.
package pio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/fcurrie/led-matrix-controller/pkg/mmap"
)

const (
	// PIOBaseAddr is the physical base address of the first PIO block on
	// the RP1 (Raspberry Pi 5's I/O companion chip).
	PIOBaseAddr = 0x50200000

	// PIOMemSize is the size of one PIO block's register window.
	PIOMemSize = 0x1000

	// Per-state-machine register offsets within a PIO block.
	SM0_CLKDIV    = 0x0c8
	SM0_EXECCTRL  = 0x0cc
	SM0_SHIFTCTRL = 0x0d0
	SM0_ADDR      = 0x0d4
	SM0_INSTR     = 0x0d8
	SM0_PINCTRL   = 0x0dc
	SM0_FSTAT     = 0x0e0
	SM0_RXF       = 0x0e4
	SM0_TXF       = 0x0e8

	// SM_OFFSET is the stride between consecutive state machines' register
	// blocks.
	SM_OFFSET = 0x024
)

// PIO owns the mapped register window for one PIO block plus the gpiocdev
// chip used to configure the pins a loaded program drives.
type PIO struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	mem  *mmap.MemoryMap
}

// StateMachine is one of the PIO block's four independent program counters.
type StateMachine struct {
	chip    *gpiocdev.Chip
	sm      int
	program []uint16
	pins    []int
	mu      sync.Mutex
	pio     *PIO
}

// Config holds the configuration for a state machine.
type Config struct {
	ChipNumber string
	SMNumber   int
	Program    []uint16
	Pins       []int
}

// NewPIO opens gpiochip0 and maps the first PIO block's register window.
func NewPIO() (*PIO, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("failed to open gpiochip0: %v", err)
	}

	mem, err := mmap.NewMemoryMap(PIOBaseAddr, PIOMemSize)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to map PIO registers: %v", err)
	}

	return &PIO{chip: chip, mem: mem}, nil
}

// Close unmaps the PIO register window and closes the GPIO chip.
func (p *PIO) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mem != nil {
		if err := p.mem.Close(); err != nil {
			return fmt.Errorf("munmap failed: %v", err)
		}
		p.mem = nil
	}
	if p.chip != nil {
		p.chip.Close()
		p.chip = nil
	}
	return nil
}

// ConfigurePin configures pin as a gpiocdev output line.
func (p *PIO) ConfigurePin(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("failed to configure pin %d: %v", pin, err)
	}
	return nil
}

func (p *PIO) readReg(addr uint32) (uint32, error) {
	if p.mem == nil {
		return 0, fmt.Errorf("memory not mapped")
	}
	offset := uintptr(addr - PIOBaseAddr)
	if offset+4 > uintptr(len(p.mem.Region())) {
		return 0, fmt.Errorf("register address out of range: 0x%x", addr)
	}
	return p.mem.Read32(offset), nil
}

func (p *PIO) writeReg(addr uint32, val uint32) error {
	if p.mem == nil {
		return fmt.Errorf("memory not mapped")
	}
	offset := uintptr(addr - PIOBaseAddr)
	if offset+4 > uintptr(len(p.mem.Region())) {
		return fmt.Errorf("register address out of range: 0x%x", addr)
	}
	p.mem.Write32(offset, val)
	return nil
}

// NewStateMachine opens its own PIO register mapping and GPIO chip handle
// and loads cfg.Program into state machine cfg.SMNumber.
func NewStateMachine(cfg Config) (*StateMachine, error) {
	chip, err := gpiocdev.NewChip(cfg.ChipNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip: %v", err)
	}

	pioCtrl, err := NewPIO()
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to create PIO controller: %v", err)
	}

	sm := &StateMachine{
		chip:    chip,
		sm:      cfg.SMNumber,
		program: cfg.Program,
		pins:    cfg.Pins,
		pio:     pioCtrl,
	}

	if err := sm.init(); err != nil {
		chip.Close()
		pioCtrl.Close()
		return nil, err
	}
	return sm, nil
}

func (sm *StateMachine) init() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, pin := range sm.pins {
		if err := sm.ConfigurePin(pin); err != nil {
			return fmt.Errorf("failed to configure pin %d: %v", pin, err)
		}
	}
	if err := sm.loadProgram(); err != nil {
		return fmt.Errorf("failed to load program: %v", err)
	}
	return nil
}

// ConfigurePin configures pin as a gpiocdev output line on this state
// machine's chip.
func (sm *StateMachine) ConfigurePin(pin int) error {
	_, err := sm.chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("failed to configure pin %d: %v", pin, err)
	}
	return nil
}

func (sm *StateMachine) loadProgram() error {
	if sm.pio == nil {
		return fmt.Errorf("PIO controller not initialized")
	}

	for i, instr := range sm.program {
		if err := sm.pio.writeReg(PIOBaseAddr+uint32(i*2), uint32(instr)); err != nil {
			return fmt.Errorf("failed to write instruction %d: %v", i, err)
		}
	}

	smOffset := uint32(sm.sm * 0x40)
	if err := sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_CLKDIV, 0x1000); err != nil {
		return fmt.Errorf("failed to set clock divider: %v", err)
	}
	if err := sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_SHIFTCTRL, 0x80000000); err != nil {
		return fmt.Errorf("failed to set shift control: %v", err)
	}

	pinctrl := uint32(0)
	if len(sm.pins) > 0 {
		pinctrl |= uint32(sm.pins[0])
		pinctrl |= uint32(len(sm.pins)-1) << 26
	}
	pinctrl |= uint32(1) << 5  // OUT_EN
	pinctrl |= uint32(1) << 7  // SET_EN
	pinctrl |= uint32(1) << 20 // SIDESET_EN
	if err := sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_PINCTRL, pinctrl); err != nil {
		return fmt.Errorf("failed to set pin control: %v", err)
	}
	if err := sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_ADDR, 0); err != nil {
		return fmt.Errorf("failed to set program counter: %v", err)
	}
	return nil
}

// Start sets the state machine's execution control register to run.
func (sm *StateMachine) Start() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.pio == nil {
		return fmt.Errorf("PIO controller not initialized")
	}
	smOffset := uint32(sm.sm * 0x40)
	return sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_EXECCTRL, 0x1)
}

// Stop halts the state machine.
func (sm *StateMachine) Stop() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.pio == nil {
		return fmt.Errorf("PIO controller not initialized")
	}
	smOffset := uint32(sm.sm * 0x40)
	return sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_EXECCTRL, 0x0)
}

// Put pushes one word into the state machine's TX FIFO, blocking (with a
// 100ms timeout) until there is room.
func (sm *StateMachine) Put(data uint32) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.pio == nil {
		return fmt.Errorf("PIO controller not initialized")
	}
	smOffset := uint32(sm.sm * 0x40)

	deadline := time.Now().Add(time.Millisecond * 100)
	for {
		fstat, err := sm.pio.readReg(PIOBaseAddr + smOffset + SM0_FSTAT)
		if err != nil {
			return fmt.Errorf("failed to read FIFO status: %v", err)
		}
		if (fstat & 0x1) == 0 {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for FIFO space")
		}
		time.Sleep(time.Microsecond * 100)
	}

	return sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_TXF, data)
}

// Close stops the state machine and releases its GPIO chip and PIO mapping.
func (sm *StateMachine) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Stop locks sm.mu itself, so the halt register is written inline here.
	if sm.pio == nil {
		return fmt.Errorf("PIO controller not initialized")
	}
	smOffset := uint32(sm.sm * 0x40)
	if err := sm.pio.writeReg(PIOBaseAddr+smOffset+SM0_EXECCTRL, 0x0); err != nil {
		return err
	}
	if sm.chip != nil {
		sm.chip.Close()
		sm.chip = nil
	}
	if sm.pio != nil {
		sm.pio.Close()
		sm.pio = nil
	}
	return nil
}
