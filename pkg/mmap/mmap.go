// Package mmap maps a physical address range from /dev/mem into the
// process so pkg/pio can read and write the RP1 PIO block's registers
// directly, the way the teacher's pkg/mmap did for the same purpose.
package mmap

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// MemoryMap is a mapped physical memory region addressed by byte offset.
type MemoryMap struct {
	addr   uintptr
	size   uintptr
	region []byte
}

// NewMemoryMap opens /dev/mem and maps size bytes starting at the physical
// address addr.
func NewMemoryMap(addr, size uintptr) (*MemoryMap, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open /dev/mem: %v", err)
	}
	defer f.Close()

	region, err := syscall.Mmap(
		int(f.Fd()),
		int64(addr),
		int(size),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap: %v", err)
	}

	return &MemoryMap{
		addr:   addr,
		size:   size,
		region: region,
	}, nil
}

// Close unmaps the region.
func (m *MemoryMap) Close() error {
	return syscall.Munmap(m.region)
}

// Region returns the mapped bytes, for bounds-checking offsets before a
// Read32/Write32 call.
func (m *MemoryMap) Region() []byte {
	return m.region
}

// Read32 reads the 32-bit register at offset.
func (m *MemoryMap) Read32(offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(&m.region[offset]))
}

// Write32 writes value to the 32-bit register at offset.
func (m *MemoryMap) Write32(offset uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(&m.region[offset])) = value
}
