// Package emu provides the functional side of the APEX machine: data memory
// and integer arithmetic semantics.
package emu

import (
	"errors"
	"fmt"
	"io"
)

// ErrAddressOutOfRange is returned for accesses outside data memory or not
// aligned to a word.
var ErrAddressOutOfRange = errors.New("address out of range")

// WordSize is the size in bytes of one memory word.
const WordSize = 4

// DefaultMemorySize is the size in bytes of APEX data memory.
const DefaultMemorySize = 4000

// Memory is a flat, word-organized data memory addressed by byte offset.
type Memory struct {
	words []int32
}

// NewMemory creates a zeroed memory of DefaultMemorySize bytes.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultMemorySize)
}

// NewMemoryWithSize creates a zeroed memory of size bytes, rounded down to a
// whole number of words.
func NewMemoryWithSize(size int) *Memory {
	return &Memory{words: make([]int32, size/WordSize)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() int {
	return len(m.words) * WordSize
}

func (m *Memory) index(addr int32) (int, error) {
	if addr < 0 || addr%WordSize != 0 || int(addr/WordSize) >= len(m.words) {
		return 0, fmt.Errorf("%w: %d", ErrAddressOutOfRange, addr)
	}
	return int(addr / WordSize), nil
}

// ReadMem reads the word at byte address addr.
func (m *Memory) ReadMem(addr int32) (int32, error) {
	i, err := m.index(addr)
	if err != nil {
		return 0, err
	}
	return m.words[i], nil
}

// WriteMem writes value to the word at byte address addr.
func (m *Memory) WriteMem(addr int32, value int32) error {
	i, err := m.index(addr)
	if err != nil {
		return err
	}
	m.words[i] = value
	return nil
}

// Reset zeroes every word.
func (m *Memory) Reset() {
	for i := range m.words {
		m.words[i] = 0
	}
}

// Display writes the words from byte address a1 to a2 inclusive, one per
// line. The range is clamped to memory.
func (m *Memory) Display(w io.Writer, a1, a2 int32) error {
	if a1 < 0 {
		a1 = 0
	}
	a1 -= a1 % WordSize
	last := int32(m.Size() - WordSize)
	if a2 > last {
		a2 = last
	}
	for addr := a1; addr <= a2; addr += WordSize {
		if _, err := fmt.Fprintf(w, "MEM[%4d] = %d\n", addr, m.words[addr/WordSize]); err != nil {
			return err
		}
	}
	return nil
}
