package chip8

import (
	"fmt"
	"io"
)

// LoadROM reads the whole ROM image from r and copies it verbatim into
// memory starting at ProgramStart. Loading never partially succeeds: if the
// ROM exceeds MaxROMSize, memory is left untouched and an error is returned.
func (vm *VM) LoadROM(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("chip8: reading rom: %w", err)
	}
	if len(data) > MaxROMSize {
		return fmt.Errorf("chip8: rom too large: %d bytes (max %d)", len(data), MaxROMSize)
	}
	copy(vm.memory[ProgramStart:], data)
	return nil
}
