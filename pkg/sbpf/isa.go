// Package sbpf defines the Solana Berkeley Packet Filter instruction set.
//
// sBPF is a register-based instruction set with 11 64-bit registers (R0-R10),
// where R10 is a read-only frame pointer. Instructions are fixed 8-byte slots:
//
//	+------------------------+----------------+------+------+--------+
//	|         imm (32)       |   offset (16)  | src  | dst  | opcode |
//	+------------------------+----------------+------+------+--------+
//	MSB                                                           LSB
//
// This package only encodes and decodes. Execution, verification and ELF
// loading live elsewhere.
//
// Memory is organized into four regions, each tagged by the high 32 bits of
// a virtual address:
// - Program (0x100000000): Read-only executable code
// - Stack   (0x200000000): Read-write stack frames
// - Heap    (0x300000000): Read-write heap memory
// - Input   (0x400000000): Read-only input parameters
package sbpf

import (
	"errors"
)

// Program limits and layout.
const (
	ProgMaxInsns      = 65536 // Max instructions per program
	InsnSize          = 8     // Bytes per instruction slot
	StackReg          = 10    // Frame pointer register
	FirstScratchReg   = 6     // First scratch register preserved across calls
	ScratchRegs       = 4     // Scratch registers preserved across calls (r6-r9)
	ElfInsnDumpOffset = 29    // Line offset of the first instruction in objdump output
	HostAlign         = 16    // Alignment of host-side program buffers
)

// VirtualAddressBits is the width of the in-region offset.
const VirtualAddressBits = 32

// Virtual memory region base addresses.
const (
	MMProgramStart = uint64(0x1_0000_0000) // Read-only program code
	MMStackStart   = uint64(0x2_0000_0000) // Stack memory
	MMHeapStart    = uint64(0x3_0000_0000) // Heap memory
	MMInputStart   = uint64(0x4_0000_0000) // Input parameters
)

// RegionOf returns the region tag of a virtual address.
func RegionOf(addr uint64) uint64 {
	return addr >> VirtualAddressBits
}

// RegionOffset returns the in-region offset of a virtual address.
func RegionOffset(addr uint64) uint64 {
	return addr & (1<<VirtualAddressBits - 1)
}

// Errors.
var (
	ErrShortInstruction = errors.New("short instruction")
	ErrTrailingBytes    = errors.New("program length is not a multiple of the instruction size")
	ErrProgramTooLarge  = errors.New("program too large")
)
