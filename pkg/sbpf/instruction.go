package sbpf

import (
	"encoding/binary"
	"fmt"
)

// Register is a 4-bit register index. Only R0-R10 exist, but the encoding
// can carry 11-15 and decoding preserves them.
type Register uint8

// Valid reports whether r names one of R0-R10.
func (r Register) Valid() bool {
	return r <= StackReg
}

func (r Register) String() string {
	return fmt.Sprintf("r%d", uint8(r))
}

// Instruction is a decoded instruction slot.
type Instruction struct {
	Ptr uint64   // Byte offset of the slot in the program
	Op  Opcode   // Opcode (byte 0)
	Dst Register // Destination register (byte 1, bits 0-3)
	Src Register // Source register (byte 1, bits 4-7)
	Off int16    // Offset (bytes 2-3, signed)
	Imm int32    // Immediate (bytes 4-7, signed)
}

// Decode parses the 8-byte slot at the start of data. ptr is recorded as the
// slot position. Opcode, register and offset values are not validated.
func Decode(data []byte, ptr uint64) (Instruction, error) {
	if len(data) < InsnSize {
		return Instruction{}, fmt.Errorf("%w: have %d bytes at 0x%x, need %d", ErrShortInstruction, len(data), ptr, InsnSize)
	}
	slot := data[:InsnSize]
	return Instruction{
		Ptr: ptr,
		Op:  Opcode(slot[0]),
		Dst: Register(slot[1] & 0x0f),
		Src: Register(slot[1] >> 4),
		Off: int16(binary.LittleEndian.Uint16(slot[2:4])),
		Imm: int32(binary.LittleEndian.Uint32(slot[4:8])),
	}, nil
}

// Encode creates an instruction slot from its components.
func Encode(op Opcode, dst, src Register, off int16, imm int32) []byte {
	b := make([]byte, InsnSize)
	b[0] = uint8(op)
	b[1] = uint8(src&0x0f)<<4 | uint8(dst&0x0f)
	binary.LittleEndian.PutUint16(b[2:4], uint16(off))
	binary.LittleEndian.PutUint32(b[4:8], uint32(imm))
	return b
}

// Bytes re-encodes the instruction.
func (i Instruction) Bytes() []byte {
	return Encode(i.Op, i.Dst, i.Src, i.Off, i.Imm)
}

// Uimm returns the immediate value as unsigned.
func (i Instruction) Uimm() uint32 {
	return uint32(i.Imm)
}

// MemoryAddress returns the byte address Off slots past the next
// instruction: Ptr + (Off+1)*InsnSize.
func (i Instruction) MemoryAddress() uint64 {
	return i.Ptr + uint64((int64(i.Off)+1)*InsnSize)
}

// HasRelativeTarget reports whether Off is a slot displacement that
// MemoryAddress resolves: ja, the conditional jumps, and packet loads.
func (i Instruction) HasRelativeTarget() bool {
	switch i.Op.Class() {
	case ClassJmp:
		if !i.Op.Valid() {
			return false
		}
		switch i.Op.JmpOp() {
		case JmpCall, JmpExit:
			return false
		}
		return true
	case ClassLd:
		m := i.Op.Mode()
		return i.Op.Valid() && (m == ModeAbs || m == ModeInd)
	}
	return false
}

// String disassembles the instruction.
func (i Instruction) String() string {
	op := i.Op
	if !op.Valid() {
		return op.String()
	}
	name := op.String()

	switch class := op.Class(); class {
	case ClassAlu, ClassAlu64:
		switch op.AluOp() {
		case AluNeg:
			return fmt.Sprintf("%s %s", name, i.Dst)
		case AluEnd:
			return fmt.Sprintf("%s%d %s", name, i.Imm, i.Dst)
		}
		if op.Source() == SrcX {
			return fmt.Sprintf("%s %s, %s", name, i.Dst, i.Src)
		}
		return fmt.Sprintf("%s %s, %d", name, i.Dst, i.Imm)

	case ClassLd:
		switch op.Mode() {
		case ModeAbs:
			return fmt.Sprintf("%s 0x%x", name, i.Uimm())
		case ModeInd:
			return fmt.Sprintf("%s %s, 0x%x", name, i.Src, i.Uimm())
		}
		return fmt.Sprintf("%s %s, 0x%x", name, i.Dst, i.Uimm())

	case ClassLdx:
		return fmt.Sprintf("%s %s, [%s%+d]", name, i.Dst, i.Src, i.Off)

	case ClassSt:
		return fmt.Sprintf("%s [%s%+d], %d", name, i.Dst, i.Off, i.Imm)

	case ClassStx:
		return fmt.Sprintf("%s [%s%+d], %s", name, i.Dst, i.Off, i.Src)

	case ClassJmp:
		switch op.JmpOp() {
		case JmpJa:
			return fmt.Sprintf("%s %+d", name, i.Off)
		case JmpCall:
			if op.Source() == SrcX {
				return fmt.Sprintf("%s r%d", name, i.Imm)
			}
			return fmt.Sprintf("%s 0x%x", name, i.Uimm())
		case JmpExit:
			return name
		}
		if op.Source() == SrcX {
			return fmt.Sprintf("%s %s, %s, %+d", name, i.Dst, i.Src, i.Off)
		}
		return fmt.Sprintf("%s %s, %d, %+d", name, i.Dst, i.Imm, i.Off)
	}
	return name
}
