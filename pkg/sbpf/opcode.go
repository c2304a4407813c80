package sbpf

import "fmt"

// Opcode is the first byte of an instruction slot.
type Opcode uint8

// Sub-field masks.
const (
	ClassMask  = 0x07 // Instruction class (bits 0-2)
	AluOpMask  = 0xf0 // ALU/jump operation (bits 4-7)
	SourceMask = 0x08 // ALU/jump operand source (bit 3)
	SizeMask   = 0x18 // Load/store width (bits 3-4)
	ModeMask   = 0xe0 // Load/store addressing mode (bits 5-7)
)

// Class is the instruction class.
type Class uint8

// Instruction class bits (bits 0-2).
const (
	ClassLd    Class = 0x00 // Load immediate / packet
	ClassLdx   Class = 0x01 // Load from memory
	ClassSt    Class = 0x02 // Store immediate
	ClassStx   Class = 0x03 // Store register
	ClassAlu   Class = 0x04 // 32-bit ALU
	ClassJmp   Class = 0x05 // Jump
	ClassAlu64 Class = 0x07 // 64-bit ALU
)

// Source selects the second operand of ALU and jump instructions.
type Source uint8

// Source bits (bit 3).
const (
	SrcK Source = 0x00 // Immediate
	SrcX Source = 0x08 // Register
)

// Size is the access width of load/store instructions.
type Size uint8

// Memory size (bits 3-4 for load/store).
const (
	SizeW  Size = 0x00 // 32-bit word
	SizeH  Size = 0x08 // 16-bit half-word
	SizeB  Size = 0x10 // 8-bit byte
	SizeDW Size = 0x18 // 64-bit double-word
)

// Mode is the addressing mode of load/store instructions.
type Mode uint8

// Memory mode (bits 5-7 for load/store).
const (
	ModeImm  Mode = 0x00 // Immediate
	ModeAbs  Mode = 0x20 // Absolute (deprecated)
	ModeInd  Mode = 0x40 // Indirect (deprecated)
	ModeMem  Mode = 0x60 // Memory
	ModeXadd Mode = 0xc0 // Atomic add
)

// AluOp is the operation of an ALU instruction.
type AluOp uint8

// ALU operation codes (bits 4-7).
const (
	AluAdd  AluOp = 0x00
	AluSub  AluOp = 0x10
	AluMul  AluOp = 0x20
	AluDiv  AluOp = 0x30
	AluOr   AluOp = 0x40
	AluAnd  AluOp = 0x50
	AluLsh  AluOp = 0x60
	AluRsh  AluOp = 0x70
	AluNeg  AluOp = 0x80
	AluMod  AluOp = 0x90
	AluXor  AluOp = 0xa0
	AluMov  AluOp = 0xb0
	AluArsh AluOp = 0xc0
	AluEnd  AluOp = 0xd0 // Byte swap, source bit selects le/be
)

// JmpOp is the operation of a jump instruction.
type JmpOp uint8

// Jump operation codes (bits 4-7).
const (
	JmpJa   JmpOp = 0x00 // Unconditional
	JmpJeq  JmpOp = 0x10 // ==
	JmpJgt  JmpOp = 0x20 // > (unsigned)
	JmpJge  JmpOp = 0x30 // >= (unsigned)
	JmpJset JmpOp = 0x40 // &
	JmpJne  JmpOp = 0x50 // !=
	JmpJsgt JmpOp = 0x60 // > (signed)
	JmpJsge JmpOp = 0x70 // >= (signed)
	JmpCall JmpOp = 0x80 // Function call
	JmpExit JmpOp = 0x90 // Exit
	JmpJlt  JmpOp = 0xa0 // < (unsigned)
	JmpJle  JmpOp = 0xb0 // <= (unsigned)
	JmpJslt JmpOp = 0xc0 // < (signed)
	JmpJsle JmpOp = 0xd0 // <= (signed)
)

// Class returns the instruction class.
func (op Opcode) Class() Class {
	return Class(op & ClassMask)
}

// AluOp returns the ALU operation. Only meaningful for ALU classes.
func (op Opcode) AluOp() AluOp {
	return AluOp(op & AluOpMask)
}

// JmpOp returns the jump operation. Only meaningful for ClassJmp.
func (op Opcode) JmpOp() JmpOp {
	return JmpOp(op & AluOpMask)
}

// Source returns the operand source. Only meaningful for ALU and jump classes.
func (op Opcode) Source() Source {
	return Source(op & SourceMask)
}

// Size returns the access width. Only meaningful for load/store classes.
func (op Opcode) Size() Size {
	return Size(op & SizeMask)
}

// Mode returns the addressing mode. Only meaningful for load/store classes.
func (op Opcode) Mode() Mode {
	return Mode(op & ModeMask)
}

// AluOpcode composes an ALU opcode.
func AluOpcode(class Class, aluOp AluOp, src Source) Opcode {
	return Opcode(class) | Opcode(src) | Opcode(aluOp)
}

// JmpOpcode composes a jump opcode.
func JmpOpcode(jmpOp JmpOp, src Source) Opcode {
	return Opcode(ClassJmp) | Opcode(src) | Opcode(jmpOp)
}

// MemOpcode composes a load/store opcode.
func MemOpcode(class Class, mode Mode, size Size) Opcode {
	return Opcode(class) | Opcode(mode) | Opcode(size)
}

// IsLoadStore reports whether the class is one of the load/store classes.
func (c Class) IsLoadStore() bool {
	return c <= ClassStx
}

// IsAlu reports whether the class is a 32 or 64-bit ALU class.
func (c Class) IsAlu() bool {
	return c == ClassAlu || c == ClassAlu64
}

func (c Class) String() string {
	switch c {
	case ClassLd:
		return "ld"
	case ClassLdx:
		return "ldx"
	case ClassSt:
		return "st"
	case ClassStx:
		return "stx"
	case ClassAlu:
		return "alu"
	case ClassJmp:
		return "jmp"
	case ClassAlu64:
		return "alu64"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Bytes returns the access width in bytes.
func (s Size) Bytes() int {
	switch s {
	case SizeB:
		return 1
	case SizeH:
		return 2
	case SizeW:
		return 4
	default:
		return 8
	}
}

// Composed opcodes for 64-bit ALU with immediate.
const (
	OpAdd64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluAdd)  // 0x07
	OpSub64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluSub)  // 0x17
	OpMul64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluMul)  // 0x27
	OpDiv64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluDiv)  // 0x37
	OpOr64Imm   = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluOr)   // 0x47
	OpAnd64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluAnd)  // 0x57
	OpLsh64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluLsh)  // 0x67
	OpRsh64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluRsh)  // 0x77
	OpNeg64     = Opcode(ClassAlu64) | Opcode(AluNeg)                 // 0x87
	OpMod64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluMod)  // 0x97
	OpXor64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluXor)  // 0xa7
	OpMov64Imm  = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluMov)  // 0xb7
	OpArsh64Imm = Opcode(ClassAlu64) | Opcode(SrcK) | Opcode(AluArsh) // 0xc7
)

// Composed opcodes for 64-bit ALU with register.
const (
	OpAdd64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluAdd)  // 0x0f
	OpSub64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluSub)  // 0x1f
	OpMul64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluMul)  // 0x2f
	OpDiv64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluDiv)  // 0x3f
	OpOr64Reg   = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluOr)   // 0x4f
	OpAnd64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluAnd)  // 0x5f
	OpLsh64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluLsh)  // 0x6f
	OpRsh64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluRsh)  // 0x7f
	OpMod64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluMod)  // 0x9f
	OpXor64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluXor)  // 0xaf
	OpMov64Reg  = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluMov)  // 0xbf
	OpArsh64Reg = Opcode(ClassAlu64) | Opcode(SrcX) | Opcode(AluArsh) // 0xcf
)

// Composed opcodes for 32-bit ALU with immediate.
const (
	OpAdd32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluAdd)  // 0x04
	OpSub32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluSub)  // 0x14
	OpMul32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluMul)  // 0x24
	OpDiv32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluDiv)  // 0x34
	OpOr32Imm   = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluOr)   // 0x44
	OpAnd32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluAnd)  // 0x54
	OpLsh32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluLsh)  // 0x64
	OpRsh32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluRsh)  // 0x74
	OpNeg32     = Opcode(ClassAlu) | Opcode(AluNeg)                 // 0x84
	OpMod32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluMod)  // 0x94
	OpXor32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluXor)  // 0xa4
	OpMov32Imm  = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluMov)  // 0xb4
	OpArsh32Imm = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluArsh) // 0xc4
)

// Composed opcodes for 32-bit ALU with register.
const (
	OpAdd32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluAdd)  // 0x0c
	OpSub32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluSub)  // 0x1c
	OpMul32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluMul)  // 0x2c
	OpDiv32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluDiv)  // 0x3c
	OpOr32Reg   = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluOr)   // 0x4c
	OpAnd32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluAnd)  // 0x5c
	OpLsh32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluLsh)  // 0x6c
	OpRsh32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluRsh)  // 0x7c
	OpMod32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluMod)  // 0x9c
	OpXor32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluXor)  // 0xac
	OpMov32Reg  = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluMov)  // 0xbc
	OpArsh32Reg = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluArsh) // 0xcc
)

// Byte swap opcodes. The immediate holds the width in bits (16, 32 or 64).
const (
	OpLe = Opcode(ClassAlu) | Opcode(SrcK) | Opcode(AluEnd) // 0xd4 - to little-endian
	OpBe = Opcode(ClassAlu) | Opcode(SrcX) | Opcode(AluEnd) // 0xdc - to big-endian
)

// Legacy packet load opcodes.
const (
	OpLdAbsB  = Opcode(ClassLd) | Opcode(ModeAbs) | Opcode(SizeB)  // 0x30
	OpLdAbsH  = Opcode(ClassLd) | Opcode(ModeAbs) | Opcode(SizeH)  // 0x28
	OpLdAbsW  = Opcode(ClassLd) | Opcode(ModeAbs) | Opcode(SizeW)  // 0x20
	OpLdAbsDW = Opcode(ClassLd) | Opcode(ModeAbs) | Opcode(SizeDW) // 0x38
	OpLdIndB  = Opcode(ClassLd) | Opcode(ModeInd) | Opcode(SizeB)  // 0x50
	OpLdIndH  = Opcode(ClassLd) | Opcode(ModeInd) | Opcode(SizeH)  // 0x48
	OpLdIndW  = Opcode(ClassLd) | Opcode(ModeInd) | Opcode(SizeW)  // 0x40
	OpLdIndDW = Opcode(ClassLd) | Opcode(ModeInd) | Opcode(SizeDW) // 0x58
)

// OpLddw loads a 64-bit immediate; the high half lives in the next slot.
const OpLddw = Opcode(ClassLd) | Opcode(ModeImm) | Opcode(SizeDW) // 0x18

// Memory load opcodes.
const (
	OpLdxb  = Opcode(ClassLdx) | Opcode(ModeMem) | Opcode(SizeB)  // 0x71 - load byte
	OpLdxh  = Opcode(ClassLdx) | Opcode(ModeMem) | Opcode(SizeH)  // 0x69 - load half-word
	OpLdxw  = Opcode(ClassLdx) | Opcode(ModeMem) | Opcode(SizeW)  // 0x61 - load word
	OpLdxdw = Opcode(ClassLdx) | Opcode(ModeMem) | Opcode(SizeDW) // 0x79 - load double-word
)

// Memory store immediate opcodes.
const (
	OpStb  = Opcode(ClassSt) | Opcode(ModeMem) | Opcode(SizeB)  // 0x72 - store byte immediate
	OpSth  = Opcode(ClassSt) | Opcode(ModeMem) | Opcode(SizeH)  // 0x6a - store half-word immediate
	OpStw  = Opcode(ClassSt) | Opcode(ModeMem) | Opcode(SizeW)  // 0x62 - store word immediate
	OpStdw = Opcode(ClassSt) | Opcode(ModeMem) | Opcode(SizeDW) // 0x7a - store double-word immediate
)

// Memory store register opcodes.
const (
	OpStxb  = Opcode(ClassStx) | Opcode(ModeMem) | Opcode(SizeB)  // 0x73 - store byte
	OpStxh  = Opcode(ClassStx) | Opcode(ModeMem) | Opcode(SizeH)  // 0x6b - store half-word
	OpStxw  = Opcode(ClassStx) | Opcode(ModeMem) | Opcode(SizeW)  // 0x63 - store word
	OpStxdw = Opcode(ClassStx) | Opcode(ModeMem) | Opcode(SizeDW) // 0x7b - store double-word
)

// Atomic add opcodes.
const (
	OpStxXaddW  = Opcode(ClassStx) | Opcode(ModeXadd) | Opcode(SizeW)  // 0xc3
	OpStxXaddDW = Opcode(ClassStx) | Opcode(ModeXadd) | Opcode(SizeDW) // 0xdb
)

// Jump opcodes.
const (
	OpJa      = Opcode(ClassJmp) | Opcode(JmpJa)                  // 0x05 - unconditional jump
	OpJeqImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJeq)  // 0x15 - jump if equal (imm)
	OpJeqReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJeq)  // 0x1d - jump if equal (reg)
	OpJgtImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJgt)  // 0x25 - jump if greater (imm, unsigned)
	OpJgtReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJgt)  // 0x2d - jump if greater (reg, unsigned)
	OpJgeImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJge)  // 0x35 - jump if greater or equal (imm, unsigned)
	OpJgeReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJge)  // 0x3d - jump if greater or equal (reg, unsigned)
	OpJsetImm = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJset) // 0x45 - jump if set (imm)
	OpJsetReg = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJset) // 0x4d - jump if set (reg)
	OpJneImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJne)  // 0x55 - jump if not equal (imm)
	OpJneReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJne)  // 0x5d - jump if not equal (reg)
	OpJsgtImm = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJsgt) // 0x65 - jump if greater (imm, signed)
	OpJsgtReg = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJsgt) // 0x6d - jump if greater (reg, signed)
	OpJsgeImm = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJsge) // 0x75 - jump if greater or equal (imm, signed)
	OpJsgeReg = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJsge) // 0x7d - jump if greater or equal (reg, signed)
	OpJltImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJlt)  // 0xa5 - jump if less (imm, unsigned)
	OpJltReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJlt)  // 0xad - jump if less (reg, unsigned)
	OpJleImm  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJle)  // 0xb5 - jump if less or equal (imm, unsigned)
	OpJleReg  = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJle)  // 0xbd - jump if less or equal (reg, unsigned)
	OpJsltImm = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJslt) // 0xc5 - jump if less (imm, signed)
	OpJsltReg = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJslt) // 0xcd - jump if less (reg, signed)
	OpJsleImm = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpJsle) // 0xd5 - jump if less or equal (imm, signed)
	OpJsleReg = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpJsle) // 0xdd - jump if less or equal (reg, signed)
)

// Call and exit.
const (
	OpCall  = Opcode(ClassJmp) | Opcode(SrcK) | Opcode(JmpCall) // 0x85 - call by hash or relative offset
	OpCallx = Opcode(ClassJmp) | Opcode(SrcX) | Opcode(JmpCall) // 0x8d - call by register
	OpExit  = Opcode(ClassJmp) | Opcode(JmpExit)                // 0x95 - exit
)
