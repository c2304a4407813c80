package sbpf

import "fmt"

// OpcodeInfo describes a registered opcode.
type OpcodeInfo struct {
	Op       Opcode
	Mnemonic string
}

// opcodeTable is indexed by opcode byte. Unregistered entries have an
// empty mnemonic.
var opcodeTable = buildOpcodeTable()

var aluBinaryOps = []struct {
	op   AluOp
	name string
}{
	{AluAdd, "add"},
	{AluSub, "sub"},
	{AluMul, "mul"},
	{AluDiv, "div"},
	{AluOr, "or"},
	{AluAnd, "and"},
	{AluLsh, "lsh"},
	{AluRsh, "rsh"},
	{AluMod, "mod"},
	{AluXor, "xor"},
	{AluMov, "mov"},
	{AluArsh, "arsh"},
}

var jmpCondOps = []struct {
	op   JmpOp
	name string
}{
	{JmpJeq, "jeq"},
	{JmpJgt, "jgt"},
	{JmpJge, "jge"},
	{JmpJset, "jset"},
	{JmpJne, "jne"},
	{JmpJsgt, "jsgt"},
	{JmpJsge, "jsge"},
	{JmpJlt, "jlt"},
	{JmpJle, "jle"},
	{JmpJslt, "jslt"},
	{JmpJsle, "jsle"},
}

var memSizes = []struct {
	size Size
	name string
}{
	{SizeB, "b"},
	{SizeH, "h"},
	{SizeW, "w"},
	{SizeDW, "dw"},
}

func buildOpcodeTable() [256]OpcodeInfo {
	var t [256]OpcodeInfo
	add := func(op Opcode, mnemonic string) {
		if t[op].Mnemonic != "" {
			panic(fmt.Sprintf("sbpf: opcode 0x%02x registered as %q and %q", uint8(op), t[op].Mnemonic, mnemonic))
		}
		t[op] = OpcodeInfo{Op: op, Mnemonic: mnemonic}
	}

	// ALU
	for _, c := range []struct {
		class  Class
		suffix string
	}{{ClassAlu, "32"}, {ClassAlu64, "64"}} {
		for _, a := range aluBinaryOps {
			add(AluOpcode(c.class, a.op, SrcK), a.name+c.suffix)
			add(AluOpcode(c.class, a.op, SrcX), a.name+c.suffix)
		}
		add(AluOpcode(c.class, AluNeg, SrcK), "neg"+c.suffix)
	}
	add(AluOpcode(ClassAlu, AluEnd, SrcK), "le")
	add(AluOpcode(ClassAlu, AluEnd, SrcX), "be")

	// Load/store
	for _, s := range memSizes {
		add(MemOpcode(ClassLd, ModeAbs, s.size), "ldabs"+s.name)
		add(MemOpcode(ClassLd, ModeInd, s.size), "ldind"+s.name)
		add(MemOpcode(ClassLdx, ModeMem, s.size), "ldx"+s.name)
		add(MemOpcode(ClassSt, ModeMem, s.size), "st"+s.name)
		add(MemOpcode(ClassStx, ModeMem, s.size), "stx"+s.name)
	}
	add(MemOpcode(ClassLd, ModeImm, SizeDW), "lddw")
	add(MemOpcode(ClassStx, ModeXadd, SizeW), "stxxaddw")
	add(MemOpcode(ClassStx, ModeXadd, SizeDW), "stxxadddw")

	// Jump
	add(JmpOpcode(JmpJa, SrcK), "ja")
	for _, j := range jmpCondOps {
		add(JmpOpcode(j.op, SrcK), j.name)
		add(JmpOpcode(j.op, SrcX), j.name)
	}
	add(JmpOpcode(JmpCall, SrcK), "call")
	add(JmpOpcode(JmpCall, SrcX), "callx")
	add(JmpOpcode(JmpExit, SrcK), "exit")

	return t
}

// Lookup returns the registry entry for op.
func Lookup(op Opcode) (OpcodeInfo, bool) {
	info := opcodeTable[op]
	return info, info.Mnemonic != ""
}

// Opcodes returns every registered opcode in ascending byte order.
func Opcodes() []OpcodeInfo {
	var out []OpcodeInfo
	for _, info := range opcodeTable {
		if info.Mnemonic != "" {
			out = append(out, info)
		}
	}
	return out
}

// Valid reports whether op is a registered opcode.
func (op Opcode) Valid() bool {
	return opcodeTable[op].Mnemonic != ""
}

// String returns the mnemonic, or invalid(0xNN) for unregistered bytes.
func (op Opcode) String() string {
	if m := opcodeTable[op].Mnemonic; m != "" {
		return m
	}
	return fmt.Sprintf("invalid(0x%02x)", uint8(op))
}
