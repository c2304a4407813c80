package sbpf

import (
	"bytes"
	"errors"
	"testing"
)

// TestDecode tests field extraction from a raw slot.
func TestDecode(t *testing.T) {
	data := []byte{0x07, 0x61, 0x02, 0x00, 0x2a, 0x00, 0x00, 0x00}

	ins, err := Decode(data, 0)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if ins.Op != OpAdd64Imm {
		t.Errorf("Op = 0x%02x, want 0x07", uint8(ins.Op))
	}
	if ins.Op.Class() != ClassAlu64 {
		t.Errorf("Class = %v, want alu64", ins.Op.Class())
	}
	if ins.Src != 6 {
		t.Errorf("Src = %d, want 6", ins.Src)
	}
	if ins.Dst != 1 {
		t.Errorf("Dst = %d, want 1", ins.Dst)
	}
	if ins.Off != 2 {
		t.Errorf("Off = %d, want 2", ins.Off)
	}
	if ins.Imm != 42 {
		t.Errorf("Imm = %d, want 42", ins.Imm)
	}
	if ins.Ptr != 0 {
		t.Errorf("Ptr = %d, want 0", ins.Ptr)
	}
}

// TestDecodeSigned tests sign extension of offset and immediate.
func TestDecodeSigned(t *testing.T) {
	data := []byte{0x15, 0xf3, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xff}

	ins, err := Decode(data, 0x48)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if ins.Off != -1 {
		t.Errorf("Off = %d, want -1", ins.Off)
	}
	if ins.Imm != -2 {
		t.Errorf("Imm = %d, want -2", ins.Imm)
	}
	if ins.Uimm() != 0xfffffffe {
		t.Errorf("Uimm() = 0x%x, want 0xfffffffe", ins.Uimm())
	}
	if ins.Ptr != 0x48 {
		t.Errorf("Ptr = 0x%x, want 0x48", ins.Ptr)
	}
	// Register 15 is out of range but must survive decoding.
	if ins.Src != 15 || ins.Dst != 3 {
		t.Errorf("Src/Dst = %d/%d, want 15/3", ins.Src, ins.Dst)
	}
	if ins.Src.Valid() {
		t.Error("r15.Valid() = true, want false")
	}
	if !ins.Dst.Valid() || !Register(StackReg).Valid() {
		t.Error("r3/r10 reported invalid")
	}
}

// TestDecodeShort tests that short input is rejected.
func TestDecodeShort(t *testing.T) {
	full := []byte{0x07, 0x61, 0x02, 0x00, 0x2a, 0x00, 0x00, 0x00}

	for n := 0; n < InsnSize; n++ {
		ins, err := Decode(full[:n], 0)
		if !errors.Is(err, ErrShortInstruction) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrShortInstruction", n, err)
		}
		if ins != (Instruction{}) {
			t.Errorf("Decode(%d bytes) = %+v, want zero record", n, ins)
		}
	}
}

// TestDecodeReadsOneSlot tests that bytes past the slot are ignored.
func TestDecodeReadsOneSlot(t *testing.T) {
	data := []byte{0x95, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff}

	ins, err := Decode(data, 0)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if ins.Op != OpExit || ins.Imm != 0 {
		t.Errorf("Decode() = %+v, want exit", ins)
	}
}

// TestDecodeUnknownOpcode tests that unregistered opcodes decode unchanged.
func TestDecodeUnknownOpcode(t *testing.T) {
	data := Encode(Opcode(0xff), 12, 14, 7, 9)

	ins, err := Decode(data, 0)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if ins.Op != 0xff || ins.Dst != 12 || ins.Src != 14 || ins.Off != 7 || ins.Imm != 9 {
		t.Errorf("Decode() = %+v", ins)
	}
	if ins.Op.Valid() {
		t.Error("Opcode(0xff).Valid() = true")
	}
}

// TestEncodeDecodeRoundTrip tests that Encode inverts Decode.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	slots := [][]byte{
		{0x07, 0x61, 0x02, 0x00, 0x2a, 0x00, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x18, 0x0a, 0x00, 0x80, 0x00, 0x00, 0x00, 0x80},
		{0xdb, 0xb5, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12},
	}

	for _, slot := range slots {
		ins, err := Decode(slot, 0)
		if err != nil {
			t.Fatalf("Decode(%x) failed: %v", slot, err)
		}
		if got := ins.Bytes(); !bytes.Equal(got, slot) {
			t.Errorf("Bytes() = %x, want %x", got, slot)
		}
	}
}

// TestEncodeMasksRegisters tests that register values are truncated to 4 bits.
func TestEncodeMasksRegisters(t *testing.T) {
	got := Encode(OpMov64Reg, 0x11, 0x22, 0, 0)
	if got[1] != 0x21 {
		t.Errorf("Encode() regs byte = 0x%02x, want 0x21", got[1])
	}
}

// TestMemoryAddress tests relative target resolution.
func TestMemoryAddress(t *testing.T) {
	tests := []struct {
		name string
		ptr  uint64
		off  int16
		want uint64
	}{
		{"forward", 0x10, 3, 0x30},
		{"next slot", 0x10, 0, 0x18},
		{"self", 0x40, -1, 0x40},
		{"backward", 0x40, -2, 0x38},
		{"max forward", 0, 32767, 32768 * 8},
		{"max backward", 32768 * 8, -32768, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := Instruction{Ptr: tt.ptr, Op: OpJa, Off: tt.off}
			if got := ins.MemoryAddress(); got != tt.want {
				t.Errorf("MemoryAddress() = 0x%x, want 0x%x", got, tt.want)
			}
		})
	}
}

// TestHasRelativeTarget tests which opcodes carry a slot displacement.
func TestHasRelativeTarget(t *testing.T) {
	tests := []struct {
		op   Opcode
		want bool
	}{
		{OpJa, true},
		{OpJeqImm, true},
		{OpJsleReg, true},
		{OpLdAbsW, true},
		{OpLdIndDW, true},
		{OpCall, false},
		{OpCallx, false},
		{OpExit, false},
		{OpLddw, false},
		{OpLdxw, false},
		{OpAdd64Imm, false},
		{Opcode(0xf5), false},
	}

	for _, tt := range tests {
		ins := Instruction{Op: tt.op}
		if got := ins.HasRelativeTarget(); got != tt.want {
			t.Errorf("HasRelativeTarget(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

// TestInstructionString tests disassembly output.
func TestInstructionString(t *testing.T) {
	tests := []struct {
		ins  Instruction
		want string
	}{
		{Instruction{Op: OpAdd64Imm, Dst: 1, Imm: 42}, "add64 r1, 42"},
		{Instruction{Op: OpSub32Reg, Dst: 2, Src: 3}, "sub32 r2, r3"},
		{Instruction{Op: OpNeg64, Dst: 4}, "neg64 r4"},
		{Instruction{Op: OpBe, Dst: 1, Imm: 16}, "be16 r1"},
		{Instruction{Op: OpLddw, Dst: 0, Imm: 0x2a}, "lddw r0, 0x2a"},
		{Instruction{Op: OpLdAbsB, Imm: 3}, "ldabsb 0x3"},
		{Instruction{Op: OpLdIndW, Src: 6, Imm: 4}, "ldindw r6, 0x4"},
		{Instruction{Op: OpLdxw, Dst: 1, Src: 10, Off: -8}, "ldxw r1, [r10-8]"},
		{Instruction{Op: OpStb, Dst: 10, Off: -1, Imm: 7}, "stb [r10-1], 7"},
		{Instruction{Op: OpStxdw, Dst: 1, Src: 2, Off: 16}, "stxdw [r1+16], r2"},
		{Instruction{Op: OpJa, Off: -3}, "ja -3"},
		{Instruction{Op: OpJeqImm, Dst: 1, Imm: 0, Off: 2}, "jeq r1, 0, +2"},
		{Instruction{Op: OpJsgtReg, Dst: 1, Src: 2, Off: 5}, "jsgt r1, r2, +5"},
		{Instruction{Op: OpCall, Imm: 0x71e3cf81}, "call 0x71e3cf81"},
		{Instruction{Op: OpCallx, Imm: 3}, "callx r3"},
		{Instruction{Op: OpExit}, "exit"},
		{Instruction{Op: Opcode(0x06)}, "invalid(0x06)"},
	}

	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// TestDecodeParallel tests that concurrent decodes of a shared buffer agree.
func TestDecodeParallel(t *testing.T) {
	data := Encode(OpJsltReg, 3, 4, -5, 1000)
	want, err := Decode(data, 0x20)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		t.Run("worker", func(t *testing.T) {
			t.Parallel()
			for j := 0; j < 1000; j++ {
				got, err := Decode(data, 0x20)
				if err != nil || got != want {
					t.Fatalf("Decode() = %+v, %v, want %+v", got, err, want)
				}
			}
		})
	}
}
