package sbpf

import (
	"bytes"
	"errors"
	"testing"
)

func assemble(slots ...[]byte) []byte {
	return bytes.Join(slots, nil)
}

// TestDecodeProgram tests slicing an image into slots.
func TestDecodeProgram(t *testing.T) {
	image := assemble(
		Encode(OpMov64Imm, 0, 0, 0, 10),
		Encode(OpJeqImm, 0, 0, 1, 10),
		Encode(OpAdd64Imm, 0, 0, 0, 5),
		Encode(OpExit, 0, 0, 0, 0),
	)

	prog, err := DecodeProgram(image)
	if err != nil {
		t.Fatalf("DecodeProgram() failed: %v", err)
	}
	if len(prog) != 4 {
		t.Fatalf("len = %d, want 4", len(prog))
	}

	wantOps := []Opcode{OpMov64Imm, OpJeqImm, OpAdd64Imm, OpExit}
	for i, ins := range prog {
		if ins.Op != wantOps[i] {
			t.Errorf("prog[%d].Op = %v, want %v", i, ins.Op, wantOps[i])
		}
		if ins.Ptr != uint64(i*InsnSize) {
			t.Errorf("prog[%d].Ptr = %d, want %d", i, ins.Ptr, i*InsnSize)
		}
	}

	// jeq +1 at slot 1 skips to the exit at slot 3.
	if got := prog[1].MemoryAddress(); got != prog[3].Ptr {
		t.Errorf("jeq target = 0x%x, want 0x%x", got, prog[3].Ptr)
	}
}

// TestDecodeProgramEmpty tests that an empty image decodes to no slots.
func TestDecodeProgramEmpty(t *testing.T) {
	prog, err := DecodeProgram(nil)
	if err != nil {
		t.Fatalf("DecodeProgram(nil) failed: %v", err)
	}
	if len(prog) != 0 {
		t.Errorf("len = %d, want 0", len(prog))
	}
}

// TestDecodeProgramTrailingBytes tests rejection of partial slots.
func TestDecodeProgramTrailingBytes(t *testing.T) {
	image := append(Encode(OpExit, 0, 0, 0, 0), 0x95, 0x00, 0x00)

	if _, err := DecodeProgram(image); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("DecodeProgram() error = %v, want ErrTrailingBytes", err)
	}
}

// TestDecodeProgramTooLarge tests the instruction count limit.
func TestDecodeProgramTooLarge(t *testing.T) {
	if _, err := DecodeProgram(make([]byte, ProgMaxInsns*InsnSize)); err != nil {
		t.Errorf("DecodeProgram(max) failed: %v", err)
	}

	image := make([]byte, (ProgMaxInsns+1)*InsnSize)
	called := false
	err := Walk(image, func(Instruction) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrProgramTooLarge) {
		t.Errorf("Walk() error = %v, want ErrProgramTooLarge", err)
	}
	if called {
		t.Error("callback ran for oversize program")
	}
}

// TestWalkStops tests that a callback error ends the walk.
func TestWalkStops(t *testing.T) {
	image := assemble(
		Encode(OpMov64Imm, 0, 0, 0, 1),
		Encode(OpExit, 0, 0, 0, 0),
		Encode(OpExit, 0, 0, 0, 0),
	)
	stop := errors.New("stop")

	count := 0
	err := Walk(image, func(ins Instruction) error {
		count++
		if ins.Op == OpExit {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("Walk() error = %v, want stop", err)
	}
	if count != 2 {
		t.Errorf("callback count = %d, want 2", count)
	}
}
