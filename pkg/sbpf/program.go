package sbpf

import "fmt"

// CheckLayout reports whether image is a whole number of slots within the
// program size limit.
func CheckLayout(image []byte) error {
	if len(image)%InsnSize != 0 {
		return fmt.Errorf("%w: %d bytes (%d trailing)", ErrTrailingBytes, len(image), len(image)%InsnSize)
	}
	if n := len(image) / InsnSize; n > ProgMaxInsns {
		return fmt.Errorf("%w: %d instructions, max %d", ErrProgramTooLarge, n, ProgMaxInsns)
	}
	return nil
}

// Walk decodes each slot of image in order and passes it to fn. Ptr is the
// slot's byte offset in image. Walking stops at the first error fn returns.
func Walk(image []byte, fn func(Instruction) error) error {
	if err := CheckLayout(image); err != nil {
		return err
	}
	for off := 0; off < len(image); off += InsnSize {
		ins, err := Decode(image[off:off+InsnSize], uint64(off))
		if err != nil {
			return err
		}
		if err := fn(ins); err != nil {
			return err
		}
	}
	return nil
}

// DecodeProgram decodes every slot of image.
func DecodeProgram(image []byte) ([]Instruction, error) {
	if err := CheckLayout(image); err != nil {
		return nil, err
	}
	out := make([]Instruction, 0, len(image)/InsnSize)
	err := Walk(image, func(ins Instruction) error {
		out = append(out, ins)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
