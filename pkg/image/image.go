// Package image holds sBPF program images: the flat instruction bytes of a
// program's text section, decoded from their transport encoding and placed
// in a host-aligned buffer.
//
// Images are identified by the BLAKE3 hash of their bytes. A Keccak-256 hash
// is computed alongside for matching against tools that report it.
package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/fortiblox/sbpf-isa/pkg/sbpf"
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// IDSize is the size of an image ID in bytes.
const IDSize = 32

// MaxPayloadSize bounds encoded input read by Read and Load.
const MaxPayloadSize = 4 << 20

var (
	// ErrEmpty is returned for an image with no instructions.
	ErrEmpty = errors.New("empty program image")

	// ErrUnknownEncoding is returned for an unsupported encoding name.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrInvalidID is returned when an ID string has the wrong length.
	ErrInvalidID = errors.New("invalid image id: must be 32 bytes")

	// ErrTooLarge is returned when encoded input exceeds MaxPayloadSize.
	ErrTooLarge = errors.New("program image payload too large")

	// ErrOutOfRange is returned for an instruction index past the end.
	ErrOutOfRange = errors.New("instruction index out of range")
)

// ID is the BLAKE3-256 hash of an image's bytes.
type ID [IDSize]byte

// ParseID parses a base58-encoded image ID.
func ParseID(s string) (ID, error) {
	var id ID
	data, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != IDSize {
		return id, ErrInvalidID
	}
	copy(id[:], data)
	return id, nil
}

// String returns the base58 encoding of the ID.
func (id ID) String() string {
	return base58.Encode(id[:])
}

// Image is an immutable program image.
type Image struct {
	code      []byte
	id        ID
	keccak256 [32]byte
}

// New validates code as a sequence of instruction slots and copies it into
// a HostAlign-aligned buffer.
func New(code []byte) (*Image, error) {
	if len(code) == 0 {
		return nil, ErrEmpty
	}
	if err := sbpf.CheckLayout(code); err != nil {
		return nil, err
	}

	img := &Image{
		code: alignedCopy(code),
		id:   blake3.Sum256(code),
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	copy(img.keccak256[:], h.Sum(nil))
	return img, nil
}

// Decode decodes an encoded payload into an image.
func Decode(payload []byte, enc Encoding) (*Image, error) {
	code, err := decodePayload(payload, enc)
	if err != nil {
		return nil, err
	}
	return New(code)
}

// Read reads and decodes an image from r.
func Read(r io.Reader, enc Encoding) (*Image, error) {
	payload, err := io.ReadAll(io.LimitReader(r, MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrTooLarge
	}
	return Decode(payload, enc)
}

// Load reads and decodes an image file.
func Load(path string, enc Encoding) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return Read(f, enc)
}

// Encode encodes the image bytes.
func (img *Image) Encode(enc Encoding) ([]byte, error) {
	return encodePayload(img.code, enc)
}

// ID returns the image ID.
func (img *Image) ID() ID {
	return img.id
}

// Keccak256 returns the Keccak-256 hash of the image bytes.
func (img *Image) Keccak256() [32]byte {
	return img.keccak256
}

// Bytes returns the aligned image bytes. Callers must not modify them.
func (img *Image) Bytes() []byte {
	return img.code
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.code)
}

// NumInstructions returns the number of instruction slots.
func (img *Image) NumInstructions() int {
	return len(img.code) / sbpf.InsnSize
}

// Instruction decodes the i-th slot.
func (img *Image) Instruction(i int) (sbpf.Instruction, error) {
	if i < 0 || i >= img.NumInstructions() {
		return sbpf.Instruction{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, img.NumInstructions())
	}
	off := i * sbpf.InsnSize
	return sbpf.Decode(img.code[off:], uint64(off))
}

// Instructions decodes every slot.
func (img *Image) Instructions() ([]sbpf.Instruction, error) {
	return sbpf.DecodeProgram(img.code)
}

// alignedCopy copies b into a buffer whose first byte is HostAlign-aligned.
func alignedCopy(b []byte) []byte {
	buf := make([]byte, len(b)+sbpf.HostAlign)
	start := 0
	if rem := uintptr(unsafe.Pointer(&buf[0])) % sbpf.HostAlign; rem != 0 {
		start = int(sbpf.HostAlign - rem)
	}
	out := buf[start : start+len(b) : start+len(b)]
	copy(out, b)
	return out
}
