package image

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/fortiblox/sbpf-isa/pkg/sbpf"
	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"
)

// MaxCodeSize is the size in bytes of the largest valid program.
const MaxCodeSize = sbpf.ProgMaxInsns * sbpf.InsnSize

// maxBase58Len bounds base58 input before decoding, which is quadratic in
// the input length. Each base58 digit carries log2(58) bits.
const maxBase58Len = MaxCodeSize*138/100 + 1

// Encoding is the transport encoding of a program image.
type Encoding string

// Supported encodings. Names follow the Solana RPC account encodings.
const (
	EncodingRaw        Encoding = "raw"
	EncodingHex        Encoding = "hex"
	EncodingBase58     Encoding = "base58"
	EncodingBase64     Encoding = "base64"
	EncodingBase64Zstd Encoding = "base64+zstd"
	EncodingZstd       Encoding = "zstd"
)

// ParseEncoding parses an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case EncodingRaw, EncodingHex, EncodingBase58, EncodingBase64, EncodingBase64Zstd, EncodingZstd:
		return e, nil
	case "":
		return EncodingRaw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// decodePayload turns an encoded payload into program bytes.
func decodePayload(payload []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingRaw:
		return payload, nil

	case EncodingHex:
		// Tolerate line breaks and spacing from hexdumps.
		data, err := hex.DecodeString(strings.Join(strings.Fields(string(payload)), ""))
		if err != nil {
			return nil, fmt.Errorf("hex decode: %w", err)
		}
		return data, nil

	case EncodingBase58:
		text := strings.TrimSpace(string(payload))
		if len(text) > maxBase58Len {
			return nil, fmt.Errorf("%w: %d base58 digits, max %d", ErrTooLarge, len(text), maxBase58Len)
		}
		data, err := base58.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("base58 decode: %w", err)
		}
		return data, nil

	case EncodingBase64:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(payload)))
		if err != nil {
			return nil, fmt.Errorf("base64 decode: %w", err)
		}
		return data, nil

	case EncodingBase64Zstd:
		compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(payload)))
		if err != nil {
			return nil, fmt.Errorf("base64 decode: %w", err)
		}
		return decompressZstd(compressed)

	case EncodingZstd:
		return decompressZstd(payload)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, string(enc))
	}
}

// encodePayload is the inverse of decodePayload.
func encodePayload(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingRaw:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil

	case EncodingHex:
		return []byte(hex.EncodeToString(data)), nil

	case EncodingBase58:
		return []byte(base58.Encode(data)), nil

	case EncodingBase64:
		return []byte(base64.StdEncoding.EncodeToString(data)), nil

	case EncodingBase64Zstd:
		compressed, err := compressZstd(data)
		if err != nil {
			return nil, err
		}
		return []byte(base64.StdEncoding.EncodeToString(compressed)), nil

	case EncodingZstd:
		return compressZstd(data)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, string(enc))
	}
}

// compressZstd compresses data using zstd.
func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

// decompressZstd decompresses zstd-compressed data. Output is streamed and
// stops one byte past MaxCodeSize.
func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer decoder.Close()

	out, err := io.ReadAll(io.LimitReader(decoder, MaxCodeSize+1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) > MaxCodeSize {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", sbpf.ErrProgramTooLarge, MaxCodeSize)
	}
	return out, nil
}
