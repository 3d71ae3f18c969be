package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/luminance-labs/nightlift/internal/pixel"
)

// Raw sidecar framing: 4-byte magic, big-endian uint32 width and
// height, then the RGBA samples as a single zstd frame. Used to hand
// lossless intermediate buffers between the batch tool and the service
// without a JPEG round trip.
const rawMagic = "NLR1"

// maxRawDim bounds the dimensions DecodeRaw accepts so a corrupt
// header cannot trigger a huge allocation.
const maxRawDim = 1 << 15

// ErrRawMagic is returned when a raw sidecar does not start with the
// expected magic bytes.
var ErrRawMagic = errors.New("codec: bad raw buffer magic")

// EncodeRaw frames buf as a compressed raw sidecar.
func EncodeRaw(buf *pixel.Buffer) ([]byte, error) {
	out := &bytes.Buffer{}
	out.WriteString(rawMagic)
	if err := binary.Write(out, binary.BigEndian, uint32(buf.W)); err != nil {
		return nil, fmt.Errorf("codec: write raw header: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, uint32(buf.H)); err != nil {
		return nil, fmt.Errorf("codec: write raw header: %w", err)
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		return nil, fmt.Errorf("codec: init zstd: %w", err)
	}
	if _, err := enc.Write(buf.Pix); err != nil {
		enc.Close()
		return nil, fmt.Errorf("codec: compress raw samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: flush zstd: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeRaw parses a raw sidecar produced by EncodeRaw.
func DecodeRaw(data []byte) (*pixel.Buffer, error) {
	r := bytes.NewReader(data)
	magic := make([]byte, len(rawMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("codec: read raw magic: %w", err)
	}
	if string(magic) != rawMagic {
		return nil, ErrRawMagic
	}
	var w32, h32 uint32
	if err := binary.Read(r, binary.BigEndian, &w32); err != nil {
		return nil, fmt.Errorf("codec: read raw header: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &h32); err != nil {
		return nil, fmt.Errorf("codec: read raw header: %w", err)
	}
	if w32 == 0 || h32 == 0 || w32 > maxRawDim || h32 > maxRawDim {
		return nil, fmt.Errorf("codec: raw dimensions %dx%d out of range", w32, h32)
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("codec: init zstd: %w", err)
	}
	defer dec.Close()
	pix, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("codec: decompress raw samples: %w", err)
	}
	want := int(w32) * int(h32) * pixel.Channels
	if len(pix) != want {
		return nil, fmt.Errorf("codec: raw payload is %d bytes, want %d for %dx%d", len(pix), want, w32, h32)
	}
	return pixel.FromRaw(int(w32), int(h32), pix), nil
}
