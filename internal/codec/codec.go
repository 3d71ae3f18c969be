// Package codec converts between encoded image bytes and pixel buffers.
//
// Decode accepts JPEG, PNG, WebP and QOI input; Encode produces JPEG,
// PNG or QOI. HEIC/HEIF containers are recognised by magic and rejected
// by name, since no pure-Go decoder is bundled for them. The pipeline
// core never touches files; all callers go through this package.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/xfmoulet/qoi"
	_ "golang.org/x/image/webp" // registers WebP with image.Decode

	"github.com/luminance-labs/nightlift/internal/pixel"
)

// DefaultMaxBytes caps how much encoded input Decode accepts when the
// caller passes no explicit limit.
const DefaultMaxBytes = 20 << 20

// DefaultJPEGQuality is used when an encode call passes a quality
// outside [1, 100].
const DefaultJPEGQuality = 92

// ErrTooLarge is returned when encoded input exceeds the size limit.
var ErrTooLarge = errors.New("codec: encoded input exceeds size limit")

// UnsupportedInputError names an input container this build cannot
// decode.
type UnsupportedInputError struct {
	Format string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("codec: no decoder for %s input", e.Format)
}

func init() {
	// QOI does not register itself with the image package; duplicate
	// registration is harmless if a future version does.
	image.RegisterFormat("qoi", "qoif", qoi.Decode, qoi.DecodeConfig)
}

// Decode reads at most maxBytes of encoded input (0 selects
// DefaultMaxBytes) and returns the decoded buffer plus the detected
// format name.
func Decode(r io.Reader, maxBytes int64) (*pixel.Buffer, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("codec: read input: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrTooLarge
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (*pixel.Buffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("codec: empty input")
	}
	if isHEIF(data) {
		return nil, "", &UnsupportedInputError{Format: "heic/heif"}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("codec: decode: %w", err)
	}
	return pixel.FromImage(img), format, nil
}

// isHEIF reports whether data starts with an ISO-BMFF ftyp box carrying
// a HEIF family brand.
func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// Encode serializes buf in the named output format: "jpeg"/"jpg",
// "png" or "qoi". The quality argument applies to JPEG only.
func Encode(buf *pixel.Buffer, format string, quality int) ([]byte, error) {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return EncodeJPEG(buf, quality)
	case "png":
		var b bytes.Buffer
		if err := png.Encode(&b, buf.Image()); err != nil {
			return nil, fmt.Errorf("codec: encode png: %w", err)
		}
		return b.Bytes(), nil
	case "qoi":
		var b bytes.Buffer
		if err := qoi.Encode(&b, buf.Image()); err != nil {
			return nil, fmt.Errorf("codec: encode qoi: %w", err)
		}
		return b.Bytes(), nil
	}
	return nil, fmt.Errorf("codec: unknown output format %q", format)
}

// EncodeJPEG serializes buf as JPEG at the given quality (1–100;
// anything else selects DefaultJPEGQuality).
func EncodeJPEG(buf *pixel.Buffer, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var b bytes.Buffer
	if err := jpeg.Encode(&b, buf.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("codec: encode jpeg: %w", err)
	}
	return b.Bytes(), nil
}
