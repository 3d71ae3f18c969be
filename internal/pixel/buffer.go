// Package pixel provides the in-memory raster type the enhancement
// pipeline operates on: row-major, interleaved 8-bit RGBA with the
// origin at the top-left corner.
package pixel

import (
	"image"
	"image/draw"
)

// Bytes per pixel in an interleaved RGBA buffer.
const Channels = 4

// Buffer is a width×height raster of interleaved RGBA samples.
//
// Pix holds exactly W*H*4 bytes in R,G,B,A order, rows packed
// top-to-bottom with no padding. The zero value is not usable; construct
// buffers with New, FromRaw or FromImage.
type Buffer struct {
	W   int     // width in pixels
	H   int     // height in pixels
	Pix []uint8 // interleaved RGBA samples, length W*H*4
}

// New allocates a zeroed buffer of the given dimensions.
// Callers are expected to pass positive dimensions; invalid shapes are
// rejected at the pipeline boundary.
func New(w, h int) *Buffer {
	return &Buffer{W: w, H: h, Pix: make([]uint8, w*h*Channels)}
}

// FromRaw wraps an existing sample slice without copying. The caller
// must not alias pix afterwards; the pipeline assumes exclusive
// ownership.
func FromRaw(w, h int, pix []uint8) *Buffer {
	return &Buffer{W: w, H: h, Pix: pix}
}

// FromImage copies an arbitrary image into a fresh RGBA buffer with
// bounds re-based at (0,0). Premultiplied sources are converted by the
// standard draw path.
func FromImage(src image.Image) *Buffer {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return &Buffer{W: b.Dx(), H: b.Dy(), Pix: rgba.Pix}
}

// Idx returns the offset of pixel (x, y) into Pix. The red sample lives
// at Idx, green/blue/alpha at Idx+1..Idx+3.
func (b *Buffer) Idx(x, y int) int {
	return (y*b.W + x) * Channels
}

// Clone returns an independent copy of the buffer. Stages use clones as
// read-only snapshots so neighbourhood reads see pre-stage values while
// the working buffer is rewritten.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{W: b.W, H: b.H, Pix: pix}
}

// Image exposes the buffer as an *image.RGBA sharing the same sample
// slice (no copy). Mutating the returned image mutates the buffer.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.W * Channels,
		Rect:   image.Rect(0, 0, b.W, b.H),
	}
}

// Luminance returns the Rec.601 luma of one RGB triple on the 0–255
// scale. The same weights are used by the refinement stage and the
// metrics package.
func Luminance(r, g, bl uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
}

// Brightness returns the plain channel mean (R+G+B)/3 used by the
// tone-mapping statistics.
func Brightness(r, g, bl uint8) float64 {
	return (float64(r) + float64(g) + float64(bl)) / 3
}
