// Package enhance implements the low-light enhancement pipeline.
//
// Four fixed stages run in order over an RGBA buffer: curve-based
// exposure lift, detail/colour refinement (adaptive saturation plus
// variance-adaptive sharpening), edge-aware denoising, and conditional
// tone mapping. Each stage reads from an immutable snapshot where it
// needs neighbour values and writes disjoint row ranges, so stages
// parallelise over rows with a barrier between them.
//
// This package is the composition root for the pixel path: it imports
// pixel, workpool and codec, but none of those import enhance.
package enhance
