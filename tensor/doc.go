// Package tensor holds the dense and sparse array values produced by the parser
// and consumed by feature handlers.
//
// Dense tensors store their elements row-major in a flat typed slice
// ([]float32, []float64, []int32, []int64 or []uint8). Raw byte encoding is
// little-endian, matching numpy's tobytes() on the platforms datasets are
// produced on.
package tensor
