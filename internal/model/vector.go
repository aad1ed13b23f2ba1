package model

import (
	"encoding/binary"
	"math"
)

// EncodeVector serialises a vector of float32s as a fixed little-endian F32
// blob. All reads and writes of embedding columns go through this pair of
// functions (spec §5: "Vector serialisation uses a fixed little-endian F32
// layout; all reads and writes go through a single serialiser/deserialiser").
//
// Grounded on matthewjhunter/memstore's EncodeFloat32s/DecodeFloat32s.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserialises a fixed little-endian F32 blob back into a vector.
func DecodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1],
// or 0 if the vectors have mismatched length, are empty, or either has zero
// magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		magA += fa * fa
		magB += fb * fb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// CosineDistance returns 1 - CosineSimilarity, matching the
// vector_distance_cos semantics used by §4.11 (ascending = closer).
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
