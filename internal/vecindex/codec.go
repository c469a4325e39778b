package vecindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

// EncodeVectors serialises a vector table to the on-disk format:
// magic, version, dims and count as uint32 little-endian, followed by
// the vectors as packed float32 values.
func EncodeVectors(dims int, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	header := []uint32{vectorMagic, vectorVersion, uint32(dims), uint32(len(vectors))}
	for _, h := range header {
		if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
			return nil, fmt.Errorf("encode vector header: %w", err)
		}
	}
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector has %d values, table has %d", domain.ErrDimensionMismatch, len(v), dims)
		}
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("encode vectors: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeVectors parses a vector table, validating magic, version and
// exact payload length. Damage surfaces domain.ErrIndexCorrupt.
func DecodeVectors(data []byte) (int, [][]float32, error) {
	r := bytes.NewReader(data)
	var magic, version, dims, count uint32
	for _, field := range []*uint32{&magic, &version, &dims, &count} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return 0, nil, fmt.Errorf("%w: truncated vector header", domain.ErrIndexCorrupt)
		}
	}
	if magic != vectorMagic {
		return 0, nil, fmt.Errorf("%w: bad vector file magic", domain.ErrIndexCorrupt)
	}
	if version != vectorVersion {
		return 0, nil, fmt.Errorf("%w: vector file version %d, want %d", domain.ErrIndexCorrupt, version, vectorVersion)
	}

	want := int64(count) * int64(dims) * 4
	if int64(r.Len()) != want {
		return 0, nil, fmt.Errorf("%w: vector table has %d payload bytes, want %d", domain.ErrIndexCorrupt, r.Len(), want)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dims)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return 0, nil, fmt.Errorf("%w: truncated vector table", domain.ErrIndexCorrupt)
		}
		vectors[i] = v
	}
	return int(dims), vectors, nil
}

// Normalise returns a unit-length copy of v. A zero vector is returned
// as an all-zero copy so it simply scores 0 against everything.
func Normalise(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Dot is the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
