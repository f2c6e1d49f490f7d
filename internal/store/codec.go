package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// encodeFloats packs x as little-endian float64s.
func encodeFloats(x []float64) ([]byte, error) {
	raw := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return compress(raw)
}

func decodeFloats(data []byte, n int) ([]float64, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, err
	}
	if len(raw) != 8*n {
		return nil, fmt.Errorf("blob holds %d bytes, want %d", len(raw), 8*n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

// encodePerms packs equal-length permutations as little-endian uint32s.
func encodePerms(perms [][]int) ([]byte, int, error) {
	size := 0
	if len(perms) > 0 {
		size = len(perms[0])
	}
	raw := make([]byte, 0, 4*size*len(perms))
	for k, p := range perms {
		if len(p) != size {
			return nil, 0, fmt.Errorf("permutation %d has length %d, want %d", k, len(p), size)
		}
		for _, j := range p {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(j))
		}
	}
	data, err := compress(raw)
	return data, size, err
}

func decodePerms(data []byte, count, size int) ([][]int, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, err
	}
	if len(raw) != 4*count*size {
		return nil, fmt.Errorf("blob holds %d bytes, want %d", len(raw), 4*count*size)
	}
	out := make([][]int, count)
	for k := range out {
		out[k] = make([]int, size)
		for i := range out[k] {
			out[k][i] = int(binary.LittleEndian.Uint32(raw[4*(k*size+i):]))
		}
	}
	return out, nil
}
