package sqlite

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlite "modernc.org/sqlite"
)

// Distance functions registered on the driver.
const (
	fnCosine       = "vec_distance_cosine"
	fnInnerProduct = "vec_distance_ip"
)

var registerOnce sync.Once

// registerFunctions makes the distance functions available to connections opened afterwards.
func registerFunctions() {
	registerOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction(fnCosine, 2, cosineDistance)
		_ = sqlite.RegisterDeterministicScalarFunction(fnInnerProduct, 2, innerProductDistance)
	})
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func vectorArgs(name string, args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	ab, ok := args[0].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("%s: unsupported argument type %T, want BLOB", name, args[0])
	}
	bb, ok := args[1].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("%s: unsupported argument type %T, want BLOB", name, args[1])
	}
	a, err := decodeVector(ab)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	b, err := decodeVector(bb)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("%s: dim mismatch %d vs %d", name, len(a), len(b))
	}
	return a, b, nil
}

// cosineDistance returns 1 - cos(a, b). A zero-magnitude operand has distance 1.
func cosineDistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := vectorArgs(fnCosine, args)
	if err != nil {
		return nil, err
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 1.0, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// innerProductDistance returns 1 - a·b, which equals cosine distance for unit vectors.
func innerProductDistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := vectorArgs(fnInnerProduct, args)
	if err != nil {
		return nil, err
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot, nil
}
