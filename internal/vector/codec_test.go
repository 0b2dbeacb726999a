package vector

import (
	"math"
	"testing"
)

func TestNormalize_UnitNorm(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v, want [0.6 0.8]", v)
	}
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("v[%d] = %f, want 0", i, x)
		}
	}
}

func TestNormalizeBatch(t *testing.T) {
	vs := [][]float32{{2, 0}, {0, 0}, {0, 5}}
	NormalizeBatch(vs)
	if vs[0][0] != 1 || vs[2][1] != 1 {
		t.Errorf("rows not normalized: %v", vs)
	}
	if vs[1][0] != 0 || vs[1][1] != 0 {
		t.Errorf("zero row changed: %v", vs[1])
	}
}
