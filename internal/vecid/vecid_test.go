package vecid

import "testing"

func TestVectorID_Deterministic(t *testing.T) {
	a := VectorID("listing-123")
	b := VectorID("listing-123")
	if a != b {
		t.Errorf("same listing ID produced different vector IDs: %d vs %d", a, b)
	}
}

func TestVectorID_NonNegative(t *testing.T) {
	for _, id := range []string{"", "a", "listing-1", "507f1f77bcf86cd799439011", "äöü"} {
		if v := VectorID(id); v < 0 {
			t.Errorf("VectorID(%q) = %d, want non-negative", id, v)
		}
	}
}

func TestVectorID_DistinctInputs(t *testing.T) {
	if VectorID("listing-1") == VectorID("listing-2") {
		t.Error("distinct listing IDs unexpectedly collided")
	}
}
