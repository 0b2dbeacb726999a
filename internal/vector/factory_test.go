package vector

import "testing"

func TestNew_Flat(t *testing.T) {
	idx, err := New("flat", 8)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Type() != string(IndexTypeFlat) {
		t.Errorf("Type=%s", idx.Type())
	}
}

func TestNew_DefaultIsFlat(t *testing.T) {
	idx, err := New("", 8)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Type() != string(IndexTypeFlat) {
		t.Errorf("Type=%s", idx.Type())
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New("hnsw", 8); err == nil {
		t.Error("expected error for unknown index type")
	}
}
