package runner

import (
	"testing"
)

func TestLogitsRow(t *testing.T) {
	l := &Logits{
		Data:  []float32{1, 2, 3, 4, 5, 6},
		Seq:   2,
		Vocab: 3,
	}

	row0 := l.Row(0)
	if len(row0) != 3 || row0[0] != 1 || row0[2] != 3 {
		t.Errorf("Row(0) = %v, want [1 2 3]", row0)
	}
	row1 := l.Row(1)
	if len(row1) != 3 || row1[0] != 4 || row1[2] != 6 {
		t.Errorf("Row(1) = %v, want [4 5 6]", row1)
	}
}
