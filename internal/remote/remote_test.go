package remote

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/perpbench/perpbench/internal/runner"
)

func TestDialRequiresAddress(t *testing.T) {
	if _, err := Dial(""); err == nil {
		t.Error("expected error for empty address")
	}
}

var responseSchema = arrow.NewSchema([]arrow.Field{
	{Name: "logits", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
	{Name: "vocab", Type: arrow.PrimitiveTypes.Int32},
}, nil)

func buildResponse(t *testing.T, logits []float32, vocab int32) arrow.Record {
	t.Helper()
	pool := memory.NewGoAllocator()

	lb := array.NewListBuilder(pool, arrow.PrimitiveTypes.Float32)
	defer lb.Release()
	lb.Append(true)
	lb.ValueBuilder().(*array.Float32Builder).AppendValues(logits, nil)
	logitsCol := lb.NewListArray()

	vb := array.NewInt32Builder(pool)
	defer vb.Release()
	vb.Append(vocab)
	vocabCol := vb.NewInt32Array()

	return array.NewRecord(responseSchema, []arrow.Array{logitsCol, vocabCol}, 1)
}

func TestDecodeLogits(t *testing.T) {
	rec := buildResponse(t, []float32{1, 2, 3, 4, 5, 6}, 3)
	defer rec.Release()

	got, err := decodeLogits(rec)
	if err != nil {
		t.Fatalf("decodeLogits: %v", err)
	}
	if got.Seq != 2 || got.Vocab != 3 {
		t.Errorf("shape = (%d, %d), want (2, 3)", got.Seq, got.Vocab)
	}
	if got.Row(1)[0] != 4 {
		t.Errorf("Row(1)[0] = %v, want 4", got.Row(1)[0])
	}
}

func TestDecodeLogitsBadVocab(t *testing.T) {
	tests := []struct {
		name  string
		count int
		vocab int32
	}{
		{"zero vocab", 6, 0},
		{"negative vocab", 6, -3},
		{"indivisible", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := buildResponse(t, make([]float32, tt.count), tt.vocab)
			defer rec.Release()

			_, err := decodeLogits(rec)
			if !errors.Is(err, runner.ErrSchemaMismatch) {
				t.Errorf("expected ErrSchemaMismatch, got %v", err)
			}
		})
	}
}

func TestDecodeLogitsMissingColumns(t *testing.T) {
	pool := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "logits", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
	}, nil)

	lb := array.NewListBuilder(pool, arrow.PrimitiveTypes.Float32)
	defer lb.Release()
	lb.Append(true)
	col := lb.NewListArray()
	rec := array.NewRecord(schema, []arrow.Array{col}, 1)
	defer rec.Release()

	_, err := decodeLogits(rec)
	if !errors.Is(err, runner.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}
