package runner

import (
	"context"
	"errors"
)

// ErrSchemaMismatch marks a graph whose declared inputs or outputs
// cannot be satisfied from a token block. Fatal to the run.
var ErrSchemaMismatch = errors.New("graph schema mismatch")

// Logits is one forward pass worth of per-position vocabulary scores,
// batch dimension already stripped (the harness always runs unit
// batches at the tensor level).
type Logits struct {
	Data  []float32
	Seq   int
	Vocab int
}

// Row returns the vocabulary scores predicted at position i.
func (l *Logits) Row(i int) []float32 {
	return l.Data[i*l.Vocab : (i+1)*l.Vocab]
}

// Session is one loaded inference graph. Implementations are
// synchronous; Run blocks until the forward pass completes.
type Session interface {
	// InputNames reports the graph's declared input tensors. Every one
	// of them is fed the block on each Run.
	InputNames() []string
	// OutputCount reports how many outputs the graph declares; the
	// first one is interpreted as logits.
	OutputCount() int
	// Run executes one forward pass over a single block.
	Run(ctx context.Context, block []int64) (*Logits, error)
	Close() error
}
