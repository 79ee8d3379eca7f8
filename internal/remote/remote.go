package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/perpbench/perpbench/internal/runner"
)

// Wire contract with a remote inference engine: one DoExchange per
// block. Request record: a single List<Int64> row of token ids.
// Response record: a List<Float32> row of flattened logits plus the
// vocabulary width, so the sequence length falls out of the division.
var (
	blockSchema = arrow.NewSchema([]arrow.Field{
		{Name: "input_ids", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
	}, nil)
)

// Session is a runner.Session that ships blocks to an Arrow Flight
// inference endpoint instead of executing a local graph.
type Session struct {
	client flight.Client
	pool   memory.Allocator
}

// Dial connects to a Flight inference endpoint.
func Dial(addr string) (*Session, error) {
	if addr == "" {
		return nil, fmt.Errorf("remote inference address required")
	}
	client, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect flight endpoint %s: %w", addr, err)
	}
	return &Session{client: client, pool: memory.NewGoAllocator()}, nil
}

func (s *Session) InputNames() []string {
	return []string{"input_ids"}
}

func (s *Session) OutputCount() int {
	return 1
}

// Run exchanges one block for its logits.
func (s *Session) Run(ctx context.Context, block []int64) (*runner.Logits, error) {
	stream, err := s.client.DoExchange(ctx)
	if err != nil {
		return nil, fmt.Errorf("open exchange: %w", err)
	}

	if err := s.sendBlock(stream, block); err != nil {
		return nil, err
	}

	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("read logits stream: %w", err)
	}
	defer rdr.Release()

	for rdr.Next() {
		return decodeLogits(rdr.Record())
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read logits: %w", err)
	}
	return nil, fmt.Errorf("%w: empty response from remote engine", runner.ErrSchemaMismatch)
}

func (s *Session) sendBlock(stream flight.FlightService_DoExchangeClient, block []int64) error {
	wr := flight.NewRecordWriter(stream, ipc.WithSchema(blockSchema), ipc.WithAllocator(s.pool))

	bld := array.NewListBuilder(s.pool, arrow.PrimitiveTypes.Int64)
	defer bld.Release()
	bld.Append(true)
	bld.ValueBuilder().(*array.Int64Builder).AppendValues(block, nil)
	col := bld.NewListArray()
	defer col.Release()

	rec := array.NewRecord(blockSchema, []arrow.Array{col}, 1)
	defer rec.Release()

	if err := wr.Write(rec); err != nil {
		return fmt.Errorf("send block: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("close block stream: %w", err)
	}
	return stream.CloseSend()
}

// decodeLogits unpacks a response record into per-position logits.
func decodeLogits(rec arrow.Record) (*runner.Logits, error) {
	if rec.NumCols() < 2 || rec.NumRows() < 1 {
		return nil, fmt.Errorf("%w: response needs logits and vocab columns",
			runner.ErrSchemaMismatch)
	}
	list, ok := rec.Column(0).(*array.List)
	if !ok {
		return nil, fmt.Errorf("%w: logits column is %s, want list<float32>",
			runner.ErrSchemaMismatch, rec.Column(0).DataType())
	}
	values, ok := list.ListValues().(*array.Float32)
	if !ok {
		return nil, fmt.Errorf("%w: logits values are %s, want float32",
			runner.ErrSchemaMismatch, list.ListValues().DataType())
	}
	vocabCol, ok := rec.Column(1).(*array.Int32)
	if !ok {
		return nil, fmt.Errorf("%w: vocab column is %s, want int32",
			runner.ErrSchemaMismatch, rec.Column(1).DataType())
	}

	lo, hi := list.ValueOffsets(0)
	data := make([]float32, hi-lo)
	copy(data, values.Float32Values()[lo:hi])

	vocab := int(vocabCol.Value(0))
	if vocab <= 0 || len(data)%vocab != 0 {
		return nil, fmt.Errorf("%w: %d logits do not divide by vocab %d",
			runner.ErrSchemaMismatch, len(data), vocab)
	}
	return &runner.Logits{Data: data, Seq: len(data) / vocab, Vocab: vocab}, nil
}

func (s *Session) Close() error {
	return s.client.Close()
}
