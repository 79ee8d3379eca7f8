package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// The cache artifact is an Arrow IPC file with a single List<Int64>
// column; one row per block. Arrow gives an exact byte-stable
// round-trip for the id sequences.
var artifactSchema = arrow.NewSchema([]arrow.Field{
	{Name: "input_ids", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
}, nil)

func saveArtifact(path string, blocks []Block) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	pool := memory.NewGoAllocator()
	bld := array.NewListBuilder(pool, arrow.PrimitiveTypes.Int64)
	defer bld.Release()
	values := bld.ValueBuilder().(*array.Int64Builder)
	for _, b := range blocks {
		bld.Append(true)
		values.AppendValues(b, nil)
	}
	col := bld.NewListArray()
	defer col.Release()

	rec := array.NewRecord(artifactSchema, []arrow.Array{col}, int64(len(blocks)))
	defer rec.Release()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(artifactSchema), ipc.WithAllocator(pool))
	if err != nil {
		f.Close()
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadArtifact(path string, blockSize int) (*BlockDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheDecode, path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheDecode, path, err)
	}
	defer r.Close()

	var blocks []Block
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCacheDecode, path, err)
		}
		list, ok := rec.Column(0).(*array.List)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unexpected column type %s",
				ErrCacheDecode, path, rec.Column(0).DataType())
		}
		values, ok := list.ListValues().(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unexpected value type %s",
				ErrCacheDecode, path, list.ListValues().DataType())
		}
		for i := 0; i < list.Len(); i++ {
			lo, hi := list.ValueOffsets(i)
			b := make(Block, hi-lo)
			copy(b, values.Int64Values()[lo:hi])
			blocks = append(blocks, b)
		}
	}

	return &BlockDataset{blocks: blocks, blockSize: blockSize}, nil
}
