package runner

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/perpbench/perpbench/internal/logger"
)

// Options configures the ONNX Runtime session.
type Options struct {
	// SharedLibrary overrides the onnxruntime shared library location.
	// Empty uses the binding's platform default.
	SharedLibrary string
}

// ORTSession executes a serialized ONNX graph through ONNX Runtime.
type ORTSession struct {
	sess        *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

// Load opens an inference session from serialized graph bytes and
// enumerates the declared inputs and outputs. A malformed graph fails
// here, not at the first Run.
func Load(graph []byte, opts Options, log *logger.Logger) (*ORTSession, error) {
	if opts.SharedLibrary != "" {
		ort.SetSharedLibraryPath(opts.SharedLibrary)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(graph)
	if err != nil {
		return nil, fmt.Errorf("read graph schema: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: graph declares no inputs", ErrSchemaMismatch)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: graph declares no outputs", ErrSchemaMismatch)
	}

	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		// Input tensors must accept (batch, sequence) blocks.
		if len(in.Dimensions) != 2 {
			return nil, fmt.Errorf("%w: input %s has rank %d, want 2",
				ErrSchemaMismatch, in.Name, len(in.Dimensions))
		}
		inputNames = append(inputNames, in.Name)
	}
	outputNames := make([]string, 0, len(outputs))
	for _, out := range outputs {
		outputNames = append(outputNames, out.Name)
	}

	sess, err := ort.NewDynamicAdvancedSessionWithONNXData(graph, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("open inference session: %w", err)
	}

	log.Info("inference session ready", "inputs", inputNames, "outputs", len(outputNames))
	return &ORTSession{sess: sess, inputNames: inputNames, outputNames: outputNames}, nil
}

func (s *ORTSession) InputNames() []string {
	return s.inputNames
}

func (s *ORTSession) OutputCount() int {
	return len(s.outputNames)
}

// Run feeds one block, expanded to a (1, len) tensor, to every declared
// input and returns the first output as per-position logits.
func (s *ORTSession) Run(ctx context.Context, block []int64) (*Logits, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := ort.NewShape(1, int64(len(block)))
	inputs := make([]ort.Value, len(s.inputNames))
	defer func() {
		for _, v := range inputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	for i, name := range s.inputNames {
		t, err := ort.NewTensor(shape, block)
		if err != nil {
			return nil, fmt.Errorf("%w: input %s: %v", ErrSchemaMismatch, name, err)
		}
		inputs[i] = t
	}

	outputs := make([]ort.Value, len(s.outputNames))
	if err := s.sess.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	first, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: first output %s is not a float32 tensor",
			ErrSchemaMismatch, s.outputNames[0])
	}
	dims := first.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("%w: output %s has rank %d, want 3 (batch, seq, vocab)",
			ErrSchemaMismatch, s.outputNames[0], len(dims))
	}
	seq, vocab := int(dims[1]), int(dims[2])

	data := make([]float32, seq*vocab)
	copy(data, first.GetData())
	return &Logits{Data: data, Seq: seq, Vocab: vocab}, nil
}

func (s *ORTSession) Close() error {
	return s.sess.Destroy()
}
