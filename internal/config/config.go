package config

import (
	"fmt"
	"strings"
)

// Mode selects what a benchmark run reports.
type Mode string

const (
	ModeAccuracy    Mode = "accuracy"
	ModePerformance Mode = "performance"
)

// Config carries one evaluation run. Populated from flags in cmd and
// validated once before any component is constructed.
type Config struct {
	ModelPath    string // serialized inference graph
	EvalDataFile string // held-out text corpus

	ModelType string // tokenizer family, closed set (only "gpt2")
	ModelID   string // checkpoint identity: cache-key component and vocab location
	CacheDir  string

	BlockSize      int // <=0 means "tokenizer maximum"
	BatchSize      int
	OverwriteCache bool

	WarmupSteps int
	MaxIters    int // accuracy-run step cap, 0 = whole dataset

	Benchmark bool
	Mode      Mode

	Tune        bool
	TuneConfig  string
	OutputModel string

	RemoteAddr string // Arrow Flight inference endpoint, empty = in-process ONNX
	OrtLibrary string // onnxruntime shared library override

	MetricsAddr string
}

func (c *Config) Validate() error {
	if c.ModelPath == "" && c.RemoteAddr == "" {
		return fmt.Errorf("model path required (or a remote inference endpoint)")
	}
	if c.EvalDataFile == "" {
		return fmt.Errorf("eval data file required")
	}
	if c.ModelID == "" {
		return fmt.Errorf("model name or path required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d (must be positive)", c.BatchSize)
	}
	if c.WarmupSteps < 0 {
		return fmt.Errorf("invalid warmup steps: %d (must be non-negative)", c.WarmupSteps)
	}
	if c.MaxIters < 0 {
		return fmt.Errorf("invalid iteration cap: %d (must be non-negative)", c.MaxIters)
	}
	switch Mode(strings.ToLower(string(c.Mode))) {
	case ModeAccuracy, ModePerformance, "":
	default:
		return fmt.Errorf("invalid mode: %q (accuracy or performance)", c.Mode)
	}
	if c.Tune {
		if c.TuneConfig == "" {
			return fmt.Errorf("tuning requires a config file path")
		}
		if c.OutputModel == "" {
			return fmt.Errorf("tuning requires an output model path")
		}
		if c.ModelPath == "" {
			return fmt.Errorf("tuning requires a local model path")
		}
	}
	return nil
}

// ReportMode normalizes the benchmark mode, defaulting to accuracy.
func (c *Config) ReportMode() Mode {
	m := Mode(strings.ToLower(string(c.Mode)))
	if m == "" {
		return ModeAccuracy
	}
	return m
}

func Default() Config {
	return Config{
		ModelType:   "gpt2",
		CacheDir:    "dataset_cached",
		BatchSize:   4,
		WarmupSteps: 10,
		Mode:        ModeAccuracy,
		OutputModel: "gpt2_tune.onnx",
	}
}
