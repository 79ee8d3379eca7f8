package quant

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/perpbench/perpbench/internal/dataset"
)

// Config mirrors the tuning YAML handed to an external quantization
// driver.
type Config struct {
	Model struct {
		Name      string `yaml:"name"`
		Framework string `yaml:"framework"`
	} `yaml:"model"`

	Quantization struct {
		Approach    string `yaml:"approach"`
		Calibration struct {
			// SamplingSize bounds the calibration sample in blocks.
			SamplingSize int `yaml:"sampling_size"`
		} `yaml:"calibration"`
	} `yaml:"quantization"`

	Tuning struct {
		AccuracyCriterion struct {
			Relative float64 `yaml:"relative"`
		} `yaml:"accuracy_criterion"`
		ExitPolicy struct {
			Timeout   int `yaml:"timeout"`
			MaxTrials int `yaml:"max_trials"`
		} `yaml:"exit_policy"`
		RandomSeed int64 `yaml:"random_seed"`
	} `yaml:"tuning"`

	// Driver names the registered quantization driver to run.
	Driver string `yaml:"driver"`
}

// LoadConfig reads and validates a tuning config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode tuning config %s: %w", path, err)
	}

	if cfg.Quantization.Approach == "" {
		cfg.Quantization.Approach = "post_training_static_quant"
	}
	if cfg.Quantization.Calibration.SamplingSize <= 0 {
		cfg.Quantization.Calibration.SamplingSize = 100
	}
	if cfg.Tuning.AccuracyCriterion.Relative <= 0 {
		cfg.Tuning.AccuracyCriterion.Relative = 0.01
	}
	if cfg.Tuning.ExitPolicy.MaxTrials <= 0 {
		cfg.Tuning.ExitPolicy.MaxTrials = 100
	}
	return cfg, nil
}

// Oracle is what a driver gets from the harness: a deterministic
// accuracy score for candidate graphs and a bounded calibration sample.
type Oracle interface {
	Score(ctx context.Context, graph []byte) (float64, error)
	Calibration() []dataset.Block
}

// Driver is the external quantization search. The harness ships none;
// implementations register themselves, database/sql style.
type Driver interface {
	Name() string
	// Tune searches for a quantized variant of graph that satisfies
	// the config's accuracy criterion, judging candidates through the
	// oracle. Returns the serialized quantized graph.
	Tune(ctx context.Context, graph []byte, cfg *Config, oracle Oracle) ([]byte, error)
}

var (
	driversMu sync.Mutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available by name. Registering twice under
// the same name panics.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("quant: Register driver is nil")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic("quant: Register called twice for driver " + d.Name())
	}
	drivers[d.Name()] = d
}

// Drivers lists the registered driver names.
func Drivers() []string {
	driversMu.Lock()
	defer driversMu.Unlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Driver, error) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if name == "" {
		return nil, fmt.Errorf("no quantization driver named in tuning config (registered: %v)", registeredLocked())
	}
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown quantization driver %q (registered: %v)", name, registeredLocked())
	}
	return d, nil
}

func registeredLocked() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tune dispatches to the configured driver.
func Tune(ctx context.Context, graph []byte, cfg *Config, oracle Oracle) ([]byte, error) {
	d, err := lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return d.Tune(ctx, graph, cfg, oracle)
}
