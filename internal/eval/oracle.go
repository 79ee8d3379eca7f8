package eval

import (
	"context"
	"fmt"

	"github.com/perpbench/perpbench/internal/dataset"
	"github.com/perpbench/perpbench/internal/logger"
	"github.com/perpbench/perpbench/internal/metrics"
	"github.com/perpbench/perpbench/internal/runner"
)

// SessionLoader opens a session for a candidate serialized graph.
type SessionLoader func(graph []byte) (runner.Session, error)

// Oracle is the accuracy oracle handed to an external quantization
// driver. It binds a fixed dataset, loader and options with no ambient
// state, so repeated scoring of candidate graphs is deterministic and
// side-effect free apart from timing counters.
type Oracle struct {
	ds           *dataset.BlockDataset
	opts         Options
	load         SessionLoader
	calibSamples int
	log          *logger.Logger
}

func NewOracle(ds *dataset.BlockDataset, opts Options, load SessionLoader, calibSamples int, log *logger.Logger) *Oracle {
	return &Oracle{
		ds:           ds,
		opts:         opts,
		load:         load,
		calibSamples: calibSamples,
		log:          log,
	}
}

// Score evaluates one candidate graph and returns its scalar accuracy.
// A fresh session and a fresh score aggregation are used per call.
func (o *Oracle) Score(ctx context.Context, graph []byte) (float64, error) {
	sess, err := o.load(graph)
	if err != nil {
		return 0, fmt.Errorf("load candidate graph: %w", err)
	}
	defer sess.Close()

	res, err := Run(ctx, sess, o.ds, o.opts, o.log)
	if err != nil {
		return 0, err
	}
	metrics.RecordOracleCall()
	return res.Accuracy, nil
}

// Calibration returns the bounded, reusable calibration sample: a
// prefix of the dataset the driver can collect statistics over.
func (o *Oracle) Calibration() []dataset.Block {
	return o.ds.Prefix(o.calibSamples)
}
