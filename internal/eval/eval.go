package eval

import (
	"context"
	"time"

	"github.com/perpbench/perpbench/internal/dataset"
	"github.com/perpbench/perpbench/internal/logger"
	"github.com/perpbench/perpbench/internal/metrics"
	"github.com/perpbench/perpbench/internal/runner"
	"github.com/perpbench/perpbench/internal/score"
)

// Options configures one evaluation pass.
type Options struct {
	// BatchSize groups blocks into one accounted step. The tensor-level
	// batch stays 1: blocks in a group run back to back and their
	// losses average into one step loss.
	BatchSize   int
	WarmupSteps int
	// MaxIters caps accounted steps past the warm-up window; 0 runs
	// the whole dataset.
	MaxIters int
}

// Run replays the dataset through the session in order, one step per
// block group, and derives the final scores. Timing wraps only the
// inference calls.
func Run(ctx context.Context, sess runner.Session, ds *dataset.BlockDataset, opts Options, log *logger.Logger) (score.Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	agg := score.NewAggregator(opts.BatchSize, opts.WarmupSteps)

	log.Info("running evaluation",
		"num_examples", ds.Len(),
		"batch_size", opts.BatchSize,
		"warmup_steps", opts.WarmupSteps)

	for i := 0; i < ds.Len(); {
		group := opts.BatchSize
		if rem := ds.Len() - i; rem < group {
			group = rem
		}

		var stepLoss float64
		var stepTime time.Duration
		for j := 0; j < group; j++ {
			block := ds.At(i + j)
			start := time.Now()
			logits, err := sess.Run(ctx, block)
			stepTime += time.Since(start)
			if err != nil {
				return score.Result{}, err
			}
			stepLoss += score.CrossEntropy(logits, block)
		}
		i += group

		agg.Observe(stepLoss/float64(group), stepTime)
		metrics.RecordEvalStep(group, stepTime)

		if opts.MaxIters > 0 && agg.Steps() >= opts.WarmupSteps+opts.MaxIters {
			log.Debug("iteration cap reached", "steps", agg.Steps())
			break
		}
	}

	res, err := agg.Finalize()
	if err != nil {
		return score.Result{}, err
	}
	if !res.HasPerf {
		log.Warn("no performance, please check dataset length and warmup number")
	}

	log.Info("eval results", "perplexity", res.Perplexity, "accuracy", res.Accuracy)
	metrics.RecordEvalResult(res.Accuracy, res.Perplexity, res.Throughput)
	return res, nil
}
