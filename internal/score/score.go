package score

import (
	"errors"
	"math"
	"time"

	"github.com/perpbench/perpbench/internal/runner"
)

// IgnoreIndex is the reserved label excluded from the loss.
const IgnoreIndex = -1

// ErrNoSteps is returned by Finalize when nothing was observed; the
// mean loss would otherwise divide by zero.
var ErrNoSteps = errors.New("no evaluation steps recorded")

// CrossEntropy scores self-supervised next-token prediction: the logits
// at position i are scored against the label at position i+1 (the block
// itself supplies the labels), averaged over scored positions. Labels
// equal to IgnoreIndex are skipped.
func CrossEntropy(l *runner.Logits, labels []int64) float64 {
	limit := l.Seq - 1
	if len(labels)-1 < limit {
		limit = len(labels) - 1
	}

	var sum float64
	var scored int
	for pos := 0; pos < limit; pos++ {
		target := labels[pos+1]
		if target == IgnoreIndex {
			continue
		}
		row := l.Row(pos)
		if target < 0 || target >= int64(len(row)) {
			continue
		}
		sum += logSumExp(row) - float64(row[target])
		scored++
	}
	if scored == 0 {
		return 0
	}
	return sum / float64(scored)
}

// logSumExp computes log(sum(exp(row))) shifted by the row maximum for
// numerical stability.
func logSumExp(row []float32) float64 {
	max := float64(row[0])
	for _, v := range row[1:] {
		if float64(v) > max {
			max = float64(v)
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - max)
	}
	return max + math.Log(sum)
}

// Aggregator is the running score of one evaluation pass. Loss
// accumulates over every step; elapsed time only over steps past the
// warm-up window. The two windows are independent by contract.
type Aggregator struct {
	batchSize   int
	warmupSteps int

	lossSum float64
	steps   int
	elapsed time.Duration
}

func NewAggregator(batchSize, warmupSteps int) *Aggregator {
	if batchSize <= 0 {
		batchSize = 1
	}
	if warmupSteps < 0 {
		warmupSteps = 0
	}
	return &Aggregator{batchSize: batchSize, warmupSteps: warmupSteps}
}

// Observe accounts one step: its mean loss and the wall-clock time the
// inference took. The first warmupSteps observations keep their loss
// but are excluded from the elapsed-time accumulator.
func (a *Aggregator) Observe(loss float64, elapsed time.Duration) {
	if a.steps >= a.warmupSteps {
		a.elapsed += elapsed
	}
	a.lossSum += loss
	a.steps++
}

// Steps reports the accounted step count. The iteration cap is caller
// discipline: the loop stops observing, the aggregator never refuses.
func (a *Aggregator) Steps() int {
	return a.steps
}

// Result is the immutable snapshot of one evaluation pass.
type Result struct {
	Accuracy   float64
	Perplexity float64
	Throughput float64       // samples/s over post-warm-up steps
	Latency    time.Duration // per-step, only meaningful when BatchSize == 1
	HasPerf    bool
	BatchSize  int
	Steps      int
}

// Finalize derives the run's scores. Zero observed steps is an error
// rather than a division by zero; zero post-warm-up steps leaves the
// performance fields unset while the accuracy path still proceeds.
func (a *Aggregator) Finalize() (Result, error) {
	if a.steps == 0 {
		return Result{}, ErrNoSteps
	}

	mean := a.lossSum / float64(a.steps)
	perplexity := math.Exp(mean)
	res := Result{
		Accuracy:   100 - perplexity,
		Perplexity: perplexity,
		BatchSize:  a.batchSize,
		Steps:      a.steps,
	}

	post := a.steps - a.warmupSteps
	if post > 0 && a.elapsed > 0 {
		res.HasPerf = true
		res.Throughput = float64(post*a.batchSize) / a.elapsed.Seconds()
		if a.batchSize == 1 {
			res.Latency = a.elapsed / time.Duration(post)
		}
	}
	return res, nil
}
