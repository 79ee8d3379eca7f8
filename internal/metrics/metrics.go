package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvalStepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpbench_eval_steps_total",
		Help: "The total number of accounted evaluation steps",
	})

	EvalBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpbench_eval_blocks_total",
		Help: "The total number of token blocks replayed through inference",
	})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "perpbench_inference_duration_seconds",
		Help:    "Wall-clock duration of forward passes, one observation per step",
		Buckets: prometheus.DefBuckets,
	})

	TokenizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "perpbench_tokenize_duration_seconds",
		Help:    "Time to tokenize the full evaluation corpus",
		Buckets: prometheus.DefBuckets,
	})

	TokenizedIDs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "perpbench_tokenized_ids",
		Help:    "Number of token ids produced from a corpus",
		Buckets: []float64{1000, 10000, 100000, 1000000, 10000000},
	})

	DatasetBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpbench_dataset_blocks",
		Help: "Block count of the dataset in use",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpbench_cache_hits_total",
		Help: "Total number of token-block cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpbench_cache_misses_total",
		Help: "Total number of token-block cache rebuilds",
	})

	EvalAccuracy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpbench_eval_accuracy",
		Help: "Accuracy (100 - perplexity) of the last completed evaluation",
	})

	EvalPerplexity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpbench_eval_perplexity",
		Help: "Perplexity of the last completed evaluation",
	})

	EvalThroughput = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpbench_eval_throughput_samples_per_second",
		Help: "Post-warmup throughput of the last completed evaluation",
	})

	OracleCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpbench_oracle_calls_total",
		Help: "Total number of accuracy-oracle invocations by the quantization driver",
	})
)

// RecordEvalStep records one accounted step covering a group of blocks.
func RecordEvalStep(blocks int, duration time.Duration) {
	EvalStepsTotal.Inc()
	EvalBlocksTotal.Add(float64(blocks))
	InferenceDuration.Observe(duration.Seconds())
}

// RecordTokenize records a full-corpus tokenization pass.
func RecordTokenize(ids int, duration time.Duration) {
	TokenizedIDs.Observe(float64(ids))
	TokenizeDuration.Observe(duration.Seconds())
}

func RecordCacheHit(blocks int) {
	CacheHitsTotal.Inc()
	DatasetBlocks.Set(float64(blocks))
}

func RecordCacheMiss(blocks int) {
	CacheMissesTotal.Inc()
	DatasetBlocks.Set(float64(blocks))
}

// RecordEvalResult publishes the scalar outcome of a finished run.
func RecordEvalResult(accuracy, perplexity, throughput float64) {
	EvalAccuracy.Set(accuracy)
	EvalPerplexity.Set(perplexity)
	EvalThroughput.Set(throughput)
}

func RecordOracleCall() {
	OracleCallsTotal.Inc()
}
