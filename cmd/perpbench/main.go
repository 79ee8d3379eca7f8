package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/perpbench/perpbench/internal/config"
	"github.com/perpbench/perpbench/internal/dataset"
	"github.com/perpbench/perpbench/internal/eval"
	"github.com/perpbench/perpbench/internal/logger"
	"github.com/perpbench/perpbench/internal/quant"
	"github.com/perpbench/perpbench/internal/remote"
	"github.com/perpbench/perpbench/internal/runner"
	"github.com/perpbench/perpbench/internal/score"
	"github.com/perpbench/perpbench/internal/tokenizer"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:          "perpbench",
		Short:        "Perplexity accuracy and latency benchmark for exported language-model graphs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(logLevel, logFormat)
			return run(cmd.Context(), cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ModelPath, "model-path", "", "serialized inference graph (ONNX)")
	flags.StringVar(&cfg.EvalDataFile, "eval-data-file", "", "input evaluation text file to compute perplexity on")
	flags.StringVar(&cfg.ModelType, "model-type", cfg.ModelType, "model architecture family")
	flags.StringVar(&cfg.ModelID, "model-name-or-path", "", "checkpoint directory: cache identity and vocab location")
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "directory for cached token blocks")
	flags.IntVar(&cfg.BlockSize, "block-size", 0, "input sequence length after tokenization, <=0 uses the tokenizer maximum")
	flags.IntVar(&cfg.BatchSize, "per-gpu-eval-batch-size", cfg.BatchSize, "blocks accounted per evaluation step")
	flags.BoolVar(&cfg.OverwriteCache, "overwrite-cache", false, "rebuild the cached evaluation set")
	flags.BoolVar(&cfg.Tune, "tune", false, "run the external quantization tuning driver")
	flags.StringVar(&cfg.TuneConfig, "config", "", "tuning config file path")
	flags.StringVar(&cfg.OutputModel, "output-model", cfg.OutputModel, "output path for the quantized model")
	flags.BoolVar(&cfg.Benchmark, "benchmark", false, "report benchmark results")
	flags.StringVar((*string)(&cfg.Mode), "mode", string(cfg.Mode), "benchmark mode: accuracy or performance")
	flags.IntVar(&cfg.WarmupSteps, "warmup-steps", cfg.WarmupSteps, "initial steps excluded from timing")
	flags.IntVar(&cfg.MaxIters, "iter", 0, "cap on accounted steps past warm-up, 0 runs everything")
	flags.StringVar(&cfg.RemoteAddr, "remote", "", "Arrow Flight inference endpoint instead of a local graph")
	flags.StringVar(&cfg.OrtLibrary, "ort-library", "", "onnxruntime shared library override")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to serve prometheus metrics on")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "console", "log format: console or json")

	cobra.CheckErr(cmd.MarkFlagRequired("eval-data-file"))

	return cmd
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	modelType, err := tokenizer.ParseType(cfg.ModelType)
	if err != nil {
		return err
	}
	tok, err := tokenizer.New(modelType, cfg.ModelID)
	if err != nil {
		return err
	}

	blockSize := cfg.BlockSize
	if blockSize <= 0 || blockSize > tok.MaxLenSingleSentence() {
		blockSize = tok.MaxLenSingleSentence()
	}

	ds, err := dataset.BuildOrLoad(dataset.Options{
		SourcePath:   cfg.EvalDataFile,
		ModelID:      cfg.ModelID,
		BlockSize:    blockSize,
		CacheDir:     cfg.CacheDir,
		ForceRebuild: cfg.OverwriteCache,
	}, tok, log)
	if err != nil {
		return err
	}

	var graph []byte
	if cfg.ModelPath != "" {
		graph, err = os.ReadFile(cfg.ModelPath)
		if err != nil {
			return fmt.Errorf("read model %s: %w", cfg.ModelPath, err)
		}
	}

	loader := sessionLoader(cfg, log)
	opts := eval.Options{
		BatchSize:   cfg.BatchSize,
		WarmupSteps: cfg.WarmupSteps,
		MaxIters:    cfg.MaxIters,
	}

	if cfg.Benchmark {
		sess, err := loader(graph)
		if err != nil {
			return err
		}
		res, err := eval.Run(ctx, sess, ds, opts, log)
		sess.Close()
		if err != nil {
			return err
		}
		report(cfg, res)
	}

	if cfg.Tune {
		qcfg, err := quant.LoadConfig(cfg.TuneConfig)
		if err != nil {
			return err
		}
		oracle := eval.NewOracle(ds, opts, loader, qcfg.Quantization.Calibration.SamplingSize, log)
		tuned, err := quant.Tune(ctx, graph, qcfg, oracle)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.OutputModel, tuned, 0o644); err != nil {
			return fmt.Errorf("write quantized model %s: %w", cfg.OutputModel, err)
		}
		log.Info("quantized model saved", "path", cfg.OutputModel)
	}

	return nil
}

// sessionLoader picks the inference backend: a remote Flight endpoint
// when configured, the in-process ONNX Runtime session otherwise.
func sessionLoader(cfg config.Config, log *logger.Logger) eval.SessionLoader {
	if cfg.RemoteAddr != "" {
		return func([]byte) (runner.Session, error) {
			return remote.Dial(cfg.RemoteAddr)
		}
	}
	return func(graph []byte) (runner.Session, error) {
		return runner.Load(graph, runner.Options{SharedLibrary: cfg.OrtLibrary}, log)
	}
}

func report(cfg config.Config, res score.Result) {
	switch cfg.ReportMode() {
	case config.ModeAccuracy:
		fmt.Printf("Batch size = %d\n", res.BatchSize)
		fmt.Printf("Accuracy: %.5f\n", res.Accuracy)
	case config.ModePerformance:
		if !res.HasPerf {
			return
		}
		if res.BatchSize == 1 {
			fmt.Printf("Latency: %.3f ms\n", float64(res.Latency.Microseconds())/1000.0)
		}
		fmt.Printf("Throughput: %f samples/s\n", res.Throughput)
	}
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "error", err)
	}
}
