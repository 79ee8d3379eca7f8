package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/perpbench/perpbench/internal/logger"
	"github.com/perpbench/perpbench/internal/metrics"
	"github.com/perpbench/perpbench/internal/tokenizer"
)

var (
	// ErrMissingSource marks an evaluation corpus that does not exist
	// or cannot be read.
	ErrMissingSource = errors.New("eval data file missing or unreadable")

	// ErrCacheDecode marks a cache artifact that exists but cannot be
	// deserialized. It is surfaced, never retried or auto-deleted.
	ErrCacheDecode = errors.New("cache artifact corrupt")
)

// Block is one fixed-length window of token ids.
type Block []int64

// BlockDataset is an ordered, immutable sequence of equal-length blocks.
type BlockDataset struct {
	blocks    []Block
	blockSize int
}

func (d *BlockDataset) Len() int {
	return len(d.blocks)
}

func (d *BlockDataset) At(i int) Block {
	return d.blocks[i]
}

func (d *BlockDataset) BlockSize() int {
	return d.blockSize
}

// Prefix returns the first n blocks (fewer if the dataset is shorter).
// The returned slice shares storage with the dataset.
func (d *BlockDataset) Prefix(n int) []Block {
	if n > len(d.blocks) {
		n = len(d.blocks)
	}
	if n < 0 {
		n = 0
	}
	return d.blocks[:n]
}

// Key is the composite cache identity. File content is deliberately not
// part of it: editing the corpus without renaming it silently reuses a
// stale artifact, the documented trade-off of this cache.
type Key struct {
	ModelID   string
	BlockSize int
	Source    string // base name of the corpus file
}

// Artifact is the cache file name for this key.
func (k Key) Artifact() string {
	model := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(k.ModelID)
	return fmt.Sprintf("%s_cached_lm_%d_%s.arrow", model, k.BlockSize, k.Source)
}

// Options configures one BuildOrLoad call.
type Options struct {
	SourcePath   string
	ModelID      string
	BlockSize    int
	CacheDir     string
	ForceRebuild bool
}

// BuildOrLoad returns the block dataset for the corpus, reusing a cache
// artifact when one exists for the same (model id, block size, file
// name) identity. On a miss it tokenizes the whole corpus, slices it
// into non-overlapping windows of exactly BlockSize ids (the trailing
// remainder is dropped, not padded), and persists the result before
// returning.
func BuildOrLoad(opts Options, tok tokenizer.Tokenizer, log *logger.Logger) (*BlockDataset, error) {
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("invalid block size: %d", opts.BlockSize)
	}
	if _, err := os.Stat(opts.SourcePath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingSource, opts.SourcePath, err)
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", opts.CacheDir, err)
	}

	key := Key{
		ModelID:   opts.ModelID,
		BlockSize: opts.BlockSize,
		Source:    filepath.Base(opts.SourcePath),
	}
	artifact := filepath.Join(opts.CacheDir, key.Artifact())

	if !opts.ForceRebuild {
		if _, err := os.Stat(artifact); err == nil {
			log.Info("loading features from cached file", "path", artifact)
			ds, err := loadArtifact(artifact, opts.BlockSize)
			if err != nil {
				return nil, err
			}
			metrics.RecordCacheHit(ds.Len())
			return ds, nil
		}
	}

	log.Info("creating features from dataset file", "path", opts.SourcePath)
	text, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingSource, opts.SourcePath, err)
	}

	start := time.Now()
	ids := tok.ConvertTokensToIDs(tok.Tokenize(string(text)))
	metrics.RecordTokenize(len(ids), time.Since(start))

	blocks := make([]Block, 0, len(ids)/opts.BlockSize)
	for i := 0; i+opts.BlockSize <= len(ids); i += opts.BlockSize {
		blocks = append(blocks, tok.BuildInputsWithSpecialTokens(ids[i:i+opts.BlockSize]))
	}

	ds := &BlockDataset{blocks: blocks, blockSize: opts.BlockSize}

	log.Info("saving features into cached file", "path", artifact, "blocks", ds.Len())
	if err := saveArtifact(artifact, blocks); err != nil {
		return nil, fmt.Errorf("write cache artifact %s: %w", artifact, err)
	}
	if err := recordManifest(opts.CacheDir, key, ds.Len()); err != nil {
		return nil, err
	}
	metrics.RecordCacheMiss(ds.Len())
	return ds, nil
}
