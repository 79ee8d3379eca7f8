package eval

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/perpbench/perpbench/internal/dataset"
	"github.com/perpbench/perpbench/internal/logger"
)

// numTok maps the word "N" to id N.
type numTok struct{}

func (numTok) Tokenize(text string) []string {
	return strings.Fields(text)
}

func (numTok) ConvertTokensToIDs(tokens []string) []int64 {
	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

func (numTok) BuildInputsWithSpecialTokens(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func (numTok) MaxLenSingleSentence() int { return 1024 }

func buildDataset(t *testing.T, dir string, corpus []byte, blockSize int) *dataset.BlockDataset {
	t.Helper()
	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, corpus, 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	ds, err := dataset.BuildOrLoad(dataset.Options{
		SourcePath: path,
		ModelID:    "stub",
		BlockSize:  blockSize,
		CacheDir:   filepath.Join(dir, "cache"),
	}, numTok{}, logger.Nop())
	if err != nil {
		t.Fatalf("BuildOrLoad: %v", err)
	}
	return ds
}
