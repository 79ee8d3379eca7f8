package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Tokenizer is the external tokenization collaborator. The harness only
// drives the whole-text tokenize-then-convert pipeline and the
// special-token transform; it implements no tokenization of its own.
type Tokenizer interface {
	Tokenize(text string) []string
	ConvertTokensToIDs(tokens []string) []int64
	// BuildInputsWithSpecialTokens wraps one fixed-length window into a
	// model input sequence.
	BuildInputsWithSpecialTokens(ids []int64) []int64
	// MaxLenSingleSentence bounds the block size.
	MaxLenSingleSentence() int
}

// Type enumerates the supported model families. The set is closed:
// adding a family means adding a constant and a constructor here.
type Type int

const (
	GPT2 Type = iota
)

func (t Type) String() string {
	switch t {
	case GPT2:
		return "gpt2"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "gpt2":
		return GPT2, nil
	default:
		return 0, fmt.Errorf("unsupported model type: %q", s)
	}
}

var constructors = map[Type]func(checkpointDir string) (Tokenizer, error){
	GPT2: newGPT2,
}

// New builds the tokenizer for a model family from a local checkpoint
// directory.
func New(t Type, checkpointDir string) (Tokenizer, error) {
	ctor, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("no tokenizer constructor for model type %s", t)
	}
	return ctor(checkpointDir)
}

const (
	gpt2MaxLen = 1024
	// Byte-level BPE marks a leading space with U+0120.
	spaceMarker = "Ġ"
)

type gpt2 struct {
	vocab map[string]int64
}

func newGPT2(checkpointDir string) (Tokenizer, error) {
	path := filepath.Join(checkpointDir, "vocab.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}

	var vocab map[string]int64
	if err := json.Unmarshal(raw, &vocab); err != nil {
		return nil, fmt.Errorf("decode vocab %s: %w", path, err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("empty vocab in %s", path)
	}

	return &gpt2{vocab: vocab}, nil
}

// Tokenize splits text into vocabulary pieces. Words after the first
// carry the space marker, matching how the vocab encodes word
// boundaries.
func (t *gpt2) Tokenize(text string) []string {
	var out []string
	for i, w := range strings.Fields(text) {
		if i > 0 {
			w = spaceMarker + w
		}
		out = append(out, t.segment(w)...)
	}
	return out
}

// segment greedily takes the longest vocab prefix at each position.
// Bytes that match nothing are dropped.
func (t *gpt2) segment(word string) []string {
	var out []string
	for len(word) > 0 {
		end := len(word)
		for end > 0 {
			if _, ok := t.vocab[word[:end]]; ok {
				break
			}
			end--
		}
		if end == 0 {
			word = word[1:]
			continue
		}
		out = append(out, word[:end])
		word = word[end:]
	}
	return out
}

func (t *gpt2) ConvertTokensToIDs(tokens []string) []int64 {
	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		if id, ok := t.vocab[tok]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// BuildInputsWithSpecialTokens is the identity for GPT-2: the family
// adds no BOS/EOS around a single sequence.
func (t *gpt2) BuildInputsWithSpecialTokens(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func (t *gpt2) MaxLenSingleSentence() int {
	return gpt2MaxLen
}
