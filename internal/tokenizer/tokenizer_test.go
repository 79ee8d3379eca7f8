package tokenizer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

func writeVocab(t *testing.T, vocab map[string]int64) string {
	t.Helper()
	dir := t.TempDir()
	raw, err := json.Marshal(vocab)
	if err != nil {
		t.Fatalf("marshal vocab: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vocab.json"), raw, 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return dir
}

func testVocab() map[string]int64 {
	return map[string]int64{
		"hello":   0,
		"Ġworld":  1,
		"Ġwor":    2,
		"ld":      3,
		"wor":     4,
		"l":       5,
		"d":       6,
		"Ġ":       7,
		"foo":     8,
		"Ġfoobar": 9,
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"gpt2", GPT2, false},
		{"GPT2", GPT2, false},
		{"bert", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewMissingVocab(t *testing.T) {
	if _, err := New(GPT2, t.TempDir()); err == nil {
		t.Error("expected error for missing vocab.json")
	}
}

func TestNewEmptyVocab(t *testing.T) {
	dir := writeVocab(t, map[string]int64{})
	if _, err := New(GPT2, dir); err == nil {
		t.Error("expected error for empty vocab")
	}
}

func TestTokenizeWordBoundaries(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := tok.Tokenize("hello world")
	want := []string{"hello", "Ġworld"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeGreedyLongestMatch(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// "Ġworld" exists whole, so the greedy match must not split it
	// into "Ġwor" + "ld"
	got := tok.Tokenize("hello world world")
	want := []string{"hello", "Ġworld", "Ġworld"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeFallsBackToPieces(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// "Ġworlq" has no whole-word entry: longest prefixes are
	// "Ġwor", "l", and "q" is unknown and dropped
	got := tok.Tokenize("hello worlq")
	want := []string{"hello", "Ġwor", "l"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestConvertTokensToIDs(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := tok.ConvertTokensToIDs([]string{"hello", "Ġworld", "unknown"})
	want := []int64{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConvertTokensToIDs = %v, want %v", got, want)
	}
}

func TestBuildInputsWithSpecialTokensIsIdentityCopy(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := []int64{3, 1, 4}
	out := tok.BuildInputsWithSpecialTokens(in)
	if !reflect.DeepEqual(out, in) {
		t.Errorf("BuildInputsWithSpecialTokens = %v, want %v", out, in)
	}

	// Must be a copy, not an alias of the window
	out[0] = 99
	if in[0] != 3 {
		t.Error("BuildInputsWithSpecialTokens aliased its input")
	}
}

func TestMaxLenSingleSentence(t *testing.T) {
	tok, err := New(GPT2, writeVocab(t, testVocab()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tok.MaxLenSingleSentence() != 1024 {
		t.Errorf("MaxLenSingleSentence = %d, want 1024", tok.MaxLenSingleSentence())
	}
}
