package metrics

import (
	"testing"
	"time"
)

func TestRecordEvalStep(t *testing.T) {
	// Should not panic and should be callable repeatedly
	RecordEvalStep(1, 5*time.Millisecond)
	RecordEvalStep(4, 20*time.Millisecond)
}

func TestRecordTokenize(t *testing.T) {
	RecordTokenize(1024, 50*time.Millisecond)
	RecordTokenize(0, 0)
}

func TestRecordCache(t *testing.T) {
	RecordCacheHit(2)
	RecordCacheMiss(2)
}

func TestRecordEvalResult(t *testing.T) {
	RecordEvalResult(50.0, 50.0, 12.5)
	// Negative accuracy is representable (perplexity > 100)
	RecordEvalResult(-20.0, 120.0, 0)
}

func TestRecordOracleCall(t *testing.T) {
	RecordOracleCall()
	RecordOracleCall()
}
