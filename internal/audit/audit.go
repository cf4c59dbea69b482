// Package audit implements the append-only per-invocation log: one record
// is written for every dispatch, regardless of outcome.
package audit

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Record is one append-only audit entry.
type Record struct {
	CorrelationID        string         `json:"correlation_id"`
	SessionID            string         `json:"session_id"`
	ToolName             string         `json:"tool_name"`
	ArgumentsFingerprint string         `json:"arguments_fingerprint"`
	TrustDecision        string         `json:"trust_decision"`
	Outcome              string         `json:"outcome"`
	LatencyMS            int64          `json:"latency_ms"`
	Timestamp            time.Time      `json:"timestamp"`
	Details              map[string]any `json:"details,omitempty"`
}

// Log is an append-only, thread-safe audit trail. Writes are atomic per
// record: two concurrent Append calls never interleave a single record's
// fields.
type Log struct {
	mu      sync.Mutex
	records []Record
	cap     int
	sink    io.Writer
}

// NewLog returns a Log that retains at most capacity records (oldest
// dropped first); capacity<=0 means unbounded.
func NewLog(capacity int) *Log {
	return &Log{cap: capacity}
}

// SetSink wires an append-only destination (typically a JSONL file) that
// every record is also written to, one JSON object per line. This is what
// lets a separate `codomyrmexd audit tail` CLI invocation inspect a running
// server's audit trail, since the in-memory ring buffer doesn't cross
// process boundaries. A nil sink (the default) disables this.
func (l *Log) SetSink(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = w
}

// Append records one invocation outcome. A sink write failure is swallowed:
// the in-memory record still exists and the audit guarantee ("exactly one
// record per dispatch") is not violated by a full disk or closed file.
func (l *Log) Append(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, r)
	if l.cap > 0 && len(l.records) > l.cap {
		l.records = l.records[len(l.records)-l.cap:]
	}

	if l.sink != nil {
		if line, err := json.Marshal(r); err == nil {
			line = append(line, '\n')
			_, _ = l.sink.Write(line)
		}
	}
}

// Tail returns the most recent n records, oldest first.
func (l *Log) Tail(n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// NewCorrelationID returns a fresh opaque correlation id for one dispatch.
func NewCorrelationID() string {
	return uuid.NewString()
}

// FingerprintArguments hashes a call's arguments so the audit trail can
// record "what shape of call happened" without persisting potentially
// sensitive argument values verbatim. The fingerprint identifies repeated
// call shapes for an operator; it is not a security commitment, so a fast
// non-cryptographic hash is the right tool.
func FingerprintArguments(args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	sum := xxh3.Hash128(raw).Bytes()
	return hex.EncodeToString(sum[:])
}
