package mutation

import (
	"bufio"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MarshalBatch serialises a Batch to JSON.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// MarshalSnapshot serialises a Snapshot to JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot deserialises a Snapshot from JSON.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return fmt.Sprintf("%x", h)
}

// Envelope types.
const (
	TypeSnapshot = "snapshot"
	TypeBatch    = "batch"
)

// Envelope is one message of the relay protocol and one line of a session
// recording.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the envelope payload into either a snapshot or a batch.
func (e Envelope) Decode() (*Snapshot, *Batch, error) {
	switch e.Type {
	case TypeSnapshot:
		s, err := UnmarshalSnapshot(e.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("mutation: decode snapshot: %w", err)
		}
		return s, nil, nil
	case TypeBatch:
		b, err := UnmarshalBatch(e.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("mutation: decode batch: %w", err)
		}
		return nil, b, nil
	}
	return nil, nil, fmt.Errorf("mutation: unknown envelope type %q", e.Type)
}

// Recorder writes snapshots and batches as JSON lines.
type Recorder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewRecorder creates a Recorder over w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Snapshot records s.
func (r *Recorder) Snapshot(s *Snapshot) error {
	return r.write(TypeSnapshot, s)
}

// Batch records b.
func (r *Recorder) Batch(b *Batch) error {
	return r.write(TypeBatch, b)
}

func (r *Recorder) write(typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mutation: encode %s: %w", typ, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(Envelope{Type: typ, Data: data})
}

// maxLine bounds one recorded line. Snapshots of large pages are big.
const maxLine = 64 << 20

// ReadRecording calls fn for every envelope of a JSON-lines recording.
// Blank lines are skipped. It stops at the first error fn returns.
func ReadRecording(r io.Reader, fn func(Envelope) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Envelope
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("mutation: line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("mutation: read recording: %w", err)
	}
	return nil
}
