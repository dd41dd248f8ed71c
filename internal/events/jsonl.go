package events

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONLSink appends one JSON object per event to a writer, suitable for a
// report file a harness can post-process.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLSink creates a JSONL sink over the writer
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

// Consume implements Sink. Encoding errors are swallowed: reporting must
// never take the run down.
func (s *JSONLSink) Consume(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(ev)
}
