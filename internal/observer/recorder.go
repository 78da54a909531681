package observer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
)

// Recorder writes one domain.RoundFrame per round as zstd-compressed JSONL.
// A write failure is kept in Err and stops the run.
type Recorder struct {
	mu      sync.Mutex
	closer  io.Closer // underlying file, nil for caller-owned writers
	enc     *zstd.Encoder
	w       *bufio.Writer
	pending []domain.ActionEvent
	frames  int
	err     error
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder records into w. Close flushes the stream but does not close w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Recorder{
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// CreateRecorder records into a new file at path, creating parent directories.
func CreateRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// OnAgentAction buffers e for the current frame.
func (r *Recorder) OnAgentAction(e domain.ActionEvent) {
	r.mu.Lock()
	r.pending = append(r.pending, e)
	r.mu.Unlock()
}

// OnRoundEnd writes the frame for snap.
func (r *Recorder) OnRoundEnd(_ context.Context, snap *domain.RoundSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false
	}

	frame := domain.RoundFrame{RoundSnapshot: *snap, Events: r.pending}
	r.pending = nil
	if frame.Events == nil {
		frame.Events = []domain.ActionEvent{}
	}

	b, err := json.Marshal(frame)
	if err != nil {
		r.err = fmt.Errorf("marshal frame %d: %w", snap.Round, err)
		return false
	}
	if _, err := r.w.Write(b); err != nil {
		r.err = fmt.Errorf("write frame %d: %w", snap.Round, err)
		return false
	}
	if err := r.w.WriteByte('\n'); err != nil {
		r.err = fmt.Errorf("write frame %d: %w", snap.Round, err)
		return false
	}
	r.frames++
	return true
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close flushes and finishes the zstd stream.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.w.Flush()
	if cerr := r.enc.Close(); err == nil {
		err = cerr
	}
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
		r.closer = nil
	}
	if err == nil {
		err = r.err
	}
	return err
}
