// Package replay reads recorded simulation frames and verifies them.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"ekon-lab/internal/domain"
)

// maxFrameSize bounds one JSONL line. Large worlds produce big frames.
const maxFrameSize = 64 << 20

// Reader iterates the frames of a recording in order.
type Reader struct {
	dec     *zstd.Decoder
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReader reads a zstd JSONL stream from r.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 256*1024), maxFrameSize)
	return &Reader{dec: dec, scanner: sc}, nil
}

// Open reads the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (*domain.RoundFrame, error) {
	for r.scanner.Scan() {
		r.line++
		b := r.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var f domain.RoundFrame
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("decode frame at line %d: %w", r.line, err)
		}
		return &f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return nil, io.EOF
}

// ReadAll returns all remaining frames.
func (r *Reader) ReadAll() ([]*domain.RoundFrame, error) {
	var frames []*domain.RoundFrame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// Close releases the decoder and any file opened by Open.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
