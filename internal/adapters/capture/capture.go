// Package capture defines the frame acquisition boundary.
//
// Capture fails closed: a source that cannot produce a frame reports
// ok=false instead of an error, because a missing camera is an expected
// operating condition (in use by another process, no permission, no
// hardware). The ingestion pipeline treats that as a defined no-op.
package capture

import (
	"context"
	"os"
	"time"
)

// Frame is one captured webcam image, raw encoded bytes.
type Frame []byte

// Source produces frames for the monitoring loop.
type Source interface {
	// Frame returns the next frame, ok=false when none is available.
	Frame(ctx context.Context) (Frame, bool)
}

// Default staleness bound for snapshot files.
const defaultMaxAge = 30 * time.Second

// FileOption applies a configuration option to the FileSource.
type FileOption func(*FileSource)

// WithMaxAge sets how old a snapshot file may be before it is treated
// as no frame.
func WithMaxAge(age time.Duration) FileOption {
	return func(s *FileSource) {
		if age > 0 {
			s.maxAge = age
		}
	}
}

// FileSource reads frames from a snapshot file maintained by an
// external grabber (e.g. a cron'd fswebcam). A missing, empty, or
// stale file yields no frame.
type FileSource struct {
	path   string
	maxAge time.Duration
}

// NewFileSource creates a source reading snapshots from path.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{
		path:   path,
		maxAge: defaultMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Frame reads the snapshot file, failing closed on any error.
func (s *FileSource) Frame(_ context.Context) (Frame, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > s.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return Frame(data), true
}

// SyntheticSource always produces an empty placeholder frame. It backs
// dev and test runs where no camera exists; paired with a simulated
// predictor the frame content is irrelevant.
type SyntheticSource struct{}

// NewSyntheticSource creates a source that never fails.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{}
}

// Frame returns a placeholder frame.
func (s *SyntheticSource) Frame(_ context.Context) (Frame, bool) {
	return Frame{}, true
}
