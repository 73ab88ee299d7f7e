package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"visionvault/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write did not complete within the
	// configured timeout, or that the response ran past MaxDuration.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled before
	// the response completed.
	ErrClientGone = errors.New("client disconnected")
)

// Config configures the writer behavior
type Config struct {
	// WriteTimeout bounds each individual write.
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum response duration (0 = unlimited)
	MaxDuration time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
	}
}

// Writer wraps an http.ResponseWriter and sets a fresh write deadline before
// every write.
type Writer struct {
	http.ResponseWriter
	ctx       context.Context
	rc        *http.ResponseController
	config    Config
	start     time.Time
	written   int64
	deadlines bool
	err       error
}

// NewWriter creates a deadline-protected writer for one response.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		ResponseWriter: w,
		ctx:            ctx,
		rc:             http.NewResponseController(w),
		config:         config,
		start:          time.Now(),
		deadlines:      config.WriteTimeout > 0,
	}
}

// Write implements io.Writer. After the first failure every later write
// returns the same error.
func (sw *Writer) Write(p []byte) (int, error) {
	if sw.err != nil {
		return 0, sw.err
	}
	if sw.ctx.Err() != nil {
		return 0, sw.fail(ErrClientGone)
	}
	if sw.config.MaxDuration > 0 && time.Since(sw.start) > sw.config.MaxDuration {
		return 0, sw.fail(fmt.Errorf("%w: response exceeded %v", ErrWriteTimeout, sw.config.MaxDuration))
	}

	if sw.deadlines {
		if err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout)); err != nil {
			if !errors.Is(err, http.ErrNotSupported) {
				logging.Debug("Failed to set write deadline: %v", err)
			}
			sw.deadlines = false
		}
	}

	n, err := sw.ResponseWriter.Write(p)
	sw.written += int64(n)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrWriteTimeout, err)
		} else if sw.ctx.Err() != nil {
			err = ErrClientGone
		}
		return n, sw.fail(err)
	}
	return n, nil
}

func (sw *Writer) fail(err error) error {
	sw.err = err
	return err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *Writer) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Err returns the first write error, if any.
func (sw *Writer) Err() error {
	return sw.err
}

// Stats returns the bytes written and the time since the writer was created.
func (sw *Writer) Stats() (written int64, duration time.Duration) {
	return sw.written, time.Since(sw.start)
}

// ServeContent serves content like http.ServeContent through a Writer and
// returns the bytes written and the first write error. The write deadline
// is cleared afterwards so a kept-alive connection is not affected.
func ServeContent(w http.ResponseWriter, r *http.Request, name string, modtime time.Time, content io.ReadSeeker, config Config) (int64, error) {
	sw := NewWriter(r.Context(), w, config)
	http.ServeContent(sw, r, name, modtime, content)

	if sw.deadlines {
		_ = sw.rc.SetWriteDeadline(time.Time{})
	}

	written, duration := sw.Stats()
	logging.Debug("Served %s: %d bytes in %v", name, written, duration)
	return written, sw.Err()
}
