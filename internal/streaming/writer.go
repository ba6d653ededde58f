package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tubegate/internal/logging"
)

// Errors returned by TimeoutWriter.Write once a stream has ended.
var (
	// ErrWriteTimeout: a write, the idle period or MaxDuration ran out.
	ErrWriteTimeout = errors.New("write timeout exceeded")
	// ErrClientGone: the request context ended or the connection failed.
	ErrClientGone = errors.New("client disconnected")
	// ErrStreamCanceled: Close was called.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures a TimeoutWriter.
type TimeoutWriterConfig struct {
	// WriteTimeout bounds each write to the connection.
	WriteTimeout time.Duration
	// IdleTimeout ends the stream when no bytes reach the client for this
	// long, whether the client or the producer stalled.
	IdleTimeout time.Duration
	// MaxDuration caps the whole stream. 0 means unlimited.
	MaxDuration time.Duration
	// ChunkSize splits larger writes so each part gets its own deadline.
	// 0 writes as received.
	ChunkSize int

	// OnProgress is called each time another ProgressEvery bytes have been
	// delivered.
	OnProgress    func(written int64, elapsed time.Duration)
	ProgressEvery int64
}

// DefaultTimeoutWriterConfig returns the download defaults.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ChunkSize:     64 << 10,
		ProgressEvery: 16 << 20,
	}
}

// TimeoutWriter forwards a download to an http.ResponseWriter. Each write
// carries a connection deadline set through http.ResponseController and is
// flushed immediately; a timer ends the stream when bytes stop flowing.
type TimeoutWriter struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	cfg TimeoutWriterConfig

	parent context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc

	start   time.Time
	written atomic.Int64

	idle     *time.Timer
	deadline *time.Timer

	// writeMu serializes writes and guards nextProgress.
	writeMu      sync.Mutex
	nextProgress int64

	closeOnce sync.Once
}

// NewTimeoutWriter wraps w. The writer's context derives from ctx; Close must
// be called to stop its timers.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, cfg TimeoutWriterConfig) *TimeoutWriter {
	tw := &TimeoutWriter{
		w:            w,
		rc:           http.NewResponseController(w),
		cfg:          cfg,
		parent:       ctx,
		start:        time.Now(),
		nextProgress: cfg.ProgressEvery,
	}
	tw.ctx, tw.cancel = context.WithCancelCause(ctx)

	if cfg.IdleTimeout > 0 {
		tw.idle = time.AfterFunc(cfg.IdleTimeout, func() {
			if tw.ctx.Err() == nil {
				logging.Warn("Stream idle for %v after %d bytes, ending it", cfg.IdleTimeout, tw.written.Load())
				tw.cancel(ErrWriteTimeout)
			}
		})
	}
	if cfg.MaxDuration > 0 {
		tw.deadline = time.AfterFunc(cfg.MaxDuration, func() { tw.cancel(ErrWriteTimeout) })
	}

	return tw
}

// Context ends with the stream: client disconnect, timeout or Close.
// Producers feeding the writer derive from it so they stop with the stream.
func (tw *TimeoutWriter) Context() context.Context {
	return tw.ctx
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.writeMu.Lock()
	defer tw.writeMu.Unlock()

	if tw.ctx.Err() != nil {
		return 0, tw.endError()
	}

	total := 0
	for len(p) > 0 {
		chunk := p
		if size := tw.cfg.ChunkSize; size > 0 && len(chunk) > size {
			chunk = chunk[:size]
		}

		n, err := tw.writeChunk(chunk)
		total += n
		if err != nil {
			return total, err
		}

		p = p[len(chunk):]
		if len(p) > 0 && tw.ctx.Err() != nil {
			return total, tw.endError()
		}
	}
	return total, nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.cfg.WriteTimeout > 0 {
		err := tw.rc.SetWriteDeadline(time.Now().Add(tw.cfg.WriteTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return 0, tw.fail(ErrClientGone, err)
		}
	}

	n, err := tw.w.Write(p)
	if err == nil {
		if ferr := tw.rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
			err = ferr
		}
	}
	if n > 0 {
		tw.delivered(n)
	}

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return n, tw.fail(ErrWriteTimeout, nil)
	case tw.ctx.Err() != nil:
		return n, tw.endError()
	default:
		return n, tw.fail(ErrClientGone, err)
	}
}

// delivered records n bytes on the wire. Called with writeMu held.
func (tw *TimeoutWriter) delivered(n int) {
	written := tw.written.Add(int64(n))

	if tw.idle != nil && tw.ctx.Err() == nil {
		tw.idle.Reset(tw.cfg.IdleTimeout)
	}

	if tw.cfg.OnProgress == nil || tw.cfg.ProgressEvery <= 0 || written < tw.nextProgress {
		return
	}
	tw.cfg.OnProgress(written, time.Since(tw.start))
	for tw.nextProgress <= written {
		tw.nextProgress += tw.cfg.ProgressEvery
	}
}

// fail ends the stream with sentinel and returns it, wrapping cause if any.
func (tw *TimeoutWriter) fail(sentinel, cause error) error {
	tw.cancel(sentinel)
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}

// endError maps the reason the stream context ended to a sentinel.
func (tw *TimeoutWriter) endError() error {
	if tw.parent.Err() != nil {
		return ErrClientGone
	}
	switch cause := context.Cause(tw.ctx); {
	case errors.Is(cause, ErrWriteTimeout):
		return ErrWriteTimeout
	case errors.Is(cause, ErrClientGone):
		return ErrClientGone
	default:
		return ErrStreamCanceled
	}
}

// Close ends the stream, stops the timers and clears the write deadline.
// It is safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.closeOnce.Do(func() {
		tw.cancel(ErrStreamCanceled)
		for _, t := range []*time.Timer{tw.idle, tw.deadline} {
			if t != nil {
				t.Stop()
			}
		}
		if tw.cfg.WriteTimeout > 0 {
			if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
				logging.Debug("Failed to clear write deadline: %v", err)
			}
		}
	})
	return nil
}

// Stats returns the bytes delivered and the time since the writer was created.
func (tw *TimeoutWriter) Stats() (written int64, elapsed time.Duration) {
	return tw.written.Load(), time.Since(tw.start)
}

// Written reports whether any bytes reached the client. Once true the status
// and headers are committed and a failure can only truncate the body.
func (tw *TimeoutWriter) Written() bool {
	return tw.written.Load() > 0
}
