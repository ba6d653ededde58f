package downloader

import (
	"context"
	"errors"
	"io"
	"sync"

	"tubegate/internal/remux"
)

// Plan is a prepared download. Headers describe the attachment; Stream writes
// the body.
type Plan struct {
	Mode        Mode
	Filename    string
	ContentType string
	// ContentLength is the body size when known, otherwise -1 or 0.
	ContentLength int64

	body io.ReadCloser

	remuxer *remux.Remuxer
	job     remux.Job

	closeOnce sync.Once
}

// Stream writes the download to w and returns the bytes written. Canceling
// ctx stops the upstream fetch and any remux process. Stream closes the plan.
func (p *Plan) Stream(ctx context.Context, w io.Writer) (int64, error) {
	defer p.Close()

	switch p.Mode {
	case ModeDirect:
		if p.body == nil {
			return 0, errors.New("direct plan has no stream")
		}
		// Unblock a pending upstream read when the stream is abandoned.
		stop := context.AfterFunc(ctx, p.Close)
		defer stop()
		return io.Copy(w, p.body)
	case ModeRemux:
		return p.remuxer.Run(ctx, p.job, w)
	default:
		return 0, errors.New("unknown download mode")
	}
}

// Close releases the upstream stream of a plan that will not be streamed.
func (p *Plan) Close() {
	p.closeOnce.Do(func() {
		if p.body != nil {
			_ = p.body.Close()
		}
	})
}
