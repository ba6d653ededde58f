package handlers

import (
	"sync/atomic"
	"time"

	"tubegate/internal/downloader"
	"tubegate/internal/remux"
	"tubegate/internal/streaming"
	"tubegate/internal/thumbnail"
)

// Options wires the handlers to their collaborators.
type Options struct {
	Service    *downloader.Service
	Remuxer    *remux.Remuxer
	Thumbnails *thumbnail.Fetcher

	// PasswordHash is the bcrypt hash of the shared secret.
	PasswordHash []byte
	// SecureCookies marks the auth cookie Secure.
	SecureCookies bool

	// Stream configures the timeout writer used for download bodies.
	Stream streaming.TimeoutWriterConfig

	// FFmpegAvailable is reported by the health endpoint.
	FFmpegAvailable bool
}

type Handlers struct {
	service    *downloader.Service
	remuxer    *remux.Remuxer
	thumbnails *thumbnail.Fetcher

	passwordHash  []byte
	secureCookies bool

	stream          streaming.TimeoutWriterConfig
	ffmpegAvailable bool

	startTime time.Time
	ready     atomic.Bool
}

func New(opts Options) *Handlers {
	if opts.Thumbnails == nil {
		opts.Thumbnails = thumbnail.New(thumbnail.Options{})
	}
	h := &Handlers{
		service:         opts.Service,
		remuxer:         opts.Remuxer,
		thumbnails:      opts.Thumbnails,
		passwordHash:    opts.PasswordHash,
		secureCookies:   opts.SecureCookies,
		stream:          opts.Stream,
		ffmpegAvailable: opts.FFmpegAvailable,
		startTime:       time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady toggles the readiness probe. It is cleared at shutdown so load
// balancers stop routing new requests.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
