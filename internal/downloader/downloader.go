package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"

	"tubegate/internal/catalog"
	"tubegate/internal/credentials"
	"tubegate/internal/extractor"
	"tubegate/internal/logging"
	"tubegate/internal/metrics"
	"tubegate/internal/remux"
)

// Client-facing messages.
const (
	MsgInvalidURL        = "Invalid YouTube URL"
	MsgMissingParameters = "Missing parameters"
	MsgInvalidItag       = "Invalid itag"
	MsgFormatNotFound    = "Format not found"
	MsgInfoFailed        = "Failed to fetch video info. "
	MsgInternal          = "Internal Server Error"
)

// DefaultName is the filename base used when the sanitized name is empty.
const DefaultName = "video"

// Mode is the download branch taken for a request.
type Mode string

const (
	// ModeDirect forwards a pre-combined upstream stream.
	ModeDirect Mode = "direct"
	// ModeRemux merges a video-only and an audio-only stream with ffmpeg.
	ModeRemux Mode = "remux"
)

// Request is a download request built from query parameters.
type Request struct {
	URL      string
	Itag     string
	Name     string
	HasAudio bool
}

// ParseRequest reads url, itag, name and hasAudio from q. hasAudio is true
// unless it is exactly "false".
func ParseRequest(q url.Values) Request {
	return Request{
		URL:      strings.TrimSpace(q.Get("url")),
		Itag:     strings.TrimSpace(q.Get("itag")),
		Name:     q.Get("name"),
		HasAudio: q.Get("hasAudio") != "false",
	}
}

// SanitizeName keeps letters, digits, whitespace and hyphens, collapses each
// whitespace rune to a space and trims the result. An empty result becomes
// DefaultName.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return DefaultName
	}
	return out
}

// Options configures a Service.
type Options struct {
	Credentials *credentials.Loader
	Clients     extractor.Factory
	Remuxer     *remux.Remuxer
	// UpstreamTimeout bounds each metadata fetch. Zero means no limit.
	UpstreamTimeout time.Duration
}

// Service resolves video catalogs and prepares downloads. It holds no
// per-request state; credentials and metadata are resolved on every call.
type Service struct {
	creds   *credentials.Loader
	clients extractor.Factory
	remuxer *remux.Remuxer
	timeout time.Duration
}

// New creates a Service.
func New(opts Options) *Service {
	return &Service{
		creds:   opts.Credentials,
		clients: opts.Clients,
		remuxer: opts.Remuxer,
		timeout: opts.UpstreamTimeout,
	}
}

// ResolveInfo validates rawURL, fetches its metadata and builds the catalog.
func (s *Service) ResolveInfo(ctx context.Context, rawURL string) (*catalog.VideoInfo, error) {
	if _, err := extractor.ValidateURL(rawURL); err != nil {
		metrics.InfoRequestsTotal.WithLabelValues(KindBadRequest.String()).Inc()
		return nil, badRequest(MsgInvalidURL, err)
	}

	client, diag, err := s.client()
	if err != nil {
		metrics.InfoRequestsTotal.WithLabelValues(KindUpstream.String()).Inc()
		return nil, upstream(MsgInfoFailed+err.Error(), diag, err)
	}

	video, err := s.fetchVideo(ctx, client, rawURL, "info")
	if err != nil {
		metrics.InfoRequestsTotal.WithLabelValues(KindUpstream.String()).Inc()
		logging.Error("Failed to fetch video info for %s: %v", rawURL, err)
		return nil, upstream(MsgInfoFailed+err.Error(), diag, err)
	}

	info := catalog.Build(video)
	metrics.InfoRequestsTotal.WithLabelValues("success").Inc()
	logging.Debug("Resolved %s (%q): %d formats, credentials=%s", info.VideoID, info.Title, len(info.Formats), diag.CookieSource)
	return info, nil
}

// PrepareDownload validates req, re-resolves metadata and picks the download
// branch. Nothing is written to the client; the returned Plan must be
// streamed or closed.
func (s *Service) PrepareDownload(ctx context.Context, req Request) (*Plan, error) {
	if req.URL == "" || req.Itag == "" {
		return nil, badRequest(MsgMissingParameters, nil)
	}
	itag, err := strconv.Atoi(req.Itag)
	if err != nil {
		return nil, badRequest(MsgInvalidItag, err)
	}
	if _, err := extractor.ValidateURL(req.URL); err != nil {
		return nil, badRequest(MsgInvalidURL, err)
	}

	name := SanitizeName(req.Name)

	client, diag, err := s.client()
	if err != nil {
		return nil, upstream(MsgInternal, diag, err)
	}

	video, err := s.fetchVideo(ctx, client, req.URL, "download")
	if err != nil {
		return nil, upstream(MsgInternal, diag, err)
	}

	if req.HasAudio {
		return s.prepareDirect(ctx, client, video, itag, name, diag)
	}
	return s.prepareRemux(ctx, client, video, itag, name, diag)
}

// prepareDirect opens the pre-combined stream before anything is committed to
// the client, so an open failure can still be reported as an error status.
func (s *Service) prepareDirect(ctx context.Context, client extractor.Client, video *youtube.Video, itag int, name string, diag credentials.Diagnostics) (*Plan, error) {
	format := catalog.FindFormat(video, itag)
	if format == nil {
		return nil, notFound(MsgFormatNotFound)
	}

	body, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, upstream(MsgInternal, diag, fmt.Errorf("failed to open stream for itag %d: %w", itag, err))
	}

	container := catalog.Container(format)
	if container == "" {
		container = "bin"
	}

	logging.Debug("Direct download of %s itag %d (%s)", video.ID, itag, humanize.Bytes(uint64(max(size, 0))))

	return &Plan{
		Mode:          ModeDirect,
		Filename:      name + "." + container,
		ContentType:   "application/octet-stream",
		ContentLength: size,
		body:          body,
	}, nil
}

func (s *Service) prepareRemux(ctx context.Context, client extractor.Client, video *youtube.Video, itag int, name string, diag credentials.Diagnostics) (*Plan, error) {
	videoFormat := catalog.FindFormat(video, itag)
	audioFormat := catalog.PreferredAudio(video)
	if videoFormat == nil || audioFormat == nil {
		return nil, notFound(MsgFormatNotFound)
	}
	if s.remuxer == nil {
		return nil, upstream(MsgInternal, diag, errors.New("remuxing is not configured"))
	}

	job := remux.Job{Label: fmt.Sprintf("%s itag %d+%d", video.ID, videoFormat.ItagNo, audioFormat.ItagNo)}

	switch s.remuxer.Mode() {
	case remux.InputPipe:
		job.Video = streamInput(client, video, videoFormat)
		job.Audio = streamInput(client, video, audioFormat)
	default:
		videoURL, err := s.streamURL(ctx, client, video, videoFormat)
		if err != nil {
			return nil, upstream(MsgInternal, diag, err)
		}
		audioURL, err := s.streamURL(ctx, client, video, audioFormat)
		if err != nil {
			return nil, upstream(MsgInternal, diag, err)
		}
		job.Video = remux.Input{URL: videoURL}
		job.Audio = remux.Input{URL: audioURL}
	}

	return &Plan{
		Mode:          ModeRemux,
		Filename:      name + "." + remux.Extension,
		ContentType:   remux.ContentType,
		ContentLength: -1,
		remuxer:       s.remuxer,
		job:           job,
	}, nil
}

func streamInput(client extractor.Client, video *youtube.Video, format *youtube.Format) remux.Input {
	return remux.Input{
		URL: format.URL,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			body, _, err := client.GetStreamContext(ctx, video, format)
			return body, err
		},
	}
}

func (s *Service) streamURL(ctx context.Context, client extractor.Client, video *youtube.Video, format *youtube.Format) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to resolve stream URL for itag %d: %w", format.ItagNo, err)
	}
	return u, nil
}

// client resolves credentials and builds an upstream client carrying them.
func (s *Service) client() (extractor.Client, credentials.Diagnostics, error) {
	var (
		set  *credentials.Set
		diag = credentials.Diagnostics{CookieSource: credentials.SourceNone}
	)
	if s.creds != nil {
		set, diag = s.creds.Resolve()
	}

	c, err := s.clients(set)
	if err != nil {
		return nil, diag, err
	}
	return c, diag, nil
}

func (s *Service) fetchVideo(ctx context.Context, client extractor.Client, rawURL, operation string) (*youtube.Video, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	video, err := client.GetVideoContext(ctx, rawURL)
	metrics.UpstreamFetchDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
