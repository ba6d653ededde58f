package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"tubegate/internal/credentials"
)

// Headers the platform's media hosts expect; default Go client headers or a
// missing referer are rejected.
const (
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Referer   = "https://www.youtube.com/"
)

// ErrInvalidURL is returned by ValidateURL for anything that is not a
// recognizable video page URL.
var ErrInvalidURL = errors.New("invalid YouTube URL")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var validHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"gaming.youtube.com":       true,
	"youtu.be":                 true,
	"www.youtu.be":             true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// Client is the subset of the upstream extraction library used here.
// *youtube.Client satisfies it.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// Factory builds a Client authorized with the given credentials. A nil set
// yields an anonymous client.
type Factory func(creds *credentials.Set) (Client, error)

// Options configures the HTTP layer of upstream clients.
type Options struct {
	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	ResponseHeaderTimeout time.Duration
	// Transport overrides the base transport (tests).
	Transport http.RoundTripper
}

// NewFactory returns a Factory producing kkdai/youtube clients that share one
// connection pool and carry a per-request cookie jar.
func NewFactory(opts Options) Factory {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = 10 * time.Second
		if opts.ResponseHeaderTimeout > 0 {
			t.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
		}
		base = t
	}
	transport := NewHeaderTransport(base, BrowserHeaders())

	return func(creds *credentials.Set) (Client, error) {
		jar, err := creds.Jar()
		if err != nil {
			return nil, fmt.Errorf("failed to build cookie jar: %w", err)
		}
		return &youtube.Client{
			HTTPClient: &http.Client{
				Transport: transport,
				Jar:       jar,
			},
		}, nil
	}
}

// ValidateURL checks that raw is an http(s) URL on a platform host carrying a
// video id, and returns that id.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if !validHosts[strings.ToLower(u.Hostname())] {
		return "", ErrInvalidURL
	}

	id, err := youtube.ExtractVideoID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	// ExtractVideoID falls back to any 11-character run, host names included.
	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

// BrowserHeaders returns the request headers sent to the platform.
func BrowserHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent)
	h.Set("Referer", Referer)
	return h
}

// FFmpegHeaders renders BrowserHeaders as the CRLF-terminated block ffmpeg's
// -headers option expects.
func FFmpegHeaders() string {
	var b strings.Builder
	b.WriteString("User-Agent: " + UserAgent + "\r\n")
	b.WriteString("Referer: " + Referer + "\r\n")
	return b.String()
}
