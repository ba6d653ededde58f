package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	// Image format decoders
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"tubegate/internal/logging"
	"tubegate/internal/metrics"
)

const (
	// DefaultWidth is used when no width is requested.
	DefaultWidth = 320
	// MaxWidth caps the requested output width.
	MaxWidth = 1280

	// MaxImageDimension is the largest source width or height decoded.
	MaxImageDimension = 4096
	// MaxSourceBytes caps the upstream image body.
	MaxSourceBytes = 8 << 20

	defaultCacheEntries = 256
	jpegQuality         = 80
	maxRedirects        = 5
)

var (
	// ErrInvalidURL is returned for URLs that are not http(s) on an allowed
	// thumbnail host.
	ErrInvalidURL = errors.New("invalid thumbnail URL")
	// ErrTooLarge is returned when the source image exceeds the size limits.
	ErrTooLarge = errors.New("thumbnail source too large")
	// ErrRedirectBlocked is returned when the upstream redirects off the
	// allowed hosts or redirects too many times.
	ErrRedirectBlocked = errors.New("thumbnail redirect blocked")
)

// allowedHosts are the image CDNs the platform serves thumbnails from.
var allowedHosts = map[string]bool{
	"i.ytimg.com":     true,
	"i1.ytimg.com":    true,
	"i2.ytimg.com":    true,
	"i3.ytimg.com":    true,
	"i4.ytimg.com":    true,
	"i9.ytimg.com":    true,
	"img.youtube.com": true,
}

// Options configures a Fetcher.
type Options struct {
	// Client performs the upstream request. http.DefaultClient when nil.
	// The Fetcher uses a copy whose CheckRedirect is replaced by
	// CheckRedirect.
	Client *http.Client
	// CacheEntries bounds the in-memory cache of encoded thumbnails.
	CacheEntries int
}

// Fetcher proxies platform thumbnails, resizing them to JPEG.
type Fetcher struct {
	client     *http.Client
	maxEntries int

	mu    sync.Mutex
	cache map[string][]byte
	order []string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = defaultCacheEntries
	}
	client := *opts.Client
	client.CheckRedirect = CheckRedirect
	return &Fetcher{
		client:     &client,
		maxEntries: opts.CacheEntries,
		cache:      make(map[string][]byte),
	}
}

// ValidateURL checks that raw is an http(s) URL on an allowed thumbnail host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if !allowedHosts[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("%w: host %q", ErrInvalidURL, u.Hostname())
	}
	return u, nil
}

// CheckRedirect is an http.Client redirect policy that re-validates every
// hop against the thumbnail host allow-list.
func CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", ErrRedirectBlocked, len(via))
	}
	if _, err := ValidateURL(req.URL.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrRedirectBlocked, err)
	}
	return nil
}

// ParseWidth reads a requested width, falling back to DefaultWidth and
// clamping to MaxWidth.
func ParseWidth(s string) int {
	w, err := strconv.Atoi(s)
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return min(w, MaxWidth)
}

// Fetch returns the thumbnail at rawURL resized to width, encoded as JPEG.
// Images narrower than width are not upscaled.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, width int) ([]byte, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		metrics.ThumbnailRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	key := strconv.Itoa(width) + " " + u.String()
	if data, ok := f.cached(key); ok {
		metrics.ThumbnailRequestsTotal.WithLabelValues("cache_hit").Inc()
		logging.Debug("Thumbnail cache hit: %s", u)
		return data, nil
	}

	data, err := f.generate(ctx, u, width)
	if err != nil {
		metrics.ThumbnailRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	f.store(key, data)
	metrics.ThumbnailRequestsTotal.WithLabelValues("generated").Inc()
	return data, nil
}

func (f *Fetcher) generate(ctx context.Context, u *url.URL, width int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build thumbnail request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thumbnail: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close thumbnail body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail upstream returned %s", resp.Status)
	}

	src, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	if len(src) > MaxSourceBytes {
		return nil, ErrTooLarge
	}

	img, err := decodeConstrained(src)
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	logging.Debug("Thumbnail generated for %s: %d -> %d bytes", u, len(src), buf.Len())
	return buf.Bytes(), nil
}

// decodeConstrained checks the image header before decoding so an oversized
// source is rejected without allocating its pixels.
func decodeConstrained(src []byte) (image.Image, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail header: %w", err)
	}
	if config.Width > MaxImageDimension || config.Height > MaxImageDimension {
		return nil, fmt.Errorf("%w: %dx%d %s", ErrTooLarge, config.Width, config.Height, format)
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s thumbnail: %w", format, err)
	}
	return img, nil
}

func (f *Fetcher) cached(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.cache[key]
	return data, ok
}

// store adds an entry, evicting the oldest once the cache is full.
func (f *Fetcher) store(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cache[key]; ok {
		return
	}
	if len(f.order) >= f.maxEntries {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.cache, oldest)
	}
	f.cache[key] = data
	f.order = append(f.order, key)
}
