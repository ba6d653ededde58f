package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// CompressibleTypes lists the media types that are compressed
	CompressibleTypes []string
	// SkipPaths bypass the middleware entirely
	SkipPaths []string
}

// DefaultCompressionConfig returns sensible defaults for compression
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/json",
			"application/javascript",
			"image/svg+xml",
		},
		// Both stream binary bodies that gain nothing from gzip.
		SkipPaths: []string{"/download", "/thumbnail"},
	}
}

// Compression returns a middleware that gzips compressible responses once they
// reach MinSize.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	level := config.Level
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	pool := &sync.Pool{
		New: func() interface{} {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.applies(r) {
				next.ServeHTTP(w, r)
				return
			}

			gw := newGzipWriter(w, &config, pool)
			defer gw.close()

			next.ServeHTTP(gw, r)
		})
	}
}

func (c *CompressionConfig) applies(r *http.Request) bool {
	if r.Method == http.MethodHead || r.Header.Get("Upgrade") != "" {
		return false
	}
	if r.Header.Get("Accept") == "text/event-stream" {
		return false
	}
	for _, prefix := range c.SkipPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return acceptsGzip(r.Header.Get("Accept-Encoding"))
}

// acceptsGzip reports whether an Accept-Encoding value allows gzip, honoring
// q=0 exclusions.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != "gzip" && coding != "*" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		return true
	}
	return false
}

// gzipWriter buffers the start of a response until it can decide whether to
// compress, then streams through a pooled gzip.Writer or straight through.
type gzipWriter struct {
	http.ResponseWriter
	config *CompressionConfig
	pool   *sync.Pool

	buf     bytes.Buffer
	status  int
	decided bool
	gz      *gzip.Writer
}

func newGzipWriter(w http.ResponseWriter, config *CompressionConfig, pool *sync.Pool) *gzipWriter {
	return &gzipWriter{ResponseWriter: w, config: config, pool: pool}
}

func (g *gzipWriter) WriteHeader(code int) {
	if g.decided || g.status != 0 {
		return
	}
	g.status = code
	if !bodyAllowed(code) {
		g.decide()
	}
}

func (g *gzipWriter) Write(p []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(p)
		}
		return g.ResponseWriter.Write(p)
	}

	g.buf.Write(p)
	if g.buf.Len() >= g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// decide commits the status line and headers and drains the buffer.
func (g *gzipWriter) decide() error {
	if g.decided {
		return nil
	}
	g.decided = true
	if g.status == 0 {
		g.status = http.StatusOK
	}

	header := g.Header()
	if g.buf.Len() >= g.config.MinSize && bodyAllowed(g.status) &&
		header.Get("Content-Encoding") == "" && g.compressible(header.Get("Content-Type")) {
		header.Del("Content-Length")
		header.Set("Content-Encoding", "gzip")
		header.Add("Vary", "Accept-Encoding")

		g.gz = g.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}

	g.ResponseWriter.WriteHeader(g.status)
	if g.buf.Len() == 0 {
		return nil
	}

	var err error
	if g.gz != nil {
		_, err = g.gz.Write(g.buf.Bytes())
	} else {
		_, err = g.ResponseWriter.Write(g.buf.Bytes())
	}
	g.buf = bytes.Buffer{}
	return err
}

func (g *gzipWriter) compressible(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range g.config.CompressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// Flush implements http.Flusher
func (g *gzipWriter) Flush() {
	_ = g.decide()
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	_ = http.NewResponseController(g.ResponseWriter).Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (g *gzipWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

func (g *gzipWriter) close() {
	_ = g.decide()
	if g.gz == nil {
		return
	}
	_ = g.gz.Close()
	g.pool.Put(g.gz)
	g.gz = nil
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}
