package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"golang.org/x/crypto/bcrypt"

	"tubegate/internal/credentials"
	"tubegate/internal/downloader"
	"tubegate/internal/extractor"
	"tubegate/internal/remux"
	"tubegate/internal/streaming"
)

const (
	testURL      = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	testPassword = "correct horse"
)

// =============================================================================
// Test doubles
// =============================================================================

type fakeClient struct {
	mu sync.Mutex

	video     *youtube.Video
	videoErr  error
	streams   map[int]string
	streamErr error

	videoCalls int
}

func (f *fakeClient) GetVideoContext(_ context.Context, _ string) (*youtube.Video, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()

	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

func (f *fakeClient) GetStreamContext(_ context.Context, _ *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	data := f.streams[format.ItagNo]
	return io.NopCloser(strings.NewReader(data)), int64(len(data)), nil
}

func (f *fakeClient) GetStreamURLContext(_ context.Context, _ *youtube.Video, format *youtube.Format) (string, error) {
	return "https://media.example.invalid/" + format.MimeType, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videoCalls
}

func testVideo() *youtube.Video {
	return &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Test Video",
		Duration: 212 * time.Second,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"},
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"},
		},
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Height: 360, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2},
		},
	}
}

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}
	return path
}

func passwordHash(t *testing.T) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

type testEnv struct {
	handlers *Handlers
	client   *fakeClient
	remuxer  *remux.Remuxer
}

func newTestEnv(t *testing.T, client *fakeClient, ffmpegBody string) *testEnv {
	t.Helper()

	var rm *remux.Remuxer
	if ffmpegBody != "" {
		rm = remux.New(remux.Config{FFmpegPath: fakeFFmpeg(t, ffmpegBody)})
	}

	var factory extractor.Factory = func(*credentials.Set) (extractor.Client, error) {
		if client == nil {
			t.Error("upstream client requested unexpectedly")
			return nil, errors.New("no client")
		}
		return client, nil
	}

	svc := downloader.New(downloader.Options{
		Credentials:     credentials.NewLoader("", filepath.Join(t.TempDir(), "cookies.json")),
		Clients:         factory,
		Remuxer:         rm,
		UpstreamTimeout: 5 * time.Second,
	})

	h := New(Options{
		Service:         svc,
		Remuxer:         rm,
		PasswordHash:    passwordHash(t),
		Stream:          streaming.DefaultTimeoutWriterConfig(),
		FFmpegAvailable: rm != nil,
	})
	return &testEnv{handlers: h, client: client, remuxer: rm}
}

// =============================================================================
// Health, readiness and version
// =============================================================================

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t, nil, "")

	w := httptest.NewRecorder()
	env.handlers.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("GET /livez = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	env.handlers.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if w.Body.Len() != 0 {
		t.Errorf("HEAD /livez wrote a body: %q", w.Body.String())
	}
}

func TestReadinessFollowsSetReady(t *testing.T) {
	env := newTestEnv(t, nil, "")

	w := httptest.NewRecorder()
	env.handlers.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", w.Code)
	}

	env.handlers.SetReady(false)

	w = httptest.NewRecorder()
	env.handlers.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_ready") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHealthCheckReportsFFmpeg(t *testing.T) {
	tests := []struct {
		name       string
		ffmpeg     string
		wantStatus string
	}{
		{"without ffmpeg", "", statusDegraded},
		{"with ffmpeg", "exit 0", statusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, tt.ffmpeg)

			w := httptest.NewRecorder()
			env.handlers.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp HealthResponse
			decodeBody(t, w, &resp)
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if !resp.Ready {
				t.Error("Ready = false")
			}
			if resp.NumCPU <= 0 || resp.GoVersion == "" {
				t.Errorf("missing system info: %+v", resp)
			}
			if resp.Remux.FFmpegAvailable != (tt.ffmpeg != "") {
				t.Errorf("Remux.FFmpegAvailable = %v", resp.Remux.FFmpegAvailable)
			}
		})
	}
}

func TestHealthCheckDuringShutdown(t *testing.T) {
	env := newTestEnv(t, nil, "exit 0")
	env.handlers.SetReady(false)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		w := httptest.NewRecorder()
		env.handlers.HealthCheck(w, httptest.NewRequest(method, "/healthz", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", method, w.Code)
		}
		if method == http.MethodHead && w.Body.Len() != 0 {
			t.Errorf("HEAD wrote a body: %q", w.Body.String())
		}
	}
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name      string
		ffmpeg    string
		available bool
	}{
		{"with remuxer", "exit 0", true},
		{"without remuxer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, tt.ffmpeg)

			w := httptest.NewRecorder()
			env.handlers.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var info VersionResponse
			decodeBody(t, w, &info)
			if info.Version == "" || info.GoVersion == "" {
				t.Errorf("version body = %+v", info)
			}
			if info.Remux.Available != tt.available {
				t.Errorf("remux available = %v, want %v", info.Remux.Available, tt.available)
			}
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	env := newTestEnv(t, nil, "")

	w := httptest.NewRecorder()
	env.handlers.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "tubegate_") {
		t.Error("metrics output does not include tubegate metrics")
	}
	if !strings.Contains(body, "promhttp_metric_handler_requests_total") {
		t.Error("metrics handler is not instrumented")
	}
}

func TestGetThumbnailRejectsForeignHost(t *testing.T) {
	env := newTestEnv(t, nil, "")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/thumbnail?url=https://evil.example.com/a.jpg", nil)
	env.handlers.GetThumbnail(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
}
