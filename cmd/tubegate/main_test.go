package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"tubegate/internal/handlers"
	"tubegate/internal/middleware"
	"tubegate/internal/startup"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	h := handlers.New(handlers.Options{PasswordHash: hash})
	return buildHandler(setupRouter(h), &startup.Config{})
}

func TestSetupRouterRegistersRoutes(t *testing.T) {
	h := handlers.New(handlers.Options{})
	routes, err := startup.GetRoutes(setupRouter(h))
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	want := map[string]string{
		"/info":     "POST",
		"/download": "GET",
		"/auth":     "POST",
		"/logout":   "POST",
		"/login":    "GET",
		"/healthz":  "GET",
	}

	found := make(map[string]bool)
	for _, r := range routes {
		if method, ok := want[r.Path]; ok && strings.Contains(r.Method, method) {
			found[r.Path] = true
		}
	}
	for path := range want {
		if !found[path] {
			t.Errorf("route %s %s not registered", want[path], path)
		}
	}
}

func TestHandlerChain(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		cookie       bool
		wantStatus   int
		wantLocation string
	}{
		{"anonymous index redirects", http.MethodGet, "/", false, http.StatusFound, "/login"},
		{"anonymous download redirects", http.MethodGet, "/download?url=x&itag=18", false, http.StatusFound, "/login"},
		{"login page is public", http.MethodGet, "/login", false, http.StatusOK, ""},
		{"static assets are public", http.MethodGet, "/static/login.js", false, http.StatusOK, ""},
		{"liveness is public", http.MethodGet, "/livez", false, http.StatusOK, ""},
		{"authed index", http.MethodGet, "/", true, http.StatusOK, ""},
		{"authed login redirects home", http.MethodGet, "/login", true, http.StatusFound, "/"},
		{"authed download validates first", http.MethodGet, "/download", true, http.StatusBadRequest, ""},
		{"info requires POST", http.MethodGet, "/info", true, http.StatusMethodNotAllowed, ""},
	}

	handler := newTestHandler(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie {
				r.AddCookie(&http.Cookie{Name: handlers.AuthCookieName, Value: "true"})
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("response has no request id")
			}
		})
	}
}

func TestLoginFlowThroughChain(t *testing.T) {
	handler := newTestHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"password":"secret"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %q", w.Code, w.Body.String())
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.AuthCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("login did not set the auth cookie")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(session)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("index with session = %d, want 200", w.Code)
	}
}
