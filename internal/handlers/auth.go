package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tubegate/internal/logging"
	"tubegate/internal/metrics"
)

const (
	// AuthCookieName is the name of the session cookie. Its presence is the
	// whole session; there is no server-side state to revoke.
	AuthCookieName = "auth"

	authCookieValue = "true"

	// authCookieMaxAge is thirty days in seconds.
	authCookieMaxAge = 30 * 24 * 60 * 60
)

// publicPaths are reachable without the auth cookie. Only exact matches
// count, so /authorize or /login-x stay gated.
var publicPaths = map[string]bool{
	"/login":       true,
	"/auth":        true,
	"/favicon.ico": true,
	"/healthz":     true,
	"/livez":       true,
	"/readyz":      true,
	"/version":     true,
}

// publicPrefixes cover asset trees served without the auth cookie.
var publicPrefixes = []string{"/static/"}

// LoginRequest is the body of POST /auth.
type LoginRequest struct {
	Password string `json:"password"`
}

// AuthResponse is returned by the auth endpoints on success.
type AuthResponse struct {
	Success bool `json:"success"`
}

// Login checks the shared secret and sets the auth cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		logging.WarnContext(r.Context(), "Failed login attempt from %s", r.RemoteAddr)
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		respondError(w, r, http.StatusUnauthorized, "Invalid password")
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    authCookieValue,
		Path:     "/",
		MaxAge:   authCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	logging.InfoContext(r.Context(), "Login succeeded from %s", r.RemoteAddr)
	respond(w, r, http.StatusOK, AuthResponse{Success: true})
}

// Logout expires the auth cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	respond(w, r, http.StatusOK, AuthResponse{Success: true})
}

// SessionGate redirects anonymous requests for protected paths to /login and
// authenticated requests for /login to /.
func SessionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := hasSession(r)
		path := r.URL.Path

		if authed && path == "/login" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		if !authed && !isPublicPath(path) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasSession(r *http.Request) bool {
	_, err := r.Cookie(AuthCookieName)
	return err == nil
}

func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
