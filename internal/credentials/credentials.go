package credentials

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tubegate/internal/logging"
	"tubegate/internal/metrics"
)

// Source identifies where a credential set was read from.
type Source string

const (
	SourceNone Source = "none"
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

// DefaultFile is the cookie file looked up relative to the working directory.
const DefaultFile = "cookies.json"

// ErrNotArray is reported when the cookie JSON is valid but not an array.
var ErrNotArray = errors.New("cookies must be a JSON array")

// platformOrigins are the URLs the cookie jar is seeded for.
var platformOrigins = []string{
	"https://www.youtube.com/",
	"https://youtube.com/",
	"https://m.youtube.com/",
	"https://music.youtube.com/",
}

// Cookie is one session token in the browser-export shape.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain,omitempty"`
	Path           string  `json:"path,omitempty"`
	Secure         bool    `json:"secure,omitempty"`
	HTTPOnly       bool    `json:"httpOnly,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

// Set is an ordered collection of cookies resolved for one request.
type Set struct {
	Cookies []Cookie
	Source  Source
}

// Diagnostics describes the credential resolution outcome. It never carries
// cookie values and is safe to return to clients.
type Diagnostics struct {
	CookiesLoaded bool   `json:"cookiesLoaded"`
	CookieSource  Source `json:"cookieSource"`
	CookieError   string `json:"cookieError,omitempty"`
}

// Loader resolves credentials from an inline JSON value or a local file.
type Loader struct {
	inline string
	path   string
}

// NewLoader creates a loader. inline is the raw env value (may be empty);
// path is the cookie file, DefaultFile when empty.
func NewLoader(inline, path string) *Loader {
	if path == "" {
		path = DefaultFile
	}
	return &Loader{inline: inline, path: path}
}

// Resolve returns the credential set for a request, or nil when none is
// available. Parse failures are logged and reported in Diagnostics but never
// returned as errors.
func (l *Loader) Resolve() (*Set, Diagnostics) {
	if l == nil {
		return nil, Diagnostics{CookieSource: SourceNone}
	}

	if strings.TrimSpace(l.inline) != "" {
		cookies, err := ParseJSON([]byte(l.inline))
		return l.finish(SourceEnv, cookies, err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.CredentialLoadsTotal.WithLabelValues(string(SourceNone), "absent").Inc()
			return nil, Diagnostics{CookieSource: SourceNone}
		}
		return l.finish(SourceFile, nil, fmt.Errorf("read %s: %w", filepath.Base(l.path), err))
	}

	var cookies []Cookie
	if strings.EqualFold(filepath.Ext(l.path), ".txt") {
		cookies, err = ParseNetscape(strings.NewReader(string(data)))
	} else {
		cookies, err = ParseJSON(data)
	}
	return l.finish(SourceFile, cookies, err)
}

func (l *Loader) finish(source Source, cookies []Cookie, err error) (*Set, Diagnostics) {
	diag := Diagnostics{CookieSource: source}
	if err != nil {
		logging.Warn("Failed to load cookies from %s, continuing without credentials: %v", source, err)
		metrics.CredentialLoadsTotal.WithLabelValues(string(source), "error").Inc()
		diag.CookieError = err.Error()
		return nil, diag
	}

	metrics.CredentialLoadsTotal.WithLabelValues(string(source), "loaded").Inc()
	diag.CookiesLoaded = true
	logging.Debug("Loaded %d cookies from %s", len(cookies), source)
	return &Set{Cookies: cookies, Source: source}, diag
}

// ParseJSON decodes a JSON array of cookie objects.
func ParseJSON(data []byte) ([]Cookie, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid cookie JSON: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrNotArray
	}

	var cookies []Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("invalid cookie entry: %w", err)
	}
	return cookies, nil
}

// ParseNetscape parses the Netscape cookies.txt format:
// domain flag path secure expiration name value, tab separated.
func ParseNetscape(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			line = rest
			httpOnly = true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		expires, _ := strconv.ParseFloat(parts[4], 64)
		cookies = append(cookies, Cookie{
			Domain:         parts[0],
			Path:           parts[2],
			Secure:         strings.EqualFold(parts[3], "TRUE"),
			ExpirationDate: expires,
			Name:           parts[5],
			Value:          parts[6],
			HTTPOnly:       httpOnly,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cookies) == 0 {
		return nil, errors.New("no cookies found in cookies.txt")
	}
	return cookies, nil
}

// HTTPCookies converts the set to net/http cookies.
func (s *Set) HTTPCookies() []*http.Cookie {
	if s == nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		if c.Name == "" {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if hc.Path == "" {
			hc.Path = "/"
		}
		if c.ExpirationDate > 0 {
			hc.Expires = time.Unix(int64(c.ExpirationDate), 0)
		}
		out = append(out, hc)
	}
	return out
}

// Jar returns a cookie jar holding the set for the platform origins. A nil
// set yields an empty jar.
func (s *Set) Jar() (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies := s.HTTPCookies()
	if len(cookies) == 0 {
		return jar, nil
	}
	for _, origin := range platformOrigins {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(u, cookies)
	}
	return jar, nil
}
