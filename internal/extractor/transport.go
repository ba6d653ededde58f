package extractor

import "net/http"

// HeaderTransport adds default headers to outgoing requests. Headers already
// present on a request are left alone so the extraction library can keep its
// own client identity on API calls.
type HeaderTransport struct {
	Base   http.RoundTripper
	Header http.Header
}

// NewHeaderTransport wraps base, or http.DefaultTransport when nil.
func NewHeaderTransport(base http.RoundTripper, header http.Header) *HeaderTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HeaderTransport{Base: base, Header: cloneHeader(header)}
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	missing := false
	for k := range t.Header {
		if req.Header.Get(k) == "" {
			missing = true
			break
		}
	}
	if !missing {
		return t.Base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	for k, vals := range t.Header {
		if out.Header.Get(k) != "" {
			continue
		}
		for _, v := range vals {
			out.Header.Add(k, v)
		}
	}
	return t.Base.RoundTrip(out)
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, vals := range h {
		cp := make([]string, len(vals))
		copy(cp, vals)
		out[k] = cp
	}
	return out
}
