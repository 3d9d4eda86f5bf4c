// Package fetch defines the request and response model shared by the
// gateway, the cache and the retry queue, together with the network
// boundary every live fetch goes through.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Kind is the semantic resource kind of a request.
type Kind string

const (
	// KindImage marks requests whose destination is an image.
	KindImage Kind = "image"

	// KindDocument marks top-level navigations.
	KindDocument Kind = "document"

	// KindData covers api-data and everything without a known destination.
	KindData Kind = "data"
)

// StatusOpaque is the status of a cross-origin response whose real status
// cannot be observed.
const StatusOpaque = 0

// Source tells where a response came from.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// Request is an outbound request. It must not be modified once issued;
// use Clone to derive a new one.
type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`

	// Destination is the request destination as reported by the caller
	// (for browsers, the Sec-Fetch-Dest header), e.g. "image".
	Destination string `json:"destination,omitempty"`

	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

// NewRequest builds a request with an empty header set.
func NewRequest(method, rawURL, destination string, body []byte) *Request {
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		Method:      strings.ToUpper(method),
		URL:         rawURL,
		Destination: destination,
		Header:      http.Header{},
		Body:        body,
	}
}

// Kind classifies the request by its destination.
func (r *Request) Kind() Kind {
	switch strings.ToLower(r.Destination) {
	case string(KindImage):
		return KindImage
	case string(KindDocument):
		return KindDocument
	default:
		return KindData
	}
}

// IsMutating reports whether the request may change server state.
func (r *Request) IsMutating() bool {
	switch strings.ToUpper(r.Method) {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// Path returns the path component of the request URL, or "" when the URL
// cannot be parsed.
func (r *Request) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = bytes.Clone(r.Body)
	}
	return &c
}

// Response is the result of a live fetch or a cache lookup.
type Response struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
	Source Source      `json:"source"`
}

// ErrUnavailable marks fetch errors where the request never reached the
// origin: unreachable hosts, refused connections, timeouts. Only these
// failures make a mutating request safe to send again.
var ErrUnavailable = errors.New("network unavailable")

// Fetcher performs live network fetches. A non-nil error means the
// transport could not complete; any received HTTP status is a completed
// fetch and is reported through Response.Status. Errors for which
// errors.Is(err, ErrUnavailable) holds mean the origin was not reached.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// NormalizeLocator produces the cache key for a request URL.
// Scheme and host are lower-cased, default ports and the fragment are
// dropped, and query parameters are sorted. Relative locators keep their
// path and sorted query only.
func NormalizeLocator(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	var b strings.Builder
	if u.Scheme != "" {
		scheme := strings.ToLower(u.Scheme)
		b.WriteString(scheme)
		b.WriteString("://")

		host := strings.ToLower(u.Hostname())
		port := u.Port()
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			port = ""
		}
		b.WriteString(host)
		if port != "" {
			b.WriteString(":")
			b.WriteString(port)
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	b.WriteString(path)

	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			values := query[k]
			sort.Strings(values)
			for _, v := range values {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		if len(parts) > 0 {
			b.WriteString("?")
			b.WriteString(strings.Join(parts, "&"))
		}
	}

	return b.String()
}
