package fetch

import (
	"context"
	"net/http"
	"testing"
)

func TestRequest_Kind(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		want        Kind
	}{
		{name: "image", destination: "image", want: KindImage},
		{name: "image mixed case", destination: "Image", want: KindImage},
		{name: "document", destination: "document", want: KindDocument},
		{name: "empty", destination: "", want: KindData},
		{name: "script", destination: "script", want: KindData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(http.MethodGet, "https://example.com/x", tt.destination, nil)
			if got := req.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequest_IsMutating(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{method: "GET", want: false},
		{method: "head", want: false},
		{method: "OPTIONS", want: false},
		{method: "POST", want: true},
		{method: "PUT", want: true},
		{method: "PATCH", want: true},
		{method: "DELETE", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := &Request{Method: tt.method, URL: "/api/items"}
			if got := req.IsMutating(); got != tt.want {
				t.Errorf("IsMutating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequest_Path(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://example.com/api/items?x=1", want: "/api/items"},
		{url: "/api/items", want: "/api/items"},
		{url: "https://example.com", want: "/"},
	}

	for _, tt := range tests {
		req := &Request{URL: tt.url}
		if got := req.Path(); got != tt.want {
			t.Errorf("Path(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest("post", "/api/items", "", []byte(`{"name":"a"}`))
	req.Header.Set("Content-Type", "application/json")

	clone := req.Clone()
	clone.Header.Set("Content-Type", "text/plain")
	clone.Body[0] = 'X'

	if req.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("original header changed: %q", got)
	}
	if req.Body[0] != '{' {
		t.Error("original body changed")
	}
}

func TestNormalizeLocator(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lower-cases scheme and host",
			in:   "HTTPS://Example.COM/Logo.webp",
			want: "https://example.com/Logo.webp",
		},
		{
			name: "drops default port and fragment",
			in:   "https://example.com:443/a#section",
			want: "https://example.com/a",
		},
		{
			name: "keeps non-default port",
			in:   "http://localhost:8080/api/items",
			want: "http://localhost:8080/api/items",
		},
		{
			name: "sorts query parameters",
			in:   "https://example.com/api/items?page=2&filter=b&filter=a",
			want: "https://example.com/api/items?filter=a&filter=b&page=2",
		},
		{
			name: "empty path becomes root",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "relative locator",
			in:   "/api/items?b=2&a=1",
			want: "/api/items?a=1&b=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLocator(tt.in); got != tt.want {
				t.Errorf("NormalizeLocator(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFetcherFunc(t *testing.T) {
	called := false
	var f Fetcher = FetcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{Status: http.StatusOK, Source: SourceNetwork}, nil
	})

	resp, err := f.Fetch(context.Background(), NewRequest("", "/x", "", nil))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !called || resp.Status != http.StatusOK {
		t.Errorf("FetcherFunc not invoked correctly: called=%v status=%d", called, resp.Status)
	}
}
