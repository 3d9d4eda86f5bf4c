package client

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/internal/testutil"
	"github.com/Sternrassler/offline-cache-gateway/pkg/connectivity"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/rs/dnscache"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, tracker *connectivity.Tracker) *Client {
	t.Helper()
	cfg := DefaultConfig("TestApp/1.0.0 (test@example.com)")
	cfg.Timeout = 2 * time.Second
	cfg.Tracker = tracker
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func newTestTracker() *connectivity.Tracker {
	return connectivity.NewTracker(1, zerolog.New(os.Stderr).Level(zerolog.Disabled))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("TestApp/1.0.0"),
			expectError: false,
		},
		{
			name:        "empty user agent",
			config:      Config{Timeout: time.Second, MaxBodyBytes: 1},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name:        "zero timeout",
			config:      Config{UserAgent: "TestApp/1.0.0", MaxBodyBytes: 1},
			expectError: true,
			errorMsg:    "timeout must be > 0",
		},
		{
			name:        "zero body limit",
			config:      Config{UserAgent: "TestApp/1.0.0", Timeout: time.Second},
			expectError: true,
			errorMsg:    "max_body_bytes must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error = %q, want substring %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/api/items", testutil.NewJSONResponse(`[{"id":1,"name":"a"}]`))

	tracker := newTestTracker()
	c := newTestClient(t, tracker)

	req := fetch.NewRequest(http.MethodGet, origin.URL()+"/api/items", "", nil)
	resp, err := c.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != `[{"id":1,"name":"a"}]` {
		t.Errorf("Body = %s", resp.Body)
	}
	if resp.Source != fetch.SourceNetwork {
		t.Errorf("Source = %v, want network", resp.Source)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q", got)
	}
	if tracker.State().LastSuccess.IsZero() {
		t.Error("tracker should record the success")
	}
}

func TestClient_Fetch_SendsRequestVerbatim(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("POST /api/items", testutil.NewCreatedResponse(`{"id":2}`))

	c := newTestClient(t, nil)

	req := fetch.NewRequest(http.MethodPost, origin.URL()+"/api/items", "", []byte(`{"name":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace", "abc")

	resp, err := c.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", resp.Status)
	}

	recorded := origin.Requests()
	if len(recorded) != 1 {
		t.Fatalf("origin saw %d requests, want 1", len(recorded))
	}
	got := recorded[0]
	if got.Method != http.MethodPost || string(got.Body) != `{"name":"b"}` {
		t.Errorf("unexpected request: %s %s", got.Method, got.Body)
	}
	if got.Header.Get("X-Trace") != "abc" {
		t.Error("custom header not forwarded")
	}
	if got.Header.Get("User-Agent") != "TestApp/1.0.0 (test@example.com)" {
		t.Errorf("User-Agent = %q", got.Header.Get("User-Agent"))
	}
}

func TestClient_Fetch_DestinationHeader(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/logo.webp", testutil.NewImageResponse("webp"))

	c := newTestClient(t, nil)
	req := fetch.NewRequest(http.MethodGet, origin.URL()+"/logo.webp", "image", nil)
	if _, err := c.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got := origin.Requests()[0].Header.Get("Sec-Fetch-Dest"); got != "image" {
		t.Errorf("Sec-Fetch-Dest = %q, want image", got)
	}
}

func TestClient_Fetch_HTTPErrorIsAResponse(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/api/items", testutil.NewServerErrorResponse())

	tracker := newTestTracker()
	c := newTestClient(t, tracker)

	resp, err := c.Fetch(context.Background(), fetch.NewRequest("GET", origin.URL()+"/api/items", "", nil))
	if err != nil {
		t.Fatalf("Fetch() error = %v, HTTP errors must be responses", err)
	}
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", resp.Status)
	}
	if !tracker.Online() {
		t.Error("a 500 proves the network is reachable")
	}
}

func TestClient_Fetch_Offline(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/api/items", testutil.NewJSONResponse(`[]`))
	origin.SetOffline(true)

	tracker := newTestTracker()
	c := newTestClient(t, tracker)

	_, err := c.Fetch(context.Background(), fetch.NewRequest("GET", origin.URL()+"/api/items", "", nil))
	if err == nil {
		t.Fatal("expected transport error while offline")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %v, want network", fe.ErrorClass)
	}
	if !errors.Is(err, fetch.ErrUnavailable) {
		t.Error("offline failure should match fetch.ErrUnavailable")
	}
	if tracker.Online() {
		t.Error("tracker should report offline")
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/slow", testutil.MockResponse{StatusCode: 200, Delay: 500 * time.Millisecond})

	c := newTestClient(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, fetch.NewRequest("GET", origin.URL()+"/slow", "", nil))
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.ErrorClass != ErrorClassTimeout {
		t.Errorf("ErrorClass = %v, want timeout", fe.ErrorClass)
	}
}

func TestClient_Fetch_BodyTooLarge(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/big", testutil.NewJSONResponse(strings.Repeat("x", 64)))

	cfg := DefaultConfig("TestApp/1.0.0")
	cfg.MaxBodyBytes = 16
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{"GET", "POST"} {
		t.Run(method, func(t *testing.T) {
			_, err := c.Fetch(context.Background(), fetch.NewRequest(method, origin.URL()+"/big", "", []byte(`{}`)))
			if !errors.Is(err, ErrBodyTooLarge) {
				t.Errorf("expected ErrBodyTooLarge, got %v", err)
			}
			// The origin answered, so the request must not be treated as undelivered.
			if errors.Is(err, fetch.ErrUnavailable) {
				t.Error("body failure must not match fetch.ErrUnavailable")
			}
		})
	}
}

func TestClient_Fetch_WithResolver(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/api/items", testutil.NewJSONResponse(`[]`))

	cfg := DefaultConfig("TestApp/1.0.0")
	cfg.Resolver = &dnscache.Resolver{}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Fetch(context.Background(), fetch.NewRequest("GET", origin.URL()+"/api/items", "", nil))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
}

func TestRefreshResolver_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RefreshResolver(ctx, &dnscache.Resolver{}, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RefreshResolver did not stop after cancel")
	}
}
