package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/Sternrassler/offline-cache-gateway/pkg/gateway"
	"github.com/Sternrassler/offline-cache-gateway/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// routerDeps holds the dependencies of the HTTP router.
type routerDeps struct {
	Gateway      *gateway.Gateway
	Upstream     string // origin base URL without trailing slash
	MaxBodyBytes int64
	Logger       zerolog.Logger
}

type server struct {
	deps routerDeps
}

// newRouter wires the admin endpoints and the catch-all proxy.
func newRouter(deps routerDeps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(s.recovery)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/_offline", func(r chi.Router) {
		r.Get("/queue", s.handleQueue)
		r.Post("/sweep", s.handleSweep)
	})

	r.NotFound(s.handleProxy)
	r.MethodNotAllowed(s.handleProxy)
	return r
}

func (s *server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.deps.Logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depth := -1
	if items, err := s.deps.Gateway.Pending(r.Context()); err == nil {
		depth = len(items)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"online":      s.deps.Gateway.Online(),
		"queue_depth": depth,
	})
}

func (s *server) handleQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Gateway.Pending(r.Context())
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("Failed to list retry queue")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type queuedRequest struct {
		ID         string    `json:"id"`
		Method     string    `json:"method"`
		URL        string    `json:"url"`
		EnqueuedAt time.Time `json:"enqueued_at"`
		Deadline   time.Time `json:"deadline"`
	}
	out := make([]queuedRequest, 0, len(items))
	for _, item := range items {
		out = append(out, queuedRequest{
			ID:         item.ID,
			Method:     item.Request.Method,
			URL:        item.Request.URL,
			EnqueuedAt: item.EnqueuedAt,
			Deadline:   item.Deadline,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Gateway.Sweep(r.Context())
	if err != nil {
		s.deps.Logger.Error().Err(err).Str("trigger", "manual").Msg("Sweep failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleProxy sends the inbound request through the gateway to the upstream.
func (s *server) handleProxy(w http.ResponseWriter, r *http.Request) {
	req, err := s.toFetchRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	resp, err := s.deps.Gateway.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeResponse(w, resp)
}

func (s *server) toFetchRequest(w http.ResponseWriter, r *http.Request) (*fetch.Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
		if err != nil {
			return nil, err
		}
	}

	req := fetch.NewRequest(r.Method, s.deps.Upstream+r.URL.RequestURI(), r.Header.Get("Sec-Fetch-Dest"), body)
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	return req, nil
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}

	var unavailable *gateway.UnavailableError
	if errors.As(err, &unavailable) {
		w.Header().Set("X-Offline", "1")
		if unavailable.Queued {
			w.Header().Set("X-Offline-Queued", "1")
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":  gateway.ErrNetworkUnavailable.Error(),
			"queued": unavailable.Queued,
		})
		return
	}

	s.deps.Logger.Warn().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Upstream request failed")
	http.Error(w, "upstream request failed", http.StatusBadGateway)
}

func writeResponse(w http.ResponseWriter, resp *fetch.Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	if len(resp.Body) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.Header().Set("X-Offline-Source", string(resp.Source))

	status := resp.Status
	if status == fetch.StatusOpaque {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
