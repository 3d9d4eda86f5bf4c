package precache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Warmer fetches a request and stores the response where the caching
// policies will find it.
type Warmer interface {
	Precache(ctx context.Context, req *fetch.Request) (*fetch.Response, error)
}

// Config holds precacher configuration.
type Config struct {
	// Concurrency is the maximum number of parallel requests
	Concurrency int

	// Timeout per request
	Timeout time.Duration

	// Logger for progress and failures; defaults to a disabled logger
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     15 * time.Second,
	}
}

// Failure records one request that could not be warmed.
type Failure struct {
	URL string `json:"url"`
	Err string `json:"error"`
}

// Report summarizes a Warm call.
type Report struct {
	Warmed   int           `json:"warmed"`
	Failed   int           `json:"failed"`
	Failures []Failure     `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Precacher warms buckets through a Warmer.
type Precacher struct {
	warmer Warmer
	config Config
	logger zerolog.Logger
}

// New creates a precacher.
func New(warmer Warmer, config Config) *Precacher {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Precacher{
		warmer: warmer,
		config: config,
		logger: logger.With().Str("component", "precache").Logger(),
	}
}

// Warm runs every request through the warmer. A response with a non-2xx
// status or an error counts as a failure. The returned error is non-nil only
// when ctx is canceled before all requests were attempted.
func (p *Precacher) Warm(ctx context.Context, reqs []*fetch.Request) (Report, error) {
	start := time.Now()

	var (
		mu     sync.Mutex
		report Report
	)
	record := func(req *fetch.Request, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			report.Warmed++
			return
		}
		report.Failed++
		report.Failures = append(report.Failures, Failure{URL: req.URL, Err: err.Error()})
		p.logger.Warn().Err(err).Str("url", req.URL).Msg("Precache failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for _, req := range reqs {
		if req == nil {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			record(req, p.warm(gctx, req))
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	p.logger.Info().
		Int("warmed", report.Warmed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Precache complete")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("precache interrupted: %w", err)
	}
	return report, nil
}

func (p *Precacher) warm(ctx context.Context, req *fetch.Request) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.warmer.Precache(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status != fetch.StatusOpaque && (resp.Status < 200 || resp.Status > 299) {
		return fmt.Errorf("unexpected status %d", resp.Status)
	}
	return nil
}
