package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/rs/zerolog"
)

// DefaultSweepInterval is how often a Sweeper drains the retry queue.
const DefaultSweepInterval = 30 * time.Second

// SweepResult summarizes one pass over the retry queue.
type SweepResult struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
	Expired  int `json:"expired"`
}

// Sweep processes the retry queue in enqueue order. Items past their
// deadline are removed without a replay. Every other item is replayed
// verbatim and removed once the replay reaches the origin; items whose
// replay fails with fetch.ErrUnavailable stay queued for the next sweep.
// Concurrent sweeps are serialized.
func (g *Gateway) Sweep(ctx context.Context) (SweepResult, error) {
	g.sweepMu.Lock()
	defer g.sweepMu.Unlock()

	var result SweepResult

	items, err := g.config.Queue.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list retry queue: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := g.logger.With().
			Str("id", item.ID).
			Str("method", item.Request.Method).
			Str("url", item.Request.URL).
			Logger()

		if item.Expired(g.config.Clock()) {
			if g.remove(ctx, item.ID, log) {
				result.Expired++
				gatewayReplaysTotal.WithLabelValues("expired").Inc()
				log.Warn().Time("deadline", item.Deadline).Msg("Dropped expired request")
			}
			continue
		}

		resp, err := g.config.Fetcher.Fetch(ctx, item.Request.Clone())
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		if errors.Is(err, fetch.ErrUnavailable) {
			result.Failed++
			gatewayReplaysTotal.WithLabelValues("failed").Inc()
			log.Debug().Err(fmt.Errorf("%w: %w", ErrReplayFailed, err)).Msg("Replay failed, keeping request queued")
			continue
		}

		if g.remove(ctx, item.ID, log) {
			result.Replayed++
			gatewayReplaysTotal.WithLabelValues("replayed").Inc()
			if err != nil {
				// The origin received the request; only its answer was lost.
				log.Warn().Err(err).Msg("Replayed queued request, response unreadable")
				continue
			}
			log.Info().Int("status", resp.Status).Msg("Replayed queued request")
		}
	}

	return result, nil
}

func (g *Gateway) remove(ctx context.Context, id string, log zerolog.Logger) bool {
	removed, err := g.config.Queue.Remove(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to remove request from retry queue")
		return false
	}
	return removed
}

// Sweeper drains the retry queue periodically and whenever connectivity
// returns.
type Sweeper struct {
	gateway  *Gateway
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper for g. An interval <= 0 uses DefaultSweepInterval.
func NewSweeper(g *Gateway, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		gateway:  g,
		interval: interval,
		logger:   g.logger.With().Str("worker", "sweeper").Logger(),
	}
}

// Run sweeps until ctx is canceled. It always returns nil.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var online <-chan struct{}
	if s.gateway.config.Tracker != nil {
		online = s.gateway.config.Tracker.Subscribe()
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx, "tick")
		case <-online:
			s.sweep(ctx, "online")
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, trigger string) {
	result, err := s.gateway.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Str("trigger", trigger).Msg("Sweep failed")
		}
		return
	}
	if result.Replayed+result.Failed+result.Expired == 0 {
		return
	}
	s.logger.Info().
		Str("trigger", trigger).
		Int("replayed", result.Replayed).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Msg("Sweep complete")
}
