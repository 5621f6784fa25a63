// Package market computes and caches the external job-market demand score for
// a subject. Scores are content-addressed in a persistent cache; external
// failures degrade to a flagged neutral fallback, never to an error.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultFallbackScore is the neutral demand score used when the external
// signal source is unavailable.
const DefaultFallbackScore = 60.0

// Score is a tagged market score: callers can disclose whether a value was
// measured against the external source or estimated via the fallback.
type Score struct {
	Value    float64
	Measured bool
}

// Provider resolves market demand scores through the cache, coalescing
// concurrent misses for the same key into a single external lookup.
type Provider struct {
	cache    *Cache
	source   SignalSource
	breaker  *gobreaker.CircuitBreaker[float64]
	group    singleflight.Group
	fallback float64
	log      zerolog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithFallbackScore overrides the neutral fallback value.
func WithFallbackScore(v float64) ProviderOption {
	return func(p *Provider) { p.fallback = v }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) ProviderOption {
	return func(p *Provider) { p.log = log }
}

// NewProvider builds a provider over a cache and a signal source. The source
// is guarded by a circuit breaker: once the signal API degrades, lookups fail
// fast into the fallback path instead of stacking up timeouts.
func NewProvider(cache *Cache, source SignalSource, opts ...ProviderOption) *Provider {
	p := &Provider{
		cache:    cache,
		source:   source,
		fallback: DefaultFallbackScore,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.breaker = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:    "market-signal",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("market signal breaker state change")
		},
	})
	return p
}

// ScoreFor returns the demand score in [0,100] for a subject.
//
// Cache hits return the stored value. On a miss, concurrent callers for the
// same content key share one external lookup; a successful result is cached
// and returned as measured. Any failure (timeout, open breaker, malformed
// response) yields the fallback value flagged as estimated — the fallback is
// never written to the cache, so a later successful lookup still supersedes
// it.
func (p *Provider) ScoreFor(ctx context.Context, name, description string) Score {
	key := CacheKey(name, description)

	if entry, err := p.cache.Get(key); err == nil {
		return Score{Value: entry.Score, Measured: true}
	} else if !errors.Is(err, ErrCacheMiss) {
		p.log.Error().Err(err).Str("subject", name).Msg("market cache read failed")
	}

	value, err, _ := p.group.Do(key, func() (interface{}, error) {
		score, err := p.breaker.Execute(func() (float64, error) {
			return p.source.Lookup(ctx, name, description)
		})
		if err != nil {
			return nil, err
		}
		if err := p.cache.Put(key, Entry{Score: score, ComputedAt: time.Now().UTC()}); err != nil {
			p.log.Error().Err(err).Str("subject", name).Msg("market cache write failed")
		}
		return score, nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("subject", name).
			Float64("fallback", p.fallback).
			Msg("market lookup failed, using fallback score")
		return Score{Value: p.fallback, Measured: false}
	}
	return Score{Value: value.(float64), Measured: true}
}

// Interpret gives the advisory meaning of a 0-100 market score.
func Interpret(score float64) string {
	switch {
	case score >= 90:
		return "Excellent demand in the market. Highly recommended for career prospects."
	case score >= 75:
		return "Strong demand in the market. Good opportunities available."
	case score >= 60:
		return "Moderate demand. Some opportunities, consider carefully."
	case score >= 45:
		return "Low demand. Limited opportunities; skill enhancement recommended."
	default:
		return "Very low demand. Consider alternative subjects or skills."
	}
}
