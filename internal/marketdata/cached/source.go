package cached

import (
	"context"
	"time"

	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/pkg/logger"
	"github.com/jlindqvist/weektrack/pkg/redis"
)

// Source decorates a PriceSource with cache-aside TTL caching, so repeated
// builds inside the TTL window do not hammer the upstream. The decorated
// source keeps the full PriceSource contract; cache failures degrade to a
// plain fetch, never to an error.
type Source struct {
	next     marketdata.PriceSource
	cache    *redis.Cache
	logger   *logger.Logger
	dailyTTL time.Duration
	quoteTTL time.Duration
}

// New wraps next with a Redis-backed cache.
func New(next marketdata.PriceSource, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Source {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &Source{
		next:     next,
		cache:    cache,
		logger:   log.WithField("module", "cached_source"),
		dailyTTL: ttl,
		quoteTTL: redis.TTLQuote,
	}
}

var _ marketdata.PriceSource = (*Source)(nil)

const dateKeyFormat = "2006-01-02"

// FetchDailyCloses serves from cache when possible, otherwise delegates and
// stores the result.
func (s *Source) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.DailyClose, error) {
	key := redis.DailyClosesKey(symbol, from.Format(dateKeyFormat), to.Format(dateKeyFormat))

	var cachedCloses []marketdata.DailyClose
	if found, err := s.cache.Get(ctx, key, &cachedCloses); err == nil && found {
		s.logger.WithField("symbol", symbol).Debug("Daily closes cache hit")
		return cachedCloses, nil
	} else if err != nil {
		// Unreadable entry, drop it so the refetch below replaces it.
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Dropping unreadable daily closes cache entry")
		_ = s.cache.Delete(ctx, key)
	}

	closes, err := s.next.FetchDailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, closes, s.dailyTTL); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache daily closes")
	}

	return closes, nil
}

// FetchLiveQuote serves from cache when possible, otherwise delegates and
// stores the result under a short TTL.
func (s *Source) FetchLiveQuote(ctx context.Context, symbol string) (marketdata.LiveQuote, error) {
	key := redis.LiveQuoteKey(symbol)

	var cachedQuote marketdata.LiveQuote
	if found, err := s.cache.Get(ctx, key, &cachedQuote); err == nil && found {
		s.logger.WithField("symbol", symbol).Debug("Live quote cache hit")
		return cachedQuote, nil
	} else if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Dropping unreadable live quote cache entry")
		_ = s.cache.Delete(ctx, key)
	}

	quote, err := s.next.FetchLiveQuote(ctx, symbol)
	if err != nil {
		return marketdata.LiveQuote{}, err
	}

	if err := s.cache.Set(ctx, key, quote, s.quoteTTL); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache live quote")
	}

	return quote, nil
}
