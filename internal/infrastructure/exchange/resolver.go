package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// Resolver resolves exchange rates for currency pairs. Identity pairs
// and caller-supplied factors never touch the cache or the remote
// source; everything else goes through a short-lived cache whose
// population is coalesced per key, so concurrent lookups for the same
// tenant+pair share one in-flight fetch.
//
// Resolver satisfies finance.RateResolver.
type Resolver struct {
	providers *ProviderResolver
	cache     RateCache
	flight    singleflight.Group
	logger    *zap.Logger
}

// NewResolver creates a resolver over the remote source and cache
func NewResolver(source RateSource, cache RateCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewInMemoryRateCache()
	}
	return &Resolver{
		providers: NewProviderResolver(source),
		cache:     cache,
		logger:    logger,
	}
}

// Resolve produces a rate for the pair. A nil custom factor means
// "resolve one"; a non-nil factor is returned verbatim. Fetch failures
// are hard failures of the conversion, never downgraded to a default
// rate.
func (r *Resolver) Resolve(ctx context.Context, from, to valueobject.Currency, custom *decimal.Decimal) (valueobject.ExchangeRate, error) {
	// Identity pairs short-circuit before any override or cache logic.
	if from == to {
		return valueobject.IdentityRate(from), nil
	}

	provider := r.providers.Pick(from, to, custom)
	r.logger.Debug("exchange rate provider selected",
		zap.String("provider", provider.Name()),
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	if custom != nil {
		return provider.GetRate(ctx, from, to)
	}

	key := TenantFromContext(ctx) + "|" + from.String() + "|" + to.String()
	if cached, err := r.cache.Get(ctx, key); err != nil {
		return valueobject.ExchangeRate{}, err
	} else if cached != nil {
		return *cached, nil
	}

	value, err, _ := r.flight.Do(key, func() (any, error) {
		rate, err := provider.GetRate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, key, rate); err != nil {
			return nil, err
		}
		return rate, nil
	})
	if err != nil {
		return valueobject.ExchangeRate{}, err
	}
	return value.(valueobject.ExchangeRate), nil
}
