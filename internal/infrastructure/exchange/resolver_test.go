package exchange

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// fakeRateSource counts remote fetches and optionally blocks until
// released, to observe request coalescing.
type fakeRateSource struct {
	rate    decimal.Decimal
	err     error
	empty   bool
	calls   atomic.Int64
	release chan struct{}
}

func (f *fakeRateSource) FetchExchangeRate(_ context.Context, from, to valueobject.Currency) (*valueobject.ExchangeRate, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	return &valueobject.ExchangeRate{From: from, To: to, Rate: f.rate}, nil
}

func TestResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("identity pair never touches the remote source", func(t *testing.T) {
		source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
		resolver := NewResolver(source, nil, nil)

		rate, err := resolver.Resolve(ctx, valueobject.USD, valueobject.USD, nil)
		require.NoError(t, err)
		assert.True(t, rate.IsIdentity())
		assert.True(t, rate.Rate.Equal(decimal.NewFromInt(1)))
		assert.Zero(t, source.calls.Load())
	})

	t.Run("custom factor bypasses cache and remote source", func(t *testing.T) {
		source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
		cache := NewInMemoryRateCache()
		resolver := NewResolver(source, cache, nil)

		custom := decimal.RequireFromString("1.5")
		rate, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, &custom)
		require.NoError(t, err)
		assert.True(t, rate.Rate.Equal(custom))
		assert.Zero(t, source.calls.Load())

		cached, err := cache.Get(ctx, DefaultTenant+"|USD|EUR")
		require.NoError(t, err)
		assert.Nil(t, cached, "manual rates are never cached")
	})

	t.Run("non-positive custom factor is rejected", func(t *testing.T) {
		source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
		resolver := NewResolver(source, nil, nil)

		custom := decimal.Zero
		_, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, &custom)
		require.Error(t, err)
	})

	t.Run("cache miss fetches once, later hits are served locally", func(t *testing.T) {
		source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		first, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)
		second, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)

		assert.True(t, first.Rate.Equal(second.Rate))
		assert.Equal(t, int64(1), source.calls.Load())
	})

	t.Run("tenants do not share cached rates", func(t *testing.T) {
		source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		_, err := resolver.Resolve(WithTenant(ctx, "alpha"), valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)
		_, err = resolver.Resolve(WithTenant(ctx, "beta"), valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(2), source.calls.Load())
	})

	t.Run("concurrent misses for one pair share a single fetch", func(t *testing.T) {
		source := &fakeRateSource{
			rate:    decimal.RequireFromString("0.9"),
			release: make(chan struct{}),
		}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
			}(i)
		}
		close(start)
		close(source.release)
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, source.calls.Load(), int64(1))
		assert.LessOrEqual(t, source.calls.Load(), int64(workers))

		// The cache is now warm, so one more resolve adds no fetch.
		before := source.calls.Load()
		_, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)
		assert.Equal(t, before, source.calls.Load())
	})

	t.Run("remote failure is a hard failure", func(t *testing.T) {
		source := &fakeRateSource{err: assert.AnError}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		_, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("empty remote result maps to a domain error", func(t *testing.T) {
		source := &fakeRateSource{empty: true}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		_, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeExchangeRateUnavailable, domainErr.Code)
		assert.Equal(t, "USD", domainErr.Parameters["from"])
		assert.Equal(t, "EUR", domainErr.Parameters["to"])
	})

	t.Run("failed fetches are not cached", func(t *testing.T) {
		source := &fakeRateSource{err: assert.AnError}
		resolver := NewResolver(source, NewInMemoryRateCache(), nil)

		_, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.Error(t, err)

		source.err = nil
		source.rate = decimal.RequireFromString("0.9")
		rate, err := resolver.Resolve(ctx, valueobject.USD, valueobject.EUR, nil)
		require.NoError(t, err)
		assert.True(t, rate.Rate.Equal(decimal.RequireFromString("0.9")))
		assert.Equal(t, int64(2), source.calls.Load())
	})
}

func TestProviderResolverPick(t *testing.T) {
	source := &fakeRateSource{rate: decimal.RequireFromString("0.9")}
	providers := NewProviderResolver(source)

	t.Run("manual factor wins outright", func(t *testing.T) {
		factor := decimal.RequireFromString("1.2")
		provider := providers.Pick(valueobject.USD, valueobject.USD, &factor)
		assert.Equal(t, "manual", provider.Name())
	})

	t.Run("identity pair picks the identity provider", func(t *testing.T) {
		provider := providers.Pick(valueobject.USD, valueobject.USD, nil)
		assert.Equal(t, "identity", provider.Name())
	})

	t.Run("cross-currency pair picks the published authority", func(t *testing.T) {
		provider := providers.Pick(valueobject.USD, valueobject.EUR, nil)
		assert.Equal(t, "published-authority", provider.Name())
	})
}
