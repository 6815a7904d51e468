package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// RateSource is the remote exchange-rate lookup of the external finance
// service, used on cache misses.
type RateSource interface {
	FetchExchangeRate(ctx context.Context, from, to valueobject.Currency) (*valueobject.ExchangeRate, error)
}

// RateProvider produces an exchange rate for a currency pair. The
// provider's name is observable for diagnostics.
type RateProvider interface {
	Name() string
	GetRate(ctx context.Context, from, to valueobject.Currency) (valueobject.ExchangeRate, error)
}

// IdentityProvider serves same-currency pairs with rate 1.0 and no I/O
type IdentityProvider struct{}

// Name returns the provider name
func (IdentityProvider) Name() string { return "identity" }

// GetRate returns rate 1.0 for identical currencies
func (IdentityProvider) GetRate(_ context.Context, from, to valueobject.Currency) (valueobject.ExchangeRate, error) {
	if from != to {
		return valueobject.ExchangeRate{}, shared.NewDomainError(
			shared.CodeExchangeRateUnavailable,
			"identity provider only serves same-currency pairs",
		)
	}
	return valueobject.IdentityRate(from), nil
}

// ManualProvider serves a caller-supplied conversion factor verbatim
type ManualProvider struct {
	factor decimal.Decimal
}

// NewManualProvider creates a provider around a manual factor
func NewManualProvider(factor decimal.Decimal) ManualProvider {
	return ManualProvider{factor: factor}
}

// Name returns the provider name
func (ManualProvider) Name() string { return "manual" }

// GetRate returns the manual factor as the rate for the pair
func (p ManualProvider) GetRate(_ context.Context, from, to valueobject.Currency) (valueobject.ExchangeRate, error) {
	return valueobject.NewExchangeRate(from, to, p.factor)
}

// PublishedProvider fetches rates published by the external finance
// service's rate authority.
type PublishedProvider struct {
	source RateSource
}

// NewPublishedProvider creates a provider over the remote source
func NewPublishedProvider(source RateSource) PublishedProvider {
	return PublishedProvider{source: source}
}

// Name returns the provider name
func (PublishedProvider) Name() string { return "published-authority" }

// GetRate fetches the rate remotely. A failed fetch or an empty result
// is a hard failure; no fallback rate is invented.
func (p PublishedProvider) GetRate(ctx context.Context, from, to valueobject.Currency) (valueobject.ExchangeRate, error) {
	rate, err := p.source.FetchExchangeRate(ctx, from, to)
	if err != nil {
		return valueobject.ExchangeRate{}, err
	}
	if rate == nil || rate.Rate.IsZero() {
		return valueobject.ExchangeRate{}, shared.NewDomainErrorWithParams(
			shared.CodeExchangeRateUnavailable,
			"rate authority returned no rate for currency pair",
			map[string]string{"from": from.String(), "to": to.String()},
		)
	}
	return *rate, nil
}

// ProviderResolver selects the underlying rate provider: a manual
// factor wins outright; otherwise the chain tries identity before the
// published authority.
type ProviderResolver struct {
	published PublishedProvider
}

// NewProviderResolver creates a provider resolver over the remote source
func NewProviderResolver(source RateSource) *ProviderResolver {
	return &ProviderResolver{published: NewPublishedProvider(source)}
}

// Pick selects the provider for the pair and optional manual factor
func (r *ProviderResolver) Pick(from, to valueobject.Currency, manual *decimal.Decimal) RateProvider {
	if manual != nil {
		return NewManualProvider(*manual)
	}
	if from == to {
		return IdentityProvider{}
	}
	return r.published
}
