package exchange

import "context"

type contextKey string

const tenantKey contextKey = "tenant"

// DefaultTenant is used when the context carries no tenant
const DefaultTenant = "default"

// WithTenant returns a context carrying the tenant id used to scope
// cache keys.
func WithTenant(ctx context.Context, tenant string) context.Context {
	if tenant == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey, tenant)
}

// TenantFromContext extracts the tenant id from the context, falling
// back to DefaultTenant.
func TenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(tenantKey).(string); ok && tenant != "" {
		return tenant
	}
	return DefaultTenant
}
