package tenant

import "context"

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const tenantKey contextKey = "tenant"

// WithTenant returns a new context with the given tenant attached.
// Used by Require after the request header has been validated.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// FromCtx extracts the tenant resolved for the current request.
// Returns ErrBlankTenant if no tenant was attached.
func FromCtx(ctx context.Context) (string, error) {
	t, ok := ctx.Value(tenantKey).(string)
	if !ok || t == "" {
		return "", ErrBlankTenant
	}
	return t, nil
}
