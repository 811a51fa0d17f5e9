package locales

import "context"

type localeContextKey struct{}

// WithLocale returns a context carrying the ambient locale code. Request
// handlers set it once; the overlay's default resolver consults it.
func WithLocale(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, code)
}

// FromContext returns the ambient locale carried by ctx, or "" when unset.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if code, ok := ctx.Value(localeContextKey{}).(string); ok {
		return code
	}
	return ""
}
