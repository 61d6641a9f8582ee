// Package session carries the caller's member-service session through request context so
// credentialed upstream calls can forward it.
package session

import "context"

type cookieKey struct{}

// WithCookie stores the raw Cookie header the staff browser sent.
func WithCookie(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, cookieKey{}, cookie)
}

func CookieFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(cookieKey{}).(string)
	return v, ok && v != ""
}
