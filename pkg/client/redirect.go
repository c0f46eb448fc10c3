package client

import "context"

// Redirector is invoked once when a request fails with an authorization
// error that cannot be recovered by refreshing. Tokens have already been
// removed from the store when it runs.
type Redirector interface {
	RedirectToLogin(ctx context.Context)
}

// RedirectFunc adapts a function to Redirector
type RedirectFunc func(ctx context.Context)

// RedirectToLogin calls f
func (f RedirectFunc) RedirectToLogin(ctx context.Context) {
	f(ctx)
}
