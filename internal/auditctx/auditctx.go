// Package auditctx carries the acting principal from the HTTP layer or the
// admin CLI down to the services that write the audit trail.
package auditctx

import "context"

// Actor describes who initiated a mutation. UserID is zero for system actions
// such as start-up bootstrap.
type Actor struct {
	UserID    int64
	Source    string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor returns a derived context carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
