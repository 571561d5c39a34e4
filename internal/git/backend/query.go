package backend

import (
	"context"
	"sync"
)

type queryKey struct{}

// query holds repository state read once and shared by every listing call
// made under the same context.
type query struct {
	mu   sync.Mutex
	snap *snapshot
}

// WithQuery returns a context under which listing calls read the repository
// once. Use one per Status query; listings made outside it read fresh state
// on every call.
func WithQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryKey{}, &query{})
}

func queryFrom(ctx context.Context) *query {
	q, _ := ctx.Value(queryKey{}).(*query)
	return q
}
