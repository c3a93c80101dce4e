package context

import (
	"context"
	"time"
)

// wrapper carries the values of one context under the cancellation of
// another
// approach from https://github.com/posener/ctxutil
type wrapper struct {
	values context.Context
	context.Context
}

// Value looks the key up on the owning context first and falls back to the
// wrapped value context.
func (w *wrapper) Value(k interface{}) interface{} {
	if v := w.Context.Value(k); v != nil {
		return v
	}
	return w.values.Value(k)
}

// Wrap returns a context with the cancellation of ctx and the values of
// values layered underneath.
func Wrap(values context.Context, ctx context.Context) context.Context {
	return &wrapper{values, ctx}
}

// Detach returns a context that keeps the values of ctx but not its
// cancellation, bounded by timeout instead. For work that has to finish
// after the request that started it is gone.
func Detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached, cancel := context.WithTimeout(context.Background(), timeout)
	return Wrap(ctx, detached), cancel
}
