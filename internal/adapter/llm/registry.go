package llm

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// modelRegistry remembers which models are known to be present and makes
// sure concurrent turns asking for the same missing model share one pull.
type modelRegistry struct {
	ready  sync.Map // model -> struct{}
	group  singleflight.Group
	ensure func(ctx context.Context, model string) error
}

func newModelRegistry(ensure func(ctx context.Context, model string) error) *modelRegistry {
	return &modelRegistry{ensure: ensure}
}

// Ensure makes model available, running ensure at most once at a time per
// model. Failures are not remembered, so the next turn tries again.
//
// The shared pull ignores caller cancellation. Each caller stops waiting when
// its own ctx ends.
func (r *modelRegistry) Ensure(ctx context.Context, model string) error {
	if _, ok := r.ready.Load(model); ok {
		return nil
	}
	pullCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(model, func() (interface{}, error) {
		if _, ok := r.ready.Load(model); ok {
			return nil, nil
		}
		if err := r.ensure(pullCtx, model); err != nil {
			return nil, err
		}
		r.ready.Store(model, struct{}{})
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether model has been ensured.
func (r *modelRegistry) Ready(model string) bool {
	_, ok := r.ready.Load(model)
	return ok
}
