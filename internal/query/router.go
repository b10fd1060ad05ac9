package query

import (
	"context"
	"fmt"
)

// Router dispatches to the engine registered for the request's store driver.
type Router struct {
	engines map[string]Engine
}

func NewRouter(engines map[string]Engine) *Router {
	return &Router{engines: engines}
}

func (r *Router) Execute(ctx context.Context, request Request) (Result, error) {
	engine, ok := r.engines[request.Params.Driver]
	if !ok {
		return Result{}, fmt.Errorf("no query engine for store driver %q", request.Params.Driver)
	}
	return engine.Execute(ctx, request)
}
