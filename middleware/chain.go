// Package middleware implements the priority-ordered wrapper chain every
// function call passes through before its executor runs.
//
// A Middleware wraps a Handler and must call next to continue; the
// innermost handler is the real function executor. Chains are composed
// once, at plan-build time, by folding the sorted middleware list in
// reverse so that the highest-priority middleware ends up outermost.
package middleware

import (
	"context"
	"sort"

	"github.com/agendo/engine/types"
)

// Handler processes one function call and returns its result.
type Handler func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error)

// WrapFunc wraps a handler with additional behavior.
type WrapFunc func(next Handler) Handler

// Middleware is a named, prioritized wrapper. Higher priority runs
// earlier (outermost) in the composed chain.
type Middleware struct {
	Name     string
	Priority int
	Wrap     WrapFunc
}

// Compose merges the given middleware, sorts them by descending priority
// (stable, so same-priority middleware keep their relative order), and
// folds them around the base handler.
func Compose(base Handler, mws ...Middleware) Handler {
	sorted := make([]Middleware, len(mws))
	copy(sorted, mws)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	h := base
	for i := len(sorted) - 1; i >= 0; i-- {
		h = sorted[i].Wrap(h)
	}
	return h
}

// Merge concatenates middleware lists without composing them. Useful for
// building the effective list (base chain + per-function middleware)
// before a single Compose call.
func Merge(lists ...[]Middleware) []Middleware {
	var merged []Middleware
	for _, list := range lists {
		merged = append(merged, list...)
	}
	return merged
}
