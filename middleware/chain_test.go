package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendo/engine/types"
)

func recording(name string, order *[]string) Middleware {
	return Middleware{
		Name: name,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				*order = append(*order, name)
				return next(ctx, call, cctx)
			}
		},
	}
}

func TestComposeOrdersByPriority(t *testing.T) {
	var order []string
	base := func(context.Context, types.FunctionCall, types.ConversationContext) (*types.FunctionResult, error) {
		order = append(order, "base")
		return &types.FunctionResult{Success: true}, nil
	}

	low := recording("low", &order)
	low.Priority = 10
	high := recording("high", &order)
	high.Priority = 100
	mid := recording("mid", &order)
	mid.Priority = 50

	handler := Compose(base, low, high, mid)
	result, err := handler(context.Background(), types.FunctionCall{Name: "get_info"}, types.ConversationContext{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"high", "mid", "low", "base"}, order)
}

func TestComposeStableForEqualPriority(t *testing.T) {
	var order []string
	base := func(context.Context, types.FunctionCall, types.ConversationContext) (*types.FunctionResult, error) {
		return &types.FunctionResult{Success: true}, nil
	}

	first := recording("first", &order)
	second := recording("second", &order)
	first.Priority, second.Priority = 50, 50

	handler := Compose(base, first, second)
	_, err := handler(context.Background(), types.FunctionCall{}, types.ConversationContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	base := func(context.Context, types.FunctionCall, types.ConversationContext) (*types.FunctionResult, error) {
		return &types.FunctionResult{Success: true}, nil
	}
	var order []string
	a := recording("a", &order)
	a.Priority = 1
	b := recording("b", &order)
	b.Priority = 2

	mws := []Middleware{a, b}
	Compose(base, mws...)
	assert.Equal(t, "a", mws[0].Name)
	assert.Equal(t, "b", mws[1].Name)
}

func TestMerge(t *testing.T) {
	var order []string
	a := recording("a", &order)
	b := recording("b", &order)
	c := recording("c", &order)

	merged := Merge([]Middleware{a}, []Middleware{b, c}, nil)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].Name)
	assert.Equal(t, "c", merged[2].Name)
}

func TestBookingValidation(t *testing.T) {
	base := func(context.Context, types.FunctionCall, types.ConversationContext) (*types.FunctionResult, error) {
		return &types.FunctionResult{Success: true}, nil
	}
	handler := Compose(base, BookingValidation())

	t.Run("missing date fails fast", func(t *testing.T) {
		result, err := handler(context.Background(), types.FunctionCall{
			Name:      "book_service",
			Arguments: []byte(`{"time":"10:00"}`),
		}, types.ConversationContext{})
		require.NoError(t, err)
		assert.False(t, result.Success)
	})

	t.Run("complete args pass through", func(t *testing.T) {
		result, err := handler(context.Background(), types.FunctionCall{
			Name:      "book_service",
			Arguments: []byte(`{"date":"2026-09-01","time":"10:00"}`),
		}, types.ConversationContext{})
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}
