package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/techmail/internal/hooks"
)

func appendFilter(suffix string) hooks.Filter {
	return func(ctx context.Context, value any, args ...any) (any, error) {
		return value.(string) + suffix, nil
	}
}

func TestRegistry_ApplyFilters(t *testing.T) {
	reg := hooks.NewRegistry()

	got, err := reg.ApplyFilters(context.Background(), "missing", "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)

	reg.AddFilter("title", 20, appendFilter("-late"))
	reg.AddFilter("title", 10, appendFilter("-first"))
	reg.AddFilter("title", 10, appendFilter("-second"))

	got, err = reg.ApplyFilters(context.Background(), "title", "x")
	require.NoError(t, err)
	assert.Equal(t, "x-first-second-late", got)
	assert.True(t, reg.HasFilter("title"))
}

func TestRegistry_FilterError(t *testing.T) {
	reg := hooks.NewRegistry()
	reg.AddFilter("f", hooks.DefaultPriority, func(ctx context.Context, value any, args ...any) (any, error) {
		return nil, errors.New("bad payload")
	})

	got, err := reg.ApplyFilters(context.Background(), "f", "in")
	assert.Error(t, err)
	assert.Equal(t, "in", got)
}

func TestRegistry_DoAction(t *testing.T) {
	reg := hooks.NewRegistry()
	var calls []string
	reg.AddAction("save", hooks.DefaultPriority, func(ctx context.Context, args ...any) error {
		calls = append(calls, "one")
		return errors.New("first failed")
	})
	reg.AddAction("save", hooks.DefaultPriority, func(ctx context.Context, args ...any) error {
		calls = append(calls, args[0].(string))
		return nil
	})

	err := reg.DoAction(context.Background(), "save", "two")
	assert.Error(t, err)
	assert.Equal(t, []string{"one", "two"}, calls)
	assert.NoError(t, reg.DoAction(context.Background(), "nothing"))

	filters, actions := reg.Names()
	assert.Empty(t, filters)
	assert.Equal(t, []string{"save"}, actions)
}
