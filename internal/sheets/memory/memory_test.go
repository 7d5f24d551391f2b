package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAppend(t *testing.T) {
	l := New()
	ctx := context.Background()

	ref, err := l.AppendEntry(ctx, core.Transaction{ID: "a", Description: "first"})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	ref, err = l.AppendEntry(ctx, core.Transaction{ID: "b", Description: "second"})
	require.NoError(t, err)
	assert.Equal(t, "mem:2", ref)

	ref, err = l.AppendEntry(ctx, core.Transaction{ID: "a", Description: "replayed"})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Description)
}

func TestLedgerAppendRequiresID(t *testing.T) {
	_, err := New().AppendEntry(context.Background(), core.Transaction{})
	assert.ErrorIs(t, err, core.ErrValidation)
}
