package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginInvalidatesPreviousToken(t *testing.T) {
	m := newSupersessionManager()
	ctx := context.Background()

	_, first := m.begin(ctx, classLoad)
	assert.True(t, m.isCurrent(first))

	_, second := m.begin(ctx, classLoad)
	assert.False(t, m.isCurrent(first))
	assert.True(t, m.isCurrent(second))
}

func TestClassesAreIndependent(t *testing.T) {
	m := newSupersessionManager()
	ctx := context.Background()

	_, load := m.begin(ctx, classLoad)
	_, search := m.begin(ctx, classSearch)

	m.begin(ctx, classSearch)

	assert.True(t, m.isCurrent(load))
	assert.False(t, m.isCurrent(search))
}

func TestBeginCancelsSupersededContext(t *testing.T) {
	m := newSupersessionManager()
	ctx := context.Background()

	firstCtx, _ := m.begin(ctx, classLoad)
	require.NoError(t, firstCtx.Err())

	m.begin(ctx, classLoad)
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
}

func TestFinishIgnoresStaleTokens(t *testing.T) {
	m := newSupersessionManager()
	ctx := context.Background()

	_, stale := m.begin(ctx, classLoad)
	currentCtx, current := m.begin(ctx, classLoad)

	// A stale finish must not cancel the current request's context.
	m.finish(stale)
	assert.NoError(t, currentCtx.Err())
	assert.True(t, m.isCurrent(current))

	m.finish(current)
	assert.True(t, m.isCurrent(current))
}

func TestManyOverlappingBeginsOnlyLastIsCurrent(t *testing.T) {
	m := newSupersessionManager()
	ctx := context.Background()

	tokens := make([]token, 0, 10)
	for i := 0; i < 10; i++ {
		_, tok := m.begin(ctx, classSearch)
		tokens = append(tokens, tok)
	}

	for i, tok := range tokens {
		if i == len(tokens)-1 {
			assert.True(t, m.isCurrent(tok))
		} else {
			assert.False(t, m.isCurrent(tok), "token %d should be superseded", i)
		}
	}
}
