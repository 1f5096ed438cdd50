package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRunIDGeneratesOnce(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	require.NotEmpty(t, id)
	_, err := ulid.Parse(id)
	assert.NoError(t, err)

	again, same := EnsureRunID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, RunIDFromContext(again))
}

func TestContextWithRunIDIgnoresEmpty(t *testing.T) {
	ctx := ContextWithRunID(context.Background(), "")
	assert.Equal(t, "", RunIDFromContext(ctx))
}
