package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, Actor(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActor(ctx, "user-1")
	ctx = WithClientIP(ctx, "10.0.0.1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", Actor(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
}
