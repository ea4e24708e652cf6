package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduperClaimsOnce(t *testing.T) {
	mr, client := newTestClient(t)
	d := NewDeduper(client, "customer-service")
	ctx := context.Background()

	first, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, ProcessedTTL, mr.TTL("processed:event:customer-service:evt-1"))

	require.NoError(t, d.Release(ctx, "evt-1"))
	retry, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, retry)
}
