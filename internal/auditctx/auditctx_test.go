package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: 42, Source: "api", IPAddress: "10.0.0.1"})

	actor, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(42), actor.UserID)
	require.Equal(t, "api", actor.Source)
}

func TestFromContextWithoutActor(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	_, ok = FromContext(nil)
	require.False(t, ok)
}
