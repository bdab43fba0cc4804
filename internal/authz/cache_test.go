package authz_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/cache"
	"github.com/charlesng35/authzd/internal/store/memstore"
)

type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errCacheDown
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}

func (failingCache) Delete(context.Context, ...string) error { return errCacheDown }

func newPermissionCache(t *testing.T, store cache.Store) *authz.PermissionCache {
	t.Helper()
	pc, err := authz.NewPermissionCache(store, time.Minute)
	require.NoError(t, err)
	return pc
}

func TestPermissionCache_InvalidatedByLocalMutation(t *testing.T) {
	engine, admin := bootstrappedEngine(t, authz.WithPermissionCache(newPermissionCache(t, cache.NewMemoryStore())))
	ctx := context.Background()

	decision, err := engine.Check(ctx, testUser, authz.ResourceTypeUser, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Deny, decision)

	_, err = engine.AssignRole(ctx, testUser, admin.ID)
	require.NoError(t, err)

	decision, err = engine.Check(ctx, testUser, authz.ResourceTypeUser, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Allow, decision)

	_, err = engine.RevokePermissions(ctx, admin.ID, []authz.ResourceType{authz.ResourceTypeUser})
	require.NoError(t, err)

	decision, err = engine.Check(ctx, testUser, authz.ResourceTypeUser, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Deny, decision)
}

func TestPermissionCache_SharedGenerationAcrossEngines(t *testing.T) {
	store := memstore.New()
	shared := cache.NewMemoryStore()
	ctx := context.Background()

	reader := newTestEngine(t, store, authz.WithPermissionCache(newPermissionCache(t, shared)))
	writer := newTestEngine(t, store, authz.WithPermissionCache(newPermissionCache(t, shared)))
	require.NoError(t, writer.Bootstrap(ctx))
	admin := findRole(t, writer, authz.AdminRoleName)

	decision, err := reader.Check(ctx, testUser, authz.ResourceTypeScope, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Deny, decision)

	_, err = writer.AssignRole(ctx, testUser, admin.ID)
	require.NoError(t, err)

	decision, err = reader.Check(ctx, testUser, authz.ResourceTypeScope, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Allow, decision)
}

func TestPermissionCache_FailuresFallBackToStore(t *testing.T) {
	engine, admin := bootstrappedEngine(t, authz.WithPermissionCache(newPermissionCache(t, failingCache{})))
	ctx := context.Background()

	_, err := engine.AssignRole(ctx, testUser, admin.ID)
	require.NoError(t, err)

	decision, err := engine.Check(ctx, testUser, authz.ResourceTypeContact, authz.ActionDelete)
	require.NoError(t, err)
	require.Equal(t, authz.Allow, decision)
}

func TestPermissionCache_SharedLoadSurvivesCancelledCaller(t *testing.T) {
	pc := newPermissionCache(t, cache.NewMemoryStore())
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	load := func(ctx context.Context) (map[int64]struct{}, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[int64]struct{}{7: {}}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := pc.Load(firstCtx, testUser, load)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		set map[int64]struct{}
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		set, err := pc.Load(context.Background(), testUser, load)
		second <- outcome{set, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.Contains(t, got.set, int64(7))
}

func TestNewPermissionCache_RequiresStore(t *testing.T) {
	_, err := authz.NewPermissionCache(nil, time.Minute)
	require.Error(t, err)
}
