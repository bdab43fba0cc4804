package checks

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/charlesng35/authzd/internal/cache"
	"github.com/charlesng35/authzd/internal/monitoring"
)

const probeKeyPrefix = "health:probe:"

// Cache writes, reads back and deletes a short-lived key in the permission
// cache store. A failing cache only degrades the service since checks fall
// back to the database.
func Cache(store cache.Store) monitoring.Check {
	return monitoring.NewCheck("permission_cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "disabled"}
		}

		key := probeKeyPrefix + uuid.NewString()
		want := []byte(key)
		if err := roundTrip(ctx, store, key, want); err != nil {
			result := monitoring.ResultFromError(err, time.Since(start))
			result.Status = monitoring.StatusDegraded
			return result
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}

func roundTrip(ctx context.Context, store cache.Store, key string, want []byte) error {
	if err := store.Set(ctx, key, want, 10*time.Second); err != nil {
		return err
	}
	defer func() { _ = store.Delete(context.WithoutCancel(ctx), key) }()

	got, ok, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || !bytes.Equal(got, want) {
		return fmt.Errorf("probe key %s did not read back", key)
	}
	return nil
}
