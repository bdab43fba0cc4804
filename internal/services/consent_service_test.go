package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/auditctx"
	"github.com/charlesng35/authzd/internal/authz"
)

func TestNewConsentService_RequiresEngine(t *testing.T) {
	_, err := NewConsentService(nil, nil)
	require.Error(t, err)
}

func TestConsentService_GrantRevokeIsAudited(t *testing.T) {
	f := newServiceFixture(t)
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: 42, Source: "api"})

	granted, err := f.consent.Grant(ctx, 42, 7, 3)
	require.NoError(t, err)
	require.Equal(t, authz.StatusActive, granted.Status)

	ok, err := f.consent.IsAuthorized(ctx, 42, 7, 3)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := f.consent.ListActive(ctx, 42)
	require.NoError(t, err)
	require.Len(t, active, 1)

	revoked, err := f.consent.Revoke(ctx, 42, 7, 3)
	require.NoError(t, err)
	require.Equal(t, authz.StatusRevoked, revoked.Status)

	log := lastAudit(t, f.db, "authorization.revoke")
	require.Equal(t, auditResultSuccess, log.Result)
	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(log.Metadata), &metadata))
	require.Equal(t, "revoked", metadata["status"])
	require.EqualValues(t, granted.ID, metadata["authorization_id"])

	preview, err := f.consent.Preview(ctx, 42, 7, []int64{3, 4})
	require.NoError(t, err)
	require.Len(t, preview, 2)
	require.Equal(t, authz.ScopeStateRevoked, preview[0].State)
	require.Equal(t, authz.ScopeStateNew, preview[1].State)
}

func TestConsentService_RevokeUnknownIsAuditedAsFailure(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.consent.Revoke(context.Background(), 42, 7, 4)
	require.ErrorIs(t, err, authz.ErrAuthorizationNotFound)

	log := lastAudit(t, f.db, "authorization.revoke")
	require.Equal(t, auditResultFailure, log.Result)
}

func TestConsentService_Purge(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.consent.Grant(ctx, 42, 7, 3)
	require.NoError(t, err)
	_, err = f.consent.Revoke(ctx, 42, 7, 3)
	require.NoError(t, err)
	_, err = f.consent.Grant(ctx, 43, 7, 3)
	require.NoError(t, err)

	purged, err := f.consent.Purge(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, purged)

	purged, err = f.consent.Purge(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
	require.Equal(t, auditResultSuccess, lastAudit(t, f.db, "authorization.purge").Result)

	active, err := f.consent.ListActive(ctx, 43)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
