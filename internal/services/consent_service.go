package services

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/authzd/internal/authz"
)

// ConsentService manages the authorization ledger and audits its transitions.
type ConsentService struct {
	engine *authz.Engine
	audit  *AuditService
}

// NewConsentService wires the engine with an optional audit service.
func NewConsentService(engine *authz.Engine, audit *AuditService) (*ConsentService, error) {
	if engine == nil {
		return nil, errors.New("consent service: engine is required")
	}
	return &ConsentService{engine: engine, audit: audit}, nil
}

func grantMetadata(auth authz.Authorization, userID, clientID, scopeID int64) map[string]any {
	meta := map[string]any{
		"user_id":   userID,
		"client_id": clientID,
		"scope_id":  scopeID,
	}
	if auth.ID != 0 {
		meta["authorization_id"] = auth.ID
		meta["status"] = auth.Status.String()
	}
	return meta
}

func (s *ConsentService) Grant(ctx context.Context, userID, clientID, scopeID int64) (authz.Authorization, error) {
	ctx = ensureContext(ctx)
	auth, err := s.engine.Grant(ctx, userID, clientID, scopeID)
	recordAudit(s.audit, ctx, "authorization.grant", "authorization", err, grantMetadata(auth, userID, clientID, scopeID))
	return auth, err
}

func (s *ConsentService) Revoke(ctx context.Context, userID, clientID, scopeID int64) (authz.Authorization, error) {
	ctx = ensureContext(ctx)
	auth, err := s.engine.Revoke(ctx, userID, clientID, scopeID)
	recordAudit(s.audit, ctx, "authorization.revoke", "authorization", err, grantMetadata(auth, userID, clientID, scopeID))
	return auth, err
}

func (s *ConsentService) ListActive(ctx context.Context, userID int64) ([]authz.Authorization, error) {
	return s.engine.ListActive(ensureContext(ctx), userID)
}

func (s *ConsentService) IsAuthorized(ctx context.Context, userID, clientID, scopeID int64) (bool, error) {
	return s.engine.IsAuthorized(ensureContext(ctx), userID, clientID, scopeID)
}

func (s *ConsentService) Preview(ctx context.Context, userID, clientID int64, scopeIDs []int64) ([]authz.ScopeDecision, error) {
	return s.engine.Preview(ensureContext(ctx), userID, clientID, scopeIDs)
}

// Purge deletes revoked rows older than olderThan.
func (s *ConsentService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	if olderThan < 0 {
		olderThan = 0
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	purged, err := s.engine.Purge(ctx, cutoff)
	recordAudit(s.audit, ctx, "authorization.purge", "authorization", err, map[string]any{
		"cutoff": cutoff.Format(time.RFC3339),
		"purged": purged,
	})
	return purged, err
}
