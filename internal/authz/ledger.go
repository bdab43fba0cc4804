package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authzd/pkg/metrics"
)

const (
	outcomeCreated     = "created"
	outcomeReactivated = "reactivated"
	outcomeRevoked     = "revoked"
	outcomeNoop        = "noop"
	outcomeError       = "error"
)

// Grant records that the user consented to scope for client. An absent row is
// inserted active, an active row is returned unchanged, and any inactive row is
// reactivated with updated_time advanced and removed_time cleared.
//
// When a concurrent grant wins the insert race the unique violation is
// absorbed and the grant is retried in a fresh transaction, where it finds
// the winner's row. Deadlocks and serialization failures are retried the
// same way. ErrConflictRetryExhausted is returned after grantRetries
// attempts.
func (e *Engine) Grant(ctx context.Context, userID, clientID, scopeID int64) (Authorization, error) {
	ctx = ensureContext(ctx)
	key := GrantKey{UserID: userID, ClientID: clientID, ScopeID: scopeID}
	if err := e.validateGrantKey(ctx, key); err != nil {
		return Authorization{}, err
	}

	for attempt := 1; attempt <= e.grantRetries; attempt++ {
		auth, outcome, err := e.grantOnce(ctx, key)
		if errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrTransactionConflict) {
			metrics.GrantConflicts.Inc()
			e.log.Warn("grant lost insert race, retrying",
				zap.Int64("user_id", userID),
				zap.Int64("client_id", clientID),
				zap.Int64("scope_id", scopeID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			metrics.LedgerTransitions.WithLabelValues("grant", outcomeError).Inc()
			return Authorization{}, fmt.Errorf("authz: grant: %w", err)
		}

		metrics.LedgerTransitions.WithLabelValues("grant", outcome).Inc()
		e.log.Debug("authorization granted",
			zap.Int64("authorization_id", auth.ID),
			zap.Int64("user_id", userID),
			zap.Int64("client_id", clientID),
			zap.Int64("scope_id", scopeID),
			zap.String("outcome", outcome),
		)
		return auth, nil
	}

	metrics.LedgerTransitions.WithLabelValues("grant", outcomeError).Inc()
	return Authorization{}, ErrConflictRetryExhausted
}

func (e *Engine) grantOnce(ctx context.Context, key GrantKey) (Authorization, string, error) {
	var (
		auth    Authorization
		outcome string
	)
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		existing, err := tx.FindAuthorization(key, true)
		if errors.Is(err, ErrRecordNotFound) {
			auth = Authorization{
				UserID:      key.UserID,
				ClientID:    key.ClientID,
				ScopeID:     key.ScopeID,
				CreatedTime: e.now(),
				Status:      StatusActive,
			}
			outcome = outcomeCreated
			return tx.InsertAuthorization(&auth)
		}
		if err != nil {
			return err
		}

		auth = existing
		if existing.Status.IsActive() {
			outcome = outcomeNoop
			return nil
		}

		now := e.now()
		auth.Status = StatusActive
		auth.UpdatedTime = &now
		auth.RemovedTime = nil
		outcome = outcomeReactivated
		return tx.UpdateAuthorization(&auth)
	})
	if err != nil {
		return Authorization{}, "", err
	}
	return auth, outcome, nil
}

// Revoke soft-deletes the user's grant for (client, scope). Revoking a row
// that is already inactive returns it unchanged; revoking a triple that was
// never granted fails with ErrAuthorizationNotFound.
func (e *Engine) Revoke(ctx context.Context, userID, clientID, scopeID int64) (Authorization, error) {
	ctx = ensureContext(ctx)
	if err := e.validateUser(ctx, userID); err != nil {
		return Authorization{}, err
	}
	key := GrantKey{UserID: userID, ClientID: clientID, ScopeID: scopeID}

	var (
		auth    Authorization
		outcome string
	)
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		existing, err := tx.FindAuthorization(key, true)
		if err != nil {
			return err
		}

		auth = existing
		if !existing.Status.IsActive() {
			outcome = outcomeNoop
			return nil
		}

		now := e.now()
		auth.Status = StatusRevoked
		auth.UpdatedTime = &now
		auth.RemovedTime = &now
		outcome = outcomeRevoked
		return tx.UpdateAuthorization(&auth)
	})
	if errors.Is(err, ErrRecordNotFound) {
		metrics.LedgerTransitions.WithLabelValues("revoke", "not_found").Inc()
		return Authorization{}, ErrAuthorizationNotFound
	}
	if err != nil {
		metrics.LedgerTransitions.WithLabelValues("revoke", outcomeError).Inc()
		return Authorization{}, fmt.Errorf("authz: revoke: %w", err)
	}

	metrics.LedgerTransitions.WithLabelValues("revoke", outcome).Inc()
	e.log.Debug("authorization revoked",
		zap.Int64("authorization_id", auth.ID),
		zap.Int64("user_id", userID),
		zap.Int64("client_id", clientID),
		zap.Int64("scope_id", scopeID),
		zap.String("outcome", outcome),
	)
	return auth, nil
}

// ListActive returns the user's active grants, oldest first.
func (e *Engine) ListActive(ctx context.Context, userID int64) ([]Authorization, error) {
	ctx = ensureContext(ctx)

	var auths []Authorization
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		auths, err = tx.ListAuthorizations(userID, StatusActive)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authz: list authorizations: %w", err)
	}
	if auths == nil {
		auths = []Authorization{}
	}
	return auths, nil
}

// IsAuthorized reports whether an active grant exists for the triple.
func (e *Engine) IsAuthorized(ctx context.Context, userID, clientID, scopeID int64) (bool, error) {
	ctx = ensureContext(ctx)
	key := GrantKey{UserID: userID, ClientID: clientID, ScopeID: scopeID}

	var active bool
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		auth, err := tx.FindAuthorization(key, false)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		active = auth.Status.IsActive()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("authz: is authorized: %w", err)
	}
	return active, nil
}

// Preview classifies each requested scope against the user's existing grants
// for client, for rendering a consent screen. Duplicate scope ids are reported once.
func (e *Engine) Preview(ctx context.Context, userID, clientID int64, scopeIDs []int64) ([]ScopeDecision, error) {
	ctx = ensureContext(ctx)
	if err := e.validateUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := e.validateClient(ctx, clientID); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(scopeIDs))
	scopes := make([]int64, 0, len(scopeIDs))
	for _, id := range scopeIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := e.validateScope(ctx, id, clientID); err != nil {
			return nil, err
		}
		scopes = append(scopes, id)
	}

	decisions := make([]ScopeDecision, 0, len(scopes))
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		for _, scopeID := range scopes {
			key := GrantKey{UserID: userID, ClientID: clientID, ScopeID: scopeID}
			auth, err := tx.FindAuthorization(key, false)
			if errors.Is(err, ErrRecordNotFound) {
				decisions = append(decisions, ScopeDecision{ScopeID: scopeID, State: ScopeStateNew})
				continue
			}
			if err != nil {
				return err
			}

			decision := ScopeDecision{ScopeID: scopeID, Authorization: &auth}
			switch auth.Status {
			case StatusActive:
				decision.State = ScopeStateGranted
			case StatusRevoked:
				decision.State = ScopeStateRevoked
			default:
				decision.State = ScopeStateInactive
			}
			decisions = append(decisions, decision)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("authz: preview: %w", err)
	}
	return decisions, nil
}

// Purge physically deletes revoked rows whose removed_time is before olderThan.
// Active rows and rows in unrecognised states are never purged.
func (e *Engine) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	if olderThan.IsZero() {
		return 0, invalidInput("purge cutoff is required")
	}

	var purged int64
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		purged, err = tx.PurgeRevokedAuthorizations(olderThan)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("authz: purge: %w", err)
	}

	e.log.Info("revoked authorizations purged", zap.Int64("purged", purged), zap.Time("cutoff", olderThan))
	return purged, nil
}
