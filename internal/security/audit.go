// Package security inspects a deployment for risky settings: weak signing
// secrets, long-lived tokens, short audit retention and nobody holding the
// admin role.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/app"
	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

const (
	minSecretBytes         = 32
	recommendedSecretBytes = 48
	maxRecommendedTokenTTL = time.Hour
	minRetentionDays       = 30
)

// Auditor evaluates the configuration and the admin role assignment.
type Auditor struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditor constructs an Auditor. Both dependencies are optional; missing
// inputs degrade the affected checks to warnings.
func NewAuditor(db *gorm.DB, cfg *app.Config) *Auditor {
	return &Auditor{db: db, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used in results.
func (a *Auditor) WithClock(clock func() time.Time) {
	if clock != nil {
		a.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (a *Auditor) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		a.checkAdminHolders(ctx),
		a.checkJWTSecret(),
		a.checkTokenTTL(),
		a.checkAuditRetention(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{CheckedAt: a.now().UTC(), Checks: checks, Summary: summary}
}

func configMissing(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded; check skipped.",
		Remediation: "Load configuration before running the security audit.",
	}
}

func (a *Auditor) checkAdminHolders(ctx context.Context) Check {
	const id = "admin_role_assigned"
	if a.db == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to confirm admin role holders.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Joins("JOIN role ON role.id = user_role.role_id").
		Where("role.name = ?", authz.AdminRoleName).
		Count(&count).Error
	if err != nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count admin role holders: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}
	if count == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No user holds the admin role.",
			Remediation: "List at least one user in bootstrap.admin_user_ids or run `authzctl role assign`.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Admin role assigned.",
		Details: map[string]any{"count": count},
	}
}

func (a *Auditor) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if a.cfg == nil {
		return configMissing(id)
	}

	length := len(strings.TrimSpace(a.cfg.Auth.JWT.Secret))
	switch {
	case length == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: fmt.Sprintf("Provide a cryptographically secure signing secret (>= %d bytes).", minSecretBytes),
		}
	case length < minSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: fmt.Sprintf("Use a randomly generated secret of at least %d bytes.", minSecretBytes),
		}
	case length < recommendedSecretBytes:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to %d+ bytes.", length, recommendedSecretBytes),
			Remediation: "Increase the length of AUTHZD_AUTH_JWT_SECRET.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (a *Auditor) checkTokenTTL() Check {
	const id = "access_token_ttl"
	if a.cfg == nil {
		return configMissing(id)
	}

	ttl := a.cfg.Auth.JWT.TTL
	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedTokenTTL),
			Remediation: "Tokens cannot be revoked before expiry; keep auth.jwt.access_token_ttl short.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (a *Auditor) checkAuditRetention() Check {
	const id = "audit_retention"
	if a.cfg == nil {
		return configMissing(id)
	}

	days := a.cfg.Audit.RetentionDays
	if days > 0 && days < minRetentionDays {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Audit entries are kept for only %d days.", days),
			Remediation: fmt.Sprintf("Raise audit.retention_days to at least %d.", minRetentionDays),
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Audit retention configured.",
		Details: map[string]any{"retention_days": days},
	}
}
