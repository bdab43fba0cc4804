package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/authzd/internal/auditctx"
	"github.com/charlesng35/authzd/pkg/logger"
)

const (
	auditResultSuccess = "success"
	auditResultFailure = "failure"
)

// recordAudit logs the outcome of a mutation on behalf of the actor in ctx.
// Audit failures are logged and never fail the mutation itself.
func recordAudit(audit *AuditService, ctx context.Context, action, resource string, opErr error, metadata map[string]any) {
	if audit == nil {
		return
	}

	entry := AuditEntry{
		Action:   action,
		Resource: resource,
		Result:   auditResultSuccess,
		Metadata: metadata,
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if actor.UserID > 0 {
			id := actor.UserID
			entry.UserID = &id
		}
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
		if actor.Source != "" {
			entry.Metadata = withMetadata(entry.Metadata, "source", actor.Source)
		}
	}
	if opErr != nil {
		entry.Result = auditResultFailure
		entry.Metadata = withMetadata(entry.Metadata, "error", opErr.Error())
	}

	if err := audit.Log(context.WithoutCancel(ctx), entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func withMetadata(metadata map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[key] = value
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
