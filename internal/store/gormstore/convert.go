package gormstore

import (
	"time"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/models"
)

func toPermission(row models.Permission) authz.Permission {
	return authz.Permission{
		ID:           row.ID,
		ResourceType: authz.ResourceType(row.ResourceType),
		Action:       authz.Action(row.Action),
	}
}

func toPermissions(rows []models.Permission) []authz.Permission {
	out := make([]authz.Permission, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPermission(row))
	}
	return out
}

func toRole(row models.Role) authz.Role {
	return authz.Role{ID: row.ID, Name: row.Name}
}

func toRoles(rows []models.Role) []authz.Role {
	out := make([]authz.Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRole(row))
	}
	return out
}

func toAuthorization(row models.Authorization) authz.Authorization {
	return authz.Authorization{
		ID:          row.ID,
		UserID:      row.UserID,
		ClientID:    row.ClientID,
		ScopeID:     row.ScopeID,
		CreatedTime: row.CreatedTime.UTC(),
		UpdatedTime: utcPtr(row.UpdatedTime),
		RemovedTime: utcPtr(row.RemovedTime),
		Status:      authz.Status(row.Status),
	}
}

func fromAuthorization(a authz.Authorization) models.Authorization {
	return models.Authorization{
		ID:          a.ID,
		UserID:      a.UserID,
		ClientID:    a.ClientID,
		ScopeID:     a.ScopeID,
		CreatedTime: a.CreatedTime,
		UpdatedTime: a.UpdatedTime,
		RemovedTime: a.RemovedTime,
		Status:      int(a.Status),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
