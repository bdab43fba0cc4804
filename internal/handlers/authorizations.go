package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/services"
	appErrors "github.com/charlesng35/authzd/pkg/errors"
	"github.com/charlesng35/authzd/pkg/response"
)

// AuthorizationHandler serves the caller's own consent ledger plus the admin views.
type AuthorizationHandler struct {
	svc *services.ConsentService
}

func NewAuthorizationHandler(svc *services.ConsentService) (*AuthorizationHandler, error) {
	if svc == nil {
		return nil, errors.New("authorization handler: consent service is required")
	}
	return &AuthorizationHandler{svc: svc}, nil
}

type grantAuthorizationRequest struct {
	ClientID int64 `json:"client_id" validate:"required,gt=0"`
	ScopeID  int64 `json:"scope_id" validate:"required,gt=0"`
}

type previewAuthorizationRequest struct {
	ClientID int64   `json:"client_id" validate:"required,gt=0"`
	ScopeIDs []int64 `json:"scope_ids" validate:"required,min=1,dive,gt=0"`
}

type purgeAuthorizationsRequest struct {
	OlderThan string `json:"older_than" validate:"required"`
}

// GET /api/authorizations
func (h *AuthorizationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.list(c, userID)
}

// GET /api/users/:id/authorizations
func (h *AuthorizationHandler) ListForUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.list(c, userID)
}

func (h *AuthorizationHandler) list(c *gin.Context, userID int64) {
	auths, err := h.svc.ListActive(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, auths)
}

// POST /api/authorizations
func (h *AuthorizationHandler) Grant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var body grantAuthorizationRequest
	if !bindAndValidate(c, &body) {
		return
	}
	auth, err := h.svc.Grant(requestContext(c), userID, body.ClientID, body.ScopeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, auth)
}

// POST /api/authorizations/preview
func (h *AuthorizationHandler) Preview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var body previewAuthorizationRequest
	if !bindAndValidate(c, &body) {
		return
	}
	decisions, err := h.svc.Preview(requestContext(c), userID, body.ClientID, body.ScopeIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, decisions)
}

// GET /api/authorizations/:clientID/:scopeID
func (h *AuthorizationHandler) Get(c *gin.Context) {
	userID, clientID, scopeID, ok := h.triple(c)
	if !ok {
		return
	}
	authorized, err := h.svc.IsAuthorized(requestContext(c), userID, clientID, scopeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"client_id":  clientID,
		"scope_id":   scopeID,
		"authorized": authorized,
	})
}

// DELETE /api/authorizations/:clientID/:scopeID
func (h *AuthorizationHandler) Revoke(c *gin.Context) {
	userID, clientID, scopeID, ok := h.triple(c)
	if !ok {
		return
	}
	auth, err := h.svc.Revoke(requestContext(c), userID, clientID, scopeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, auth)
}

// POST /api/authorizations/purge
func (h *AuthorizationHandler) Purge(c *gin.Context) {
	var body purgeAuthorizationsRequest
	if !bindAndValidate(c, &body) {
		return
	}
	olderThan, err := time.ParseDuration(body.OlderThan)
	if err != nil || olderThan < 0 {
		response.Error(c, appErrors.NewBadRequest("older_than must be a non-negative duration such as 720h"))
		return
	}
	purged, err := h.svc.Purge(requestContext(c), olderThan)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"purged": purged})
}

func (h *AuthorizationHandler) triple(c *gin.Context) (userID, clientID, scopeID int64, ok bool) {
	if userID, ok = currentUserID(c); !ok {
		return
	}
	if clientID, ok = parseIDParam(c, "clientID"); !ok {
		return
	}
	scopeID, ok = parseIDParam(c, "scopeID")
	return
}
