package authz

import (
	"errors"
	"net/http"

	apperrors "github.com/charlesng35/authzd/pkg/errors"
)

// Storage contract errors. Store implementations translate their driver
// errors into these so the engine stays storage-agnostic.
var (
	ErrRecordNotFound  = errors.New("authz: record not found")
	ErrUniqueViolation = errors.New("authz: unique constraint violation")
	// ErrTransactionConflict marks a transaction the database aborted because
	// of a deadlock, lock timeout or serialization failure.
	ErrTransactionConflict = errors.New("authz: transaction conflict")
)

var (
	// ErrAuthorizationNotFound is returned when revoking a triple that was never granted.
	ErrAuthorizationNotFound = apperrors.New("AUTHORIZATION_NOT_FOUND", "Authorization not found", http.StatusNotFound)
	// ErrPermissionNotFound indicates a (resource type, action) pair or permission id is not in the catalog.
	ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrDuplicateRoleName is returned when a role name is already taken.
	ErrDuplicateRoleName = apperrors.New("DUPLICATE_ROLE_NAME", "Role name already exists", http.StatusConflict)
	// ErrDuplicatePermission is returned when a (resource type, action) pair is already defined.
	ErrDuplicatePermission = apperrors.New("DUPLICATE_PERMISSION", "Permission already exists", http.StatusConflict)
	// ErrUnknownUser indicates the user directory does not know the user.
	ErrUnknownUser = apperrors.New("UNKNOWN_USER", "Unknown user", http.StatusUnprocessableEntity)
	// ErrUnknownClient indicates the client registry does not know the client.
	ErrUnknownClient = apperrors.New("UNKNOWN_CLIENT", "Unknown client", http.StatusUnprocessableEntity)
	// ErrUnknownScope indicates the scope does not exist or belongs to another client.
	ErrUnknownScope = apperrors.New("UNKNOWN_SCOPE", "Unknown scope for client", http.StatusUnprocessableEntity)
	// ErrConflictRetryExhausted is a transient failure: concurrent grants kept colliding. Safe to retry.
	ErrConflictRetryExhausted = apperrors.New("CONFLICT_RETRY_EXHAUSTED", "Concurrent update conflict, retry the request", http.StatusServiceUnavailable)
	// ErrInvalidInput flags malformed arguments such as empty names or unknown resource types.
	ErrInvalidInput = apperrors.New("INVALID_INPUT", "Invalid input", http.StatusBadRequest)
)

func invalidInput(message string) error {
	err := *ErrInvalidInput
	err.Message = message
	return &err
}
