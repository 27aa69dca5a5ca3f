package service

import (
	"context"
	"errors"
	"fmt"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// PermissionService resolves an acting identity's role and checks it
// against a required-role policy
type PermissionService struct {
	users repository.UserRepository
}

func NewPermissionService(users repository.UserRepository) *PermissionService {
	return &PermissionService{users: users}
}

// ResolveRole looks up the actor's role. Unknown or deactivated users
// resolve to no role.
func (s *PermissionService) ResolveRole(ctx context.Context, actor string) (models.Role, bool) {
	if actor == "" {
		return "", false
	}
	user, err := s.users.GetByEmail(ctx, actor)
	if err != nil || !user.Active {
		return "", false
	}
	return user.Role, true
}

// HasPermission reports whether the actor holds the required role.
// Admin passes every check, and QAManager subsumes QAAnalyst; every other
// combination requires an exact match.
func (s *PermissionService) HasPermission(ctx context.Context, actor string, required models.Role) bool {
	role, ok := s.ResolveRole(ctx, actor)
	if !ok {
		return false
	}
	if role == models.RoleAdmin {
		return true
	}
	if required == models.RoleQAAnalyst && role == models.RoleQAManager {
		return true
	}
	return role == required
}

// permissionDenied builds the fixed failure message for a missing role
func permissionDenied(required models.Role) models.Result {
	return models.Fail(models.CodePermissionDenied,
		fmt.Sprintf("you do not have the %s permission required for this action", required))
}

// failFromError converts a repository error into the structured failure
// shape; nothing internal escapes to the caller.
func failFromError(err error, message string) models.Result {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Fail(models.CodeNotFound, message)
	case errors.Is(err, repository.ErrConflict):
		return models.Fail(models.CodeConflict, message+": record was modified concurrently, please retry")
	default:
		return models.Fail(models.CodeStorageError, message)
	}
}
