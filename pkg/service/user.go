package service

import (
	"context"
	"log/slog"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// UserService manages the user directory rows that every permission
// check and visibility rule reads from
type UserService struct {
	users    repository.UserRepository
	activity repository.ActivityLogRepository
	perms    *PermissionService
	logger   *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	activity repository.ActivityLogRepository,
	perms *PermissionService,
	logger *slog.Logger,
) *UserService {
	return &UserService{users: users, activity: activity, perms: perms, logger: logger}
}

var knownRoles = map[models.Role]bool{
	models.RoleAgent:        true,
	models.RoleAgentManager: true,
	models.RoleQAAnalyst:    true,
	models.RoleQAManager:    true,
	models.RoleAdmin:        true,
}

// Create registers a user; Admin only
func (s *UserService) Create(ctx context.Context, actor string, user models.User) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return permissionDenied(models.RoleAdmin)
	}
	if user.Email == "" || user.Name == "" {
		return models.Fail(models.CodeValidationError, "user email and name are required")
	}
	if !knownRoles[user.Role] {
		return models.Fail(models.CodeValidationError, "unknown role "+string(user.Role))
	}

	user.Active = true
	if err := s.users.Create(ctx, &user); err != nil {
		return failFromError(err, "could not create user")
	}

	s.logActivity(ctx, actor, "user.create", user.Email, string(user.Role))
	return models.OK("user created")
}

// Update edits a user's directory fields; Admin only. Deactivation is
// an update with active=false, existing evaluations keep their rows.
func (s *UserService) Update(ctx context.Context, actor string, user models.User) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return permissionDenied(models.RoleAdmin)
	}
	if user.Email == "" {
		return models.Fail(models.CodeValidationError, "user email is required")
	}
	if !knownRoles[user.Role] {
		return models.Fail(models.CodeValidationError, "unknown role "+string(user.Role))
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return failFromError(err, "user "+user.Email+" does not exist")
	}

	s.logActivity(ctx, actor, "user.update", user.Email, "")
	return models.OK("user updated")
}

// List returns the directory; QAManager and Admin only
func (s *UserService) List(ctx context.Context, actor string) ([]models.User, models.Result) {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return nil, permissionDenied(models.RoleQAManager)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, failFromError(err, "could not list users")
	}
	return users, models.OK("")
}

func (s *UserService) logActivity(ctx context.Context, actor, action, entityID, detail string) {
	entry := &models.ActivityLog{
		ID:        repository.GenerateID(),
		Actor:     actor,
		Action:    action,
		EntityID:  entityID,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Warn("activity log append failed", "action", action, "error", err)
	}
}
