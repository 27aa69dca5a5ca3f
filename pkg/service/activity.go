package service

import (
	"context"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

const defaultActivityLimit = 100

// ActivityService exposes the operation audit trail to administrators
type ActivityService struct {
	activity repository.ActivityLogRepository
	perms    *PermissionService
}

func NewActivityService(activity repository.ActivityLogRepository, perms *PermissionService) *ActivityService {
	return &ActivityService{activity: activity, perms: perms}
}

// Recent returns the newest audit rows, most recent first; Admin only
func (s *ActivityService) Recent(ctx context.Context, actor string, limit int) ([]models.ActivityLog, models.Result) {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return nil, permissionDenied(models.RoleAdmin)
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	entries, err := s.activity.List(ctx, limit)
	if err != nil {
		return nil, failFromError(err, "could not list activity")
	}
	return entries, models.OK("")
}
