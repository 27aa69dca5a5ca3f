package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// Defaults applied when a setting row is absent
const (
	DefaultPassingScorePercentage = 80.0
	DefaultDisputeTimeLimitDays   = 7
)

// protectedSettings can never be deleted
var protectedSettings = map[string]bool{
	models.SettingPassingScorePercentage: true,
	models.SettingDisputeTimeLimitDays:   true,
}

// SettingsService reads and mutates process-wide configuration
type SettingsService struct {
	settings repository.SettingsRepository
	perms    *PermissionService
	logger   *slog.Logger
}

func NewSettingsService(settings repository.SettingsRepository, perms *PermissionService, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, perms: perms, logger: logger}
}

// PassingScorePercentage returns the pass threshold for evaluations
func (s *SettingsService) PassingScorePercentage(ctx context.Context) float64 {
	value, err := s.settings.Get(ctx, models.SettingPassingScorePercentage)
	if err != nil {
		return DefaultPassingScorePercentage
	}
	pct, err := strconv.ParseFloat(value, 64)
	if err != nil || pct < 0 || pct > 100 {
		s.logger.Warn("ignoring malformed setting",
			"key", models.SettingPassingScorePercentage, "value", value)
		return DefaultPassingScorePercentage
	}
	return pct
}

// DisputeTimeLimit returns the window during which a dispute may be filed
func (s *SettingsService) DisputeTimeLimit(ctx context.Context) time.Duration {
	days := DefaultDisputeTimeLimitDays
	value, err := s.settings.Get(ctx, models.SettingDisputeTimeLimitDays)
	if err == nil {
		parsed, perr := strconv.Atoi(value)
		if perr != nil || parsed <= 0 {
			s.logger.Warn("ignoring malformed setting",
				"key", models.SettingDisputeTimeLimitDays, "value", value)
		} else {
			days = parsed
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// Set writes one setting; Admin only
func (s *SettingsService) Set(ctx context.Context, actor, key, value string) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return permissionDenied(models.RoleAdmin)
	}
	if key == "" {
		return models.Fail(models.CodeValidationError, "setting key is required")
	}

	setting := &models.Setting{Key: key, Value: value, UpdatedBy: actor}
	if err := s.settings.Set(ctx, setting); err != nil {
		return failFromError(err, "could not save setting")
	}
	return models.OK("setting saved")
}

// List returns every stored setting; Admin only
func (s *SettingsService) List(ctx context.Context, actor string) ([]models.Setting, models.Result) {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return nil, permissionDenied(models.RoleAdmin)
	}
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, failFromError(err, "could not list settings")
	}
	return settings, models.OK("")
}

// Delete removes one setting; Admin only, protected keys refused
func (s *SettingsService) Delete(ctx context.Context, actor, key string) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return permissionDenied(models.RoleAdmin)
	}
	if protectedSettings[key] {
		return models.Fail(models.CodeInvalidState, "setting "+key+" is protected and cannot be deleted")
	}

	if err := s.settings.Delete(ctx, key); err != nil {
		return failFromError(err, "could not delete setting "+key)
	}
	return models.OK("setting deleted")
}
