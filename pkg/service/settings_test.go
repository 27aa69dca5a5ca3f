package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type settingsFixture struct {
	settings *MockSettingsRepository
	users    *MockUserRepository
	service  *SettingsService
}

func newSettingsFixture() *settingsFixture {
	f := &settingsFixture{
		settings: new(MockSettingsRepository),
		users:    new(MockUserRepository),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	perms := NewPermissionService(f.users)
	f.service = NewSettingsService(f.settings, perms, logger)
	return f
}

func TestPassingScoreDefaults(t *testing.T) {
	tests := []struct {
		name  string
		value string
		err   error
		want  float64
	}{
		{"stored value", "85", nil, 85.0},
		{"missing row falls back", "", fmt.Errorf("setting: %w", repository.ErrNotFound), 80.0},
		{"malformed value falls back", "ninety", nil, 80.0},
		{"out of range falls back", "150", nil, 80.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSettingsFixture()
			f.settings.On("Get", mock.Anything, models.SettingPassingScorePercentage).Return(tt.value, tt.err)

			assert.Equal(t, tt.want, f.service.PassingScorePercentage(context.Background()))
		})
	}
}

func TestDisputeTimeLimit(t *testing.T) {
	f := newSettingsFixture()
	f.settings.On("Get", mock.Anything, models.SettingDisputeTimeLimitDays).Return("14", nil)

	assert.Equal(t, 14*24*time.Hour, f.service.DisputeTimeLimit(context.Background()))
}

func TestDisputeTimeLimitDefault(t *testing.T) {
	f := newSettingsFixture()
	f.settings.On("Get", mock.Anything, models.SettingDisputeTimeLimitDays).
		Return("", fmt.Errorf("setting: %w", repository.ErrNotFound))

	assert.Equal(t, 7*24*time.Hour, f.service.DisputeTimeLimit(context.Background()))
}

func TestSetSettingRequiresAdmin(t *testing.T) {
	f := newSettingsFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "qam@example.com").Return(activeUser("qam@example.com", models.RoleQAManager), nil)

	result := f.service.Set(ctx, "qam@example.com", models.SettingPassingScorePercentage, "85")

	assert.False(t, result.Success)
	assert.Equal(t, models.CodePermissionDenied, result.Code)
}

func TestDeleteProtectedSettingRefused(t *testing.T) {
	f := newSettingsFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "admin@example.com").Return(activeUser("admin@example.com", models.RoleAdmin), nil)

	result := f.service.Delete(ctx, "admin@example.com", models.SettingDisputeTimeLimitDays)

	assert.False(t, result.Success)
	assert.Equal(t, models.CodeInvalidState, result.Code)
	f.settings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteUnprotectedSetting(t *testing.T) {
	f := newSettingsFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "admin@example.com").Return(activeUser("admin@example.com", models.RoleAdmin), nil)
	f.settings.On("Delete", ctx, "notification_footer").Return(nil)

	result := f.service.Delete(ctx, "admin@example.com", "notification_footer")

	assert.True(t, result.Success)
	f.settings.AssertCalled(t, "Delete", ctx, "notification_footer")
}
