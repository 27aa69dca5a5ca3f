package service

import (
	"context"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) ListDirectReports(ctx context.Context, managerID string) ([]models.User, error) {
	args := m.Called(ctx, managerID)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockQuestionSetRepository is a mock implementation for testing
type MockQuestionSetRepository struct {
	mock.Mock
}

func (m *MockQuestionSetRepository) GetByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionSet), args.Error(1)
}

func (m *MockQuestionSetRepository) List(ctx context.Context) ([]models.QuestionSet, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.QuestionSet), args.Error(1)
}

func (m *MockQuestionSetRepository) Create(ctx context.Context, set *models.QuestionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) Update(ctx context.Context, set *models.QuestionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) GetQuestions(ctx context.Context, questionSetID string) ([]models.Question, error) {
	args := m.Called(ctx, questionSetID)
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionSetRepository) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionSetRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) UpdateQuestion(ctx context.Context, q *models.Question) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// MockEvaluationRepository is a mock implementation for testing
type MockEvaluationRepository struct {
	mock.Mock
}

func (m *MockEvaluationRepository) CreateWithAnswers(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error {
	args := m.Called(ctx, eval, answers)
	return args.Error(0)
}

func (m *MockEvaluationRepository) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Evaluation), args.Error(1)
}

func (m *MockEvaluationRepository) GetAnswers(ctx context.Context, evaluationID string) ([]models.Answer, error) {
	args := m.Called(ctx, evaluationID)
	return args.Get(0).([]models.Answer), args.Error(1)
}

func (m *MockEvaluationRepository) List(ctx context.Context, filter repository.EvaluationFilter) ([]models.Evaluation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Evaluation), args.Error(1)
}

func (m *MockEvaluationRepository) Update(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error {
	args := m.Called(ctx, eval, answers)
	return args.Error(0)
}

func (m *MockEvaluationRepository) CountByQuestionSet(ctx context.Context, questionSetID string) (int, error) {
	args := m.Called(ctx, questionSetID)
	return args.Int(0), args.Error(1)
}

func (m *MockEvaluationRepository) DeleteCascade(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDisputeRepository is a mock implementation for testing
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) Create(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error {
	args := m.Called(ctx, dispute, eval)
	return args.Error(0)
}

func (m *MockDisputeRepository) GetByID(ctx context.Context, id string) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) FindActiveByEvaluation(ctx context.Context, evaluationID string) (*models.Dispute, error) {
	args := m.Called(ctx, evaluationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]models.Dispute, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *MockDisputeRepository) Update(ctx context.Context, dispute *models.Dispute) error {
	args := m.Called(ctx, dispute)
	return args.Error(0)
}

func (m *MockDisputeRepository) Resolve(ctx context.Context, dispute *models.Dispute, resolution *models.DisputeResolution, eval *models.Evaluation) error {
	args := m.Called(ctx, dispute, resolution, eval)
	return args.Error(0)
}

func (m *MockDisputeRepository) Cancel(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error {
	args := m.Called(ctx, dispute, eval)
	return args.Error(0)
}

func (m *MockDisputeRepository) GetResolutions(ctx context.Context, disputeID string) ([]models.DisputeResolution, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).([]models.DisputeResolution), args.Error(1)
}

// MockSettingsRepository is a mock implementation for testing
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, setting *models.Setting) error {
	args := m.Called(ctx, setting)
	return args.Error(0)
}

func (m *MockSettingsRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockSettingsRepository) List(ctx context.Context) ([]models.Setting, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Setting), args.Error(1)
}

// MockActivityLogRepository is a mock implementation for testing
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogRepository) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

// Test fixtures shared across the service tests

func activeUser(email string, role models.Role) *models.User {
	return &models.User{
		Email:     email,
		Name:      email,
		Role:      role,
		Active:    true,
		UpdatedAt: time.Now(),
	}
}

func completedEvaluation(id string, score, maxPossible int) *models.Evaluation {
	return &models.Evaluation{
		ID:          id,
		Date:        time.Now().AddDate(0, 0, -1),
		AgentID:     "agent@example.com",
		EvaluatorID: "analyst@example.com",
		Score:       score,
		MaxPossible: maxPossible,
		Status:      models.EvaluationCompleted,
		Revision:    1,
	}
}
