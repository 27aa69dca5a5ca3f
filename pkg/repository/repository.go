package repository

import (
	"context"
	"errors"
	"time"

	"qa-review-tracker/pkg/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced record id does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a compare-and-swap update loses against a
// concurrent writer (revision mismatch)
var ErrConflict = errors.New("record modified concurrently")

// UserRepository handles user accounts
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListDirectReports(ctx context.Context, managerID string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// QuestionSetRepository handles question sets and their questions
type QuestionSetRepository interface {
	GetByID(ctx context.Context, id string) (*models.QuestionSet, error)
	List(ctx context.Context) ([]models.QuestionSet, error)
	Create(ctx context.Context, set *models.QuestionSet) error
	Update(ctx context.Context, set *models.QuestionSet) error
	Delete(ctx context.Context, id string) error
	GetQuestions(ctx context.Context, questionSetID string) ([]models.Question, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q *models.Question) error
}

// EvaluationFilter narrows evaluation list reads
type EvaluationFilter struct {
	AgentID     string
	AgentIDs    []string
	EvaluatorID string
	From        *time.Time
	To          *time.Time
}

// EvaluationRepository handles evaluation and answer persistence
type EvaluationRepository interface {
	// CreateWithAnswers persists the evaluation and all answers in one
	// transaction; either everything lands or nothing does.
	CreateWithAnswers(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error
	GetByID(ctx context.Context, id string) (*models.Evaluation, error)
	GetAnswers(ctx context.Context, evaluationID string) ([]models.Answer, error)
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	// Update writes the mutable evaluation fields and upserts any supplied
	// answers in one transaction, guarded by the revision the caller read;
	// ErrConflict on a lost race.
	Update(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error
	CountByQuestionSet(ctx context.Context, questionSetID string) (int, error)
	// DeleteCascade removes answers, dispute resolutions, disputes and the
	// evaluation itself in one transaction, children first.
	DeleteCascade(ctx context.Context, id string) error
}

// DisputeFilter narrows dispute list reads
type DisputeFilter struct {
	EvaluationID string
	SubmittedBy  string
	From         *time.Time
	To           *time.Time
}

// DisputeRepository handles dispute and resolution persistence
type DisputeRepository interface {
	// Create inserts the dispute and flips the evaluation to Disputed in one
	// transaction, compare-and-swapped on the evaluation revision.
	Create(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error
	GetByID(ctx context.Context, id string) (*models.Dispute, error)
	FindActiveByEvaluation(ctx context.Context, evaluationID string) (*models.Dispute, error)
	List(ctx context.Context, filter DisputeFilter) ([]models.Dispute, error)
	Update(ctx context.Context, dispute *models.Dispute) error
	// Resolve writes the review outcome, the resolution audit row, and the
	// evaluation score/status restoration in one transaction.
	Resolve(ctx context.Context, dispute *models.Dispute, resolution *models.DisputeResolution, eval *models.Evaluation) error
	// Cancel removes the pending dispute and restores the evaluation status
	// in one transaction.
	Cancel(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error
	GetResolutions(ctx context.Context, disputeID string) ([]models.DisputeResolution, error)
}

// SettingsRepository handles process-wide configuration rows
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, setting *models.Setting) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]models.Setting, error)
}

// ActivityLogRepository handles the append-only operation audit trail
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// GenerateID generates a new UUID
func GenerateID() string {
	return uuid.New().String()
}
