package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// QuestionSetService manages scoring templates and their questions
type QuestionSetService struct {
	sets     repository.QuestionSetRepository
	evals    repository.EvaluationRepository
	activity repository.ActivityLogRepository
	perms    *PermissionService
	logger   *slog.Logger
}

func NewQuestionSetService(
	sets repository.QuestionSetRepository,
	evals repository.EvaluationRepository,
	activity repository.ActivityLogRepository,
	perms *PermissionService,
	logger *slog.Logger,
) *QuestionSetService {
	return &QuestionSetService{sets: sets, evals: evals, activity: activity, perms: perms, logger: logger}
}

// Create adds a new question set
func (s *QuestionSetService) Create(ctx context.Context, actor string, set models.QuestionSet) models.IDResult {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return models.IDResult{Result: permissionDenied(models.RoleQAManager)}
	}
	if set.Name == "" {
		return models.IDResult{Result: models.Fail(models.CodeValidationError, "a question set name is required")}
	}
	if set.InteractionType == "" {
		return models.IDResult{Result: models.Fail(models.CodeValidationError, "an interaction type is required")}
	}

	set.ID = repository.GenerateID()
	set.CreatedBy = actor
	set.Active = true
	if err := s.sets.Create(ctx, &set); err != nil {
		return models.IDResult{Result: failFromError(err, "could not create question set")}
	}

	s.logActivity(ctx, actor, "questionset.create", set.ID, set.Name)
	return models.IDResult{Result: models.OK("question set created"), ID: set.ID}
}

// Update edits a question set's descriptive fields
func (s *QuestionSetService) Update(ctx context.Context, actor string, set models.QuestionSet) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return permissionDenied(models.RoleQAManager)
	}
	if set.ID == "" || set.Name == "" {
		return models.Fail(models.CodeValidationError, "question set id and name are required")
	}

	if err := s.sets.Update(ctx, &set); err != nil {
		return failFromError(err, "question set "+set.ID+" does not exist")
	}

	s.logActivity(ctx, actor, "questionset.update", set.ID, "")
	return models.OK("question set updated")
}

// Delete removes a question set, refused while any evaluation references it
func (s *QuestionSetService) Delete(ctx context.Context, actor, id string) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return permissionDenied(models.RoleQAManager)
	}

	count, err := s.evals.CountByQuestionSet(ctx, id)
	if err != nil {
		return failFromError(err, "could not check question set usage")
	}
	if count > 0 {
		return models.Fail(models.CodeInvalidState,
			fmt.Sprintf("question set is used in %d evaluation(s) and cannot be deleted", count))
	}

	if err := s.sets.Delete(ctx, id); err != nil {
		return failFromError(err, "question set "+id+" does not exist")
	}

	s.logActivity(ctx, actor, "questionset.delete", id, "")
	return models.OK("question set deleted")
}

// GetByID returns one question set with its questions
func (s *QuestionSetService) GetByID(ctx context.Context, id string) (*models.QuestionSet, []models.Question, error) {
	set, err := s.sets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.sets.GetQuestions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return set, questions, nil
}

// List returns all question sets
func (s *QuestionSetService) List(ctx context.Context) ([]models.QuestionSet, error) {
	return s.sets.List(ctx)
}

// AddQuestion appends a question to a set
func (s *QuestionSetService) AddQuestion(ctx context.Context, actor string, q models.Question) models.IDResult {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return models.IDResult{Result: permissionDenied(models.RoleQAManager)}
	}
	if msg := validateQuestion(q); msg != "" {
		return models.IDResult{Result: models.Fail(models.CodeValidationError, msg)}
	}
	if _, err := s.sets.GetByID(ctx, q.QuestionSetID); err != nil {
		return models.IDResult{Result: failFromError(err, "question set "+q.QuestionSetID+" does not exist")}
	}

	q.ID = repository.GenerateID()
	q.Active = true
	if err := s.sets.CreateQuestion(ctx, &q); err != nil {
		return models.IDResult{Result: failFromError(err, "could not create question")}
	}

	s.logActivity(ctx, actor, "question.create", q.ID, "set="+q.QuestionSetID)
	return models.IDResult{Result: models.OK("question created"), ID: q.ID}
}

// UpdateQuestion edits a question in place
func (s *QuestionSetService) UpdateQuestion(ctx context.Context, actor string, q models.Question) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return permissionDenied(models.RoleQAManager)
	}
	if q.ID == "" {
		return models.Fail(models.CodeValidationError, "a question id is required")
	}
	if msg := validateQuestion(q); msg != "" {
		return models.Fail(models.CodeValidationError, msg)
	}

	if err := s.sets.UpdateQuestion(ctx, &q); err != nil {
		return failFromError(err, "question "+q.ID+" does not exist")
	}

	s.logActivity(ctx, actor, "question.update", q.ID, "")
	return models.OK("question updated")
}

// RetireQuestion marks a question inactive. Questions are never hard
// deleted once answers may reference them.
func (s *QuestionSetService) RetireQuestion(ctx context.Context, actor, id string) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return permissionDenied(models.RoleQAManager)
	}

	q, err := s.sets.GetQuestion(ctx, id)
	if err != nil {
		return failFromError(err, "question "+id+" does not exist")
	}
	if !q.Active {
		return models.Fail(models.CodeInvalidState, "question is already retired")
	}

	q.Active = false
	if err := s.sets.UpdateQuestion(ctx, q); err != nil {
		return failFromError(err, "could not retire question")
	}

	s.logActivity(ctx, actor, "question.retire", id, "")
	return models.OK("question retired")
}

func validateQuestion(q models.Question) string {
	switch {
	case q.QuestionSetID == "":
		return "a question set id is required"
	case q.Text == "":
		return "question text is required"
	case q.Weight <= 0:
		return "question weight must be a positive integer"
	case q.PossibleScore < 0:
		return "possible score cannot be negative"
	}
	switch q.Type {
	case models.QuestionYesNo, models.QuestionMultipleChoice, models.QuestionNumeric, models.QuestionText:
		return ""
	}
	return "unknown question type " + string(q.Type)
}

func (s *QuestionSetService) logActivity(ctx context.Context, actor, action, entityID, detail string) {
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
