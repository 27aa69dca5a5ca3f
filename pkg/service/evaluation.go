package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// EvaluationService handles the evaluation lifecycle: creation with
// score aggregation, gated updates, cascading deletes and role-scoped reads
type EvaluationService struct {
	evals        repository.EvaluationRepository
	users        repository.UserRepository
	questionSets repository.QuestionSetRepository
	activity     repository.ActivityLogRepository
	perms        *PermissionService
	notifier     Notifier
	logger       *slog.Logger
}

func NewEvaluationService(
	evals repository.EvaluationRepository,
	users repository.UserRepository,
	questionSets repository.QuestionSetRepository,
	activity repository.ActivityLogRepository,
	perms *PermissionService,
	notifier Notifier,
	logger *slog.Logger,
) *EvaluationService {
	return &EvaluationService{
		evals:        evals,
		users:        users,
		questionSets: questionSets,
		activity:     activity,
		perms:        perms,
		notifier:     notifier,
		logger:       logger,
	}
}

// Create validates and persists a new evaluation together with all its
// answers. The evaluation score is the plain sum of the answer scores;
// question weights do not enter the arithmetic.
func (s *EvaluationService) Create(ctx context.Context, actor string, input models.EvaluationInput) models.CreateEvaluationResult {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAAnalyst) {
		return models.CreateEvaluationResult{Result: permissionDenied(models.RoleQAAnalyst)}
	}

	if msg := validateEvaluationInput(input); msg != "" {
		return models.CreateEvaluationResult{Result: models.Fail(models.CodeValidationError, msg)}
	}

	agent, err := s.users.GetByEmail(ctx, input.AgentID)
	if err != nil {
		return models.CreateEvaluationResult{Result: failFromError(err, "agent "+input.AgentID+" does not exist")}
	}
	if _, err := s.questionSets.GetByID(ctx, input.QuestionSetID); err != nil {
		return models.CreateEvaluationResult{Result: failFromError(err, "question set "+input.QuestionSetID+" does not exist")}
	}
	questions, err := s.questionSets.GetQuestions(ctx, input.QuestionSetID)
	if err != nil {
		return models.CreateEvaluationResult{Result: failFromError(err, "could not load questions")}
	}
	questionText := make(map[string]string, len(questions))
	for _, q := range questions {
		questionText[q.ID] = q.Text
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	eval := &models.Evaluation{
		ID:                  repository.GenerateID(),
		Date:                date,
		AgentID:             input.AgentID,
		EvaluatorID:         actor,
		QuestionSetID:       input.QuestionSetID,
		InteractionType:     input.InteractionType,
		CustomerID:          input.CustomerID,
		InteractionID:       input.InteractionID,
		Status:              models.EvaluationCompleted,
		Strengths:           input.Strengths,
		AreasForImprovement: input.AreasForImprovement,
		Comments:            input.Comments,
	}

	answers := make([]models.Answer, 0, len(input.Answers))
	for _, in := range input.Answers {
		eval.Score += in.Score
		eval.MaxPossible += in.MaxScore
		answers = append(answers, models.Answer{
			ID:           repository.GenerateID(),
			EvaluationID: eval.ID,
			QuestionID:   in.QuestionID,
			QuestionText: questionText[in.QuestionID],
			AnswerValue:  in.AnswerValue,
			Score:        in.Score,
			MaxScore:     in.MaxScore,
			Comments:     in.Comments,
		})
	}

	if err := s.evals.CreateWithAnswers(ctx, eval, answers); err != nil {
		s.logger.Error("evaluation create failed", "agent", input.AgentID, "error", err)
		return models.CreateEvaluationResult{Result: failFromError(err, "could not save evaluation")}
	}

	s.logActivity(ctx, actor, "evaluation.create", eval.ID,
		fmt.Sprintf("agent=%s score=%d/%d", eval.AgentID, eval.Score, eval.MaxPossible))

	if !input.SkipNotification {
		recipients := []string{agent.Email}
		if agent.ManagerID != "" {
			recipients = append(recipients, agent.ManagerID)
		}
		dispatch(s.logger, s.notifier, recipients, "New QA evaluation recorded", TemplateEvaluationCreated, map[string]interface{}{
			"evaluation_id": eval.ID,
			"agent":         agent.Name,
			"score":         eval.Score,
			"max_possible":  eval.MaxPossible,
		})
	}

	return models.CreateEvaluationResult{
		Result:      models.OK("evaluation created"),
		ID:          eval.ID,
		Score:       eval.Score,
		MaxPossible: eval.MaxPossible,
	}
}

func validateEvaluationInput(input models.EvaluationInput) string {
	switch {
	case input.AgentID == "":
		return "agent_id is required"
	case input.QuestionSetID == "":
		return "question_set_id is required"
	case input.InteractionType == "":
		return "interaction_type is required"
	case len(input.Answers) == 0:
		return "at least one answer is required"
	}
	for _, a := range input.Answers {
		if a.QuestionID == "" {
			return "every answer needs a question_id"
		}
		if a.Score < 0 || a.MaxScore < 0 {
			return "answer scores cannot be negative"
		}
		if a.Score > a.MaxScore {
			return fmt.Sprintf("answer for question %s scores %d out of %d", a.QuestionID, a.Score, a.MaxScore)
		}
	}
	return ""
}

// updatableStatuses are the statuses a caller may set directly; Disputed is
// only ever entered by filing a dispute
var updatableStatuses = map[models.EvaluationStatus]bool{
	models.EvaluationPending:    true,
	models.EvaluationInProgress: true,
	models.EvaluationCompleted:  true,
}

// Update mutates the allowed field subset of an evaluation and merges in
// any supplied answers, recomputing the aggregate score
func (s *EvaluationService) Update(ctx context.Context, actor, id string, update models.EvaluationUpdate) models.Result {
	eval, err := s.evals.GetByID(ctx, id)
	if err != nil {
		return failFromError(err, "evaluation "+id+" does not exist")
	}
	if eval.Status == models.EvaluationDisputed {
		return models.Fail(models.CodeInvalidState, "evaluation is under dispute and cannot be edited")
	}
	if actor != eval.EvaluatorID && !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return models.Fail(models.CodePermissionDenied, "only the original evaluator or a QA manager may edit this evaluation")
	}

	if update.Strengths != nil {
		eval.Strengths = *update.Strengths
	}
	if update.AreasForImprovement != nil {
		eval.AreasForImprovement = *update.AreasForImprovement
	}
	if update.Comments != nil {
		eval.Comments = *update.Comments
	}
	if update.Status != nil {
		if !updatableStatuses[*update.Status] {
			return models.Fail(models.CodeValidationError, "status "+string(*update.Status)+" cannot be set directly")
		}
		eval.Status = *update.Status
	}

	var merged []models.Answer
	if len(update.Answers) > 0 {
		existing, err := s.evals.GetAnswers(ctx, id)
		if err != nil {
			return failFromError(err, "could not load answers")
		}
		byQuestion := make(map[string]*models.Answer, len(existing))
		for i := range existing {
			byQuestion[existing[i].QuestionID] = &existing[i]
		}

		for _, in := range update.Answers {
			if in.QuestionID == "" {
				return models.Fail(models.CodeValidationError, "every answer needs a question_id")
			}
			if in.Score < 0 || in.Score > in.MaxScore {
				return models.Fail(models.CodeValidationError, "answer for question "+in.QuestionID+" has an invalid score")
			}
			if a, ok := byQuestion[in.QuestionID]; ok {
				a.AnswerValue = in.AnswerValue
				a.Score = in.Score
				a.MaxScore = in.MaxScore
				a.Comments = in.Comments
				merged = append(merged, *a)
			} else {
				answer := models.Answer{
					ID:           repository.GenerateID(),
					EvaluationID: id,
					QuestionID:   in.QuestionID,
					AnswerValue:  in.AnswerValue,
					Score:        in.Score,
					MaxScore:     in.MaxScore,
					Comments:     in.Comments,
				}
				byQuestion[in.QuestionID] = &answer
				existing = append(existing, answer)
				merged = append(merged, answer)
			}
		}

		// Recompute from the full answer set, not just the changed rows.
		eval.Score = 0
		eval.MaxPossible = 0
		for _, a := range byQuestion {
			eval.Score += a.Score
			eval.MaxPossible += a.MaxScore
		}
	}

	if err := s.evals.Update(ctx, eval, merged); err != nil {
		s.logger.Error("evaluation update failed", "evaluation", id, "error", err)
		return failFromError(err, "could not update evaluation")
	}

	s.logActivity(ctx, actor, "evaluation.update", id, "")
	return models.OK("evaluation updated")
}

// Delete removes an evaluation and everything hanging off it: answers,
// disputes and their resolutions
func (s *EvaluationService) Delete(ctx context.Context, actor, id string) models.Result {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return permissionDenied(models.RoleQAManager)
	}

	if err := s.evals.DeleteCascade(ctx, id); err != nil {
		return failFromError(err, "evaluation "+id+" does not exist")
	}

	s.logActivity(ctx, actor, "evaluation.delete", id, "")
	return models.OK("evaluation and related records deleted")
}

// GetByID returns one evaluation with its answers, subject to the caller's
// visibility scope
func (s *EvaluationService) GetByID(ctx context.Context, actor, id string) models.EvaluationResult {
	eval, err := s.evals.GetByID(ctx, id)
	if err != nil {
		return models.EvaluationResult{Result: failFromError(err, "evaluation "+id+" does not exist")}
	}

	visible, err := s.canSee(ctx, actor, eval)
	if err != nil {
		return models.EvaluationResult{Result: failFromError(err, "could not resolve visibility")}
	}
	if !visible {
		return models.EvaluationResult{Result: models.Fail(models.CodePermissionDenied, "this evaluation is not visible to you")}
	}

	answers, err := s.evals.GetAnswers(ctx, id)
	if err != nil {
		return models.EvaluationResult{Result: failFromError(err, "could not load answers")}
	}

	return models.EvaluationResult{Result: models.OK(""), Evaluation: eval, Answers: answers}
}

func (s *EvaluationService) canSee(ctx context.Context, actor string, eval *models.Evaluation) (bool, error) {
	role, ok := s.perms.ResolveRole(ctx, actor)
	if !ok {
		return false, nil
	}
	switch role {
	case models.RoleQAManager, models.RoleAdmin:
		return true, nil
	case models.RoleQAAnalyst:
		return eval.EvaluatorID == actor, nil
	case models.RoleAgent:
		return eval.AgentID == actor, nil
	case models.RoleAgentManager:
		agent, err := s.users.GetByEmail(ctx, eval.AgentID)
		if err != nil {
			return false, err
		}
		return agent.ManagerID == actor, nil
	}
	return false, nil
}

// List returns the evaluations the caller may see, optionally bounded by
// date. Agents see their own, agent managers their direct reports',
// analysts what they authored, QA managers and admins everything.
func (s *EvaluationService) List(ctx context.Context, actor string, from, to *time.Time) models.EvaluationListResult {
	filter, result := s.scopedFilter(ctx, actor)
	if !result.Success {
		return models.EvaluationListResult{Result: result}
	}
	if filter == nil {
		return models.EvaluationListResult{Result: models.OK("")}
	}
	filter.From = from
	filter.To = to

	evals, err := s.evals.List(ctx, *filter)
	if err != nil {
		return models.EvaluationListResult{Result: failFromError(err, "could not list evaluations")}
	}
	return models.EvaluationListResult{Result: models.OK(""), Evaluations: evals}
}

// ListForAgent returns one agent's evaluations, within the caller's scope
func (s *EvaluationService) ListForAgent(ctx context.Context, actor, agentID string, from, to *time.Time) models.EvaluationListResult {
	list := s.List(ctx, actor, from, to)
	if !list.Success {
		return list
	}
	var filtered []models.Evaluation
	for _, e := range list.Evaluations {
		if e.AgentID == agentID {
			filtered = append(filtered, e)
		}
	}
	list.Evaluations = filtered
	return list
}

// ListByEvaluator returns one evaluator's evaluations, within the
// caller's scope
func (s *EvaluationService) ListByEvaluator(ctx context.Context, actor, evaluatorID string, from, to *time.Time) models.EvaluationListResult {
	list := s.List(ctx, actor, from, to)
	if !list.Success {
		return list
	}
	var filtered []models.Evaluation
	for _, e := range list.Evaluations {
		if e.EvaluatorID == evaluatorID {
			filtered = append(filtered, e)
		}
	}
	list.Evaluations = filtered
	return list
}

// scopedFilter translates the caller's role into a repository filter.
// A nil filter with a successful result means the scope is provably empty.
func (s *EvaluationService) scopedFilter(ctx context.Context, actor string) (*repository.EvaluationFilter, models.Result) {
	role, ok := s.perms.ResolveRole(ctx, actor)
	if !ok {
		return nil, models.Fail(models.CodePermissionDenied, "unknown user "+actor)
	}

	switch role {
	case models.RoleQAManager, models.RoleAdmin:
		return &repository.EvaluationFilter{}, models.OK("")
	case models.RoleQAAnalyst:
		return &repository.EvaluationFilter{EvaluatorID: actor}, models.OK("")
	case models.RoleAgent:
		return &repository.EvaluationFilter{AgentID: actor}, models.OK("")
	case models.RoleAgentManager:
		reports, err := s.users.ListDirectReports(ctx, actor)
		if err != nil {
			return nil, failFromError(err, "could not resolve direct reports")
		}
		if len(reports) == 0 {
			return nil, models.OK("")
		}
		ids := make([]string, 0, len(reports))
		for _, r := range reports {
			ids = append(ids, r.Email)
		}
		return &repository.EvaluationFilter{AgentIDs: ids}, models.OK("")
	}
	return nil, models.Fail(models.CodePermissionDenied, "role "+string(role)+" cannot list evaluations")
}

// logActivity appends an audit row; a failed append is logged and ignored
func (s *EvaluationService) logActivity(ctx context.Context, actor, action, entityID, detail string) {
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
