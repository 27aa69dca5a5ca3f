package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// DisputeService handles the dispute lifecycle: filing within the
// configured window, submitter edits, manager review with score
// adjustment, and cancellation
type DisputeService struct {
	disputes repository.DisputeRepository
	evals    repository.EvaluationRepository
	users    repository.UserRepository
	activity repository.ActivityLogRepository
	settings *SettingsService
	perms    *PermissionService
	notifier Notifier
	logger   *slog.Logger
}

func NewDisputeService(
	disputes repository.DisputeRepository,
	evals repository.EvaluationRepository,
	users repository.UserRepository,
	activity repository.ActivityLogRepository,
	settings *SettingsService,
	perms *PermissionService,
	notifier Notifier,
	logger *slog.Logger,
) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		evals:    evals,
		users:    users,
		activity: activity,
		settings: settings,
		perms:    perms,
		notifier: notifier,
		logger:   logger,
	}
}

// File opens a dispute against an evaluation. At most one active dispute
// may exist per evaluation, and filing must happen within the configured
// number of days after the evaluation date.
func (s *DisputeService) File(ctx context.Context, actor, evaluationID string, input models.DisputeInput) models.FileDisputeResult {
	if !s.perms.HasPermission(ctx, actor, models.RoleAgentManager) {
		return models.FileDisputeResult{Result: permissionDenied(models.RoleAgentManager)}
	}
	if input.Reason == "" {
		return models.FileDisputeResult{Result: models.Fail(models.CodeValidationError, "a dispute reason is required")}
	}

	eval, err := s.evals.GetByID(ctx, evaluationID)
	if err != nil {
		return models.FileDisputeResult{Result: failFromError(err, "evaluation "+evaluationID+" does not exist")}
	}

	active, err := s.disputes.FindActiveByEvaluation(ctx, evaluationID)
	if err != nil {
		return models.FileDisputeResult{Result: failFromError(err, "could not check existing disputes")}
	}
	if active != nil {
		return models.FileDisputeResult{Result: models.Fail(models.CodeInvalidState, "this evaluation already has an active dispute")}
	}

	window := s.settings.DisputeTimeLimit(ctx)
	if time.Since(eval.Date) > window {
		days := int(window.Hours() / 24)
		return models.FileDisputeResult{Result: models.Fail(models.CodeWindowExpired,
			fmt.Sprintf("the %d-day dispute window for this evaluation has expired", days))}
	}

	dispute := &models.Dispute{
		ID:                   repository.GenerateID(),
		EvaluationID:         evaluationID,
		SubmittedBy:          actor,
		SubmissionDate:       time.Now(),
		Reason:               input.Reason,
		Details:              input.Details,
		AdditionalEvidence:   input.AdditionalEvidence,
		RequestedScoreChange: input.RequestedScoreChange,
		Status:               models.DisputePending,
	}

	if err := s.disputes.Create(ctx, dispute, eval); err != nil {
		s.logger.Error("dispute filing failed", "evaluation", evaluationID, "error", err)
		return models.FileDisputeResult{Result: failFromError(err, "could not file dispute")}
	}

	s.logActivity(ctx, actor, "dispute.file", dispute.ID, "evaluation="+evaluationID)
	s.notifyReviewers(ctx, eval, dispute)

	return models.FileDisputeResult{Result: models.OK("dispute filed"), ID: dispute.ID}
}

func (s *DisputeService) notifyReviewers(ctx context.Context, eval *models.Evaluation, dispute *models.Dispute) {
	recipients := []string{eval.EvaluatorID}
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Warn("could not resolve QA managers for notification", "error", err)
	} else {
		for _, u := range users {
			if u.Role == models.RoleQAManager && u.Active {
				recipients = append(recipients, u.Email)
			}
		}
	}
	dispatch(s.logger, s.notifier, recipients, "Score dispute filed", TemplateDisputeFiled, map[string]interface{}{
		"dispute_id":    dispute.ID,
		"evaluation_id": eval.ID,
		"submitted_by":  dispute.SubmittedBy,
		"reason":        dispute.Reason,
	})
}

// Update edits the submitter-owned fields of a still-pending dispute
func (s *DisputeService) Update(ctx context.Context, actor, id string, update models.DisputeUpdate) models.Result {
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return failFromError(err, "dispute "+id+" does not exist")
	}
	if dispute.Status != models.DisputePending {
		return models.Fail(models.CodeInvalidState, "only pending disputes can be edited")
	}
	if actor != dispute.SubmittedBy && !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return models.Fail(models.CodePermissionDenied, "only the submitter may edit this dispute")
	}

	if update.Reason != nil {
		if *update.Reason == "" {
			return models.Fail(models.CodeValidationError, "a dispute reason is required")
		}
		dispute.Reason = *update.Reason
	}
	if update.Details != nil {
		dispute.Details = *update.Details
	}
	if update.AdditionalEvidence != nil {
		dispute.AdditionalEvidence = *update.AdditionalEvidence
	}
	if update.RequestedScoreChange != nil {
		dispute.RequestedScoreChange = *update.RequestedScoreChange
	}

	if err := s.disputes.Update(ctx, dispute); err != nil {
		return failFromError(err, "could not update dispute")
	}

	s.logActivity(ctx, actor, "dispute.update", id, "")
	return models.OK("dispute updated")
}

// reviewDecisions are the terminal statuses a reviewer may choose
var reviewDecisions = map[models.DisputeStatus]bool{
	models.DisputeApproved:          true,
	models.DisputePartiallyApproved: true,
	models.DisputeRejected:          true,
}

// Review resolves an active dispute. Approval paths apply the score
// adjustment to the evaluation, clamped to [0, maxPossible]; every path
// returns the evaluation to Completed and writes one immutable resolution
// record.
func (s *DisputeService) Review(ctx context.Context, actor, id string, input models.ReviewInput) models.ReviewDisputeResult {
	if !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return models.ReviewDisputeResult{Result: permissionDenied(models.RoleQAManager)}
	}
	if !reviewDecisions[input.Status] {
		return models.ReviewDisputeResult{Result: models.Fail(models.CodeValidationError,
			"decision must be Approved, PartiallyApproved or Rejected")}
	}
	if input.ReviewNotes == "" {
		return models.ReviewDisputeResult{Result: models.Fail(models.CodeValidationError, "review notes are required")}
	}

	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return models.ReviewDisputeResult{Result: failFromError(err, "dispute "+id+" does not exist")}
	}
	if !dispute.Status.Active() {
		return models.ReviewDisputeResult{Result: models.Fail(models.CodeInvalidState, "this dispute has already been resolved")}
	}

	eval, err := s.evals.GetByID(ctx, dispute.EvaluationID)
	if err != nil {
		return models.ReviewDisputeResult{Result: failFromError(err, "evaluation "+dispute.EvaluationID+" does not exist")}
	}

	now := time.Now()
	dispute.Status = input.Status
	dispute.ReviewedBy = actor
	dispute.ReviewDate = &now
	dispute.ScoreAdjustment = input.ScoreAdjustment

	if input.Status == models.DisputeApproved || input.Status == models.DisputePartiallyApproved {
		eval.Score = clampScore(eval.Score+input.ScoreAdjustment, eval.MaxPossible)
	}
	eval.Status = models.EvaluationCompleted

	resolution := &models.DisputeResolution{
		ID:             repository.GenerateID(),
		DisputeID:      dispute.ID,
		ResolutionDate: now,
		ResolvedBy:     actor,
		Decision:       input.Status,
		ReviewNotes:    input.ReviewNotes,
	}

	if err := s.disputes.Resolve(ctx, dispute, resolution, eval); err != nil {
		s.logger.Error("dispute review failed", "dispute", id, "error", err)
		return models.ReviewDisputeResult{Result: failFromError(err, "could not resolve dispute")}
	}

	s.logActivity(ctx, actor, "dispute.review", id,
		fmt.Sprintf("decision=%s adjustment=%d", input.Status, input.ScoreAdjustment))

	recipients := []string{eval.AgentID}
	if dispute.SubmittedBy != eval.AgentID {
		recipients = append(recipients, dispute.SubmittedBy)
	}
	recipients = append(recipients, eval.EvaluatorID)
	dispatch(s.logger, s.notifier, recipients, "Dispute resolved", TemplateDisputeResolved, map[string]interface{}{
		"dispute_id":    dispute.ID,
		"evaluation_id": eval.ID,
		"decision":      string(input.Status),
		"new_score":     eval.Score,
	})

	return models.ReviewDisputeResult{Result: models.OK("dispute " + string(input.Status)), EvaluationScore: eval.Score}
}

func clampScore(score, maxPossible int) int {
	if score < 0 {
		return 0
	}
	if score > maxPossible {
		return maxPossible
	}
	return score
}

// Cancel withdraws a still-pending dispute, removing it entirely and
// returning the evaluation to Completed
func (s *DisputeService) Cancel(ctx context.Context, actor, id string) models.Result {
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return failFromError(err, "dispute "+id+" does not exist")
	}
	if dispute.Status != models.DisputePending {
		return models.Fail(models.CodeInvalidState, "only pending disputes can be cancelled")
	}
	if actor != dispute.SubmittedBy && !s.perms.HasPermission(ctx, actor, models.RoleAdmin) {
		return models.Fail(models.CodePermissionDenied, "only the submitter may cancel this dispute")
	}

	eval, err := s.evals.GetByID(ctx, dispute.EvaluationID)
	if err != nil {
		return failFromError(err, "evaluation "+dispute.EvaluationID+" does not exist")
	}

	if err := s.disputes.Cancel(ctx, dispute, eval); err != nil {
		return failFromError(err, "could not cancel dispute")
	}

	s.logActivity(ctx, actor, "dispute.cancel", id, "evaluation="+eval.ID)
	return models.OK("dispute cancelled")
}

// GetByID returns one dispute with its resolution history
func (s *DisputeService) GetByID(ctx context.Context, actor, id string) models.DisputeResult {
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return models.DisputeResult{Result: failFromError(err, "dispute "+id+" does not exist")}
	}

	if actor != dispute.SubmittedBy && !s.perms.HasPermission(ctx, actor, models.RoleQAManager) {
		return models.DisputeResult{Result: models.Fail(models.CodePermissionDenied, "this dispute is not visible to you")}
	}

	resolutions, err := s.disputes.GetResolutions(ctx, id)
	if err != nil {
		return models.DisputeResult{Result: failFromError(err, "could not load resolutions")}
	}

	return models.DisputeResult{Result: models.OK(""), Dispute: dispute, Resolutions: resolutions}
}

// List returns disputes visible to the caller: QA managers and admins see
// everything, agent managers see their own submissions
func (s *DisputeService) List(ctx context.Context, actor string, from, to *time.Time) models.DisputeListResult {
	role, ok := s.perms.ResolveRole(ctx, actor)
	if !ok {
		return models.DisputeListResult{Result: models.Fail(models.CodePermissionDenied, "unknown user "+actor)}
	}

	filter := repository.DisputeFilter{From: from, To: to}
	switch role {
	case models.RoleQAManager, models.RoleAdmin:
	case models.RoleAgentManager:
		filter.SubmittedBy = actor
	default:
		return models.DisputeListResult{Result: models.Fail(models.CodePermissionDenied, "role "+string(role)+" cannot list disputes")}
	}

	disputes, err := s.disputes.List(ctx, filter)
	if err != nil {
		return models.DisputeListResult{Result: failFromError(err, "could not list disputes")}
	}
	return models.DisputeListResult{Result: models.OK(""), Disputes: disputes}
}

// Statistics aggregates stored disputes in an optional date window
func (s *DisputeService) Statistics(ctx context.Context, from, to *time.Time) (*models.DisputeStatistics, error) {
	disputes, err := s.disputes.List(ctx, repository.DisputeFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	stats := &models.DisputeStatistics{
		Total:       len(disputes),
		ByStatus:    make(map[models.DisputeStatus]int),
		ByReason:    make(map[string]int),
		BySubmitter: make(map[string]int),
	}

	var resolved, upheld int
	var daysOpen float64
	for _, d := range disputes {
		stats.ByStatus[d.Status]++
		stats.ByReason[d.Reason]++
		stats.BySubmitter[d.SubmittedBy]++

		switch d.Status {
		case models.DisputeApproved, models.DisputePartiallyApproved:
			resolved++
			upheld++
		case models.DisputeRejected:
			resolved++
		}
		if d.ReviewDate != nil {
			daysOpen += d.ReviewDate.Sub(d.SubmissionDate).Hours() / 24
		}
	}

	if resolved > 0 {
		// One decimal, e.g. 66.7 for two approvals out of three.
		stats.ApprovalRate = math.Round(float64(upheld)/float64(resolved)*1000) / 10
		stats.AverageDaysOpen = math.Round(daysOpen/float64(resolved)*10) / 10
	}

	return stats, nil
}

func (s *DisputeService) logActivity(ctx context.Context, actor, action, entityID, detail string) {
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
