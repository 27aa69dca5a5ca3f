package models

import (
	"time"
)

// FailureCode classifies why an engine operation was refused
type FailureCode string

const (
	CodePermissionDenied FailureCode = "PERMISSION_DENIED"
	CodeNotFound         FailureCode = "NOT_FOUND"
	CodeInvalidState     FailureCode = "INVALID_STATE"
	CodeValidationError  FailureCode = "VALIDATION_ERROR"
	CodeWindowExpired    FailureCode = "WINDOW_EXPIRED"
	CodeConflict         FailureCode = "CONFLICT"
	CodeStorageError     FailureCode = "STORAGE_ERROR"
)

// Result is the structured outcome shape shared by every write operation.
// Engine operations never surface internal errors directly; failures are
// converted to a Result with Success=false and a human-readable Message.
type Result struct {
	Success bool        `json:"success"`
	Code    FailureCode `json:"code,omitempty"`
	Message string      `json:"message"`
}

// OK builds a successful result
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail builds a failed result with a classification code
func Fail(code FailureCode, message string) Result {
	return Result{Success: false, Code: code, Message: message}
}

// IDResult is a Result carrying the id of a newly created record
type IDResult struct {
	Result
	ID string `json:"id,omitempty"`
}

// AnswerInput is one per-question score supplied when creating or
// updating an evaluation
type AnswerInput struct {
	QuestionID  string `json:"question_id"`
	AnswerValue string `json:"answer_value"`
	Score       int    `json:"score"`
	MaxScore    int    `json:"max_score"`
	Comments    string `json:"comments"`
}

// EvaluationInput carries the fields needed to create an evaluation
type EvaluationInput struct {
	AgentID             string        `json:"agent_id"`
	QuestionSetID       string        `json:"question_set_id"`
	InteractionType     string        `json:"interaction_type"`
	CustomerID          string        `json:"customer_id"`
	InteractionID       string        `json:"interaction_id"`
	Date                time.Time     `json:"date"`
	Strengths           string        `json:"strengths"`
	AreasForImprovement string        `json:"areas_for_improvement"`
	Comments            string        `json:"comments"`
	Answers             []AnswerInput `json:"answers"`
	SkipNotification    bool          `json:"skip_notification"`
}

// EvaluationUpdate carries the mutable field subset of an evaluation.
// Nil pointers mean "leave unchanged".
type EvaluationUpdate struct {
	Strengths           *string           `json:"strengths,omitempty"`
	AreasForImprovement *string           `json:"areas_for_improvement,omitempty"`
	Comments            *string           `json:"comments,omitempty"`
	Status              *EvaluationStatus `json:"status,omitempty"`
	Answers             []AnswerInput     `json:"answers,omitempty"`
}

// CreateEvaluationResult is returned by evaluation creation
type CreateEvaluationResult struct {
	Result
	ID          string `json:"id,omitempty"`
	Score       int    `json:"score,omitempty"`
	MaxPossible int    `json:"max_possible,omitempty"`
}

// EvaluationResult wraps a single evaluation read
type EvaluationResult struct {
	Result
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Answers    []Answer    `json:"answers,omitempty"`
}

// EvaluationListResult wraps a filtered evaluation read
type EvaluationListResult struct {
	Result
	Evaluations []Evaluation `json:"evaluations,omitempty"`
}

// DisputeInput carries the fields needed to file a dispute
type DisputeInput struct {
	Reason               string `json:"reason"`
	Details              string `json:"details"`
	AdditionalEvidence   string `json:"additional_evidence"`
	RequestedScoreChange int    `json:"requested_score_change"`
}

// DisputeUpdate carries the field subset mutable while a dispute is pending
type DisputeUpdate struct {
	Reason               *string `json:"reason,omitempty"`
	Details              *string `json:"details,omitempty"`
	AdditionalEvidence   *string `json:"additional_evidence,omitempty"`
	RequestedScoreChange *int    `json:"requested_score_change,omitempty"`
}

// ReviewInput carries a reviewer's decision on a dispute
type ReviewInput struct {
	Status          DisputeStatus `json:"status"`
	ReviewNotes     string        `json:"review_notes"`
	ScoreAdjustment int           `json:"score_adjustment"`
}

// FileDisputeResult is returned by dispute filing
type FileDisputeResult struct {
	Result
	ID string `json:"id,omitempty"`
}

// DisputeResult wraps a single dispute read
type DisputeResult struct {
	Result
	Dispute     *Dispute            `json:"dispute,omitempty"`
	Resolutions []DisputeResolution `json:"resolutions,omitempty"`
}

// DisputeListResult wraps a filtered dispute read
type DisputeListResult struct {
	Result
	Disputes []Dispute `json:"disputes,omitempty"`
}

// ReviewDisputeResult is returned by dispute review
type ReviewDisputeResult struct {
	Result
	EvaluationScore int `json:"evaluation_score,omitempty"`
}

// DisputeStatistics aggregates stored disputes for reporting
type DisputeStatistics struct {
	Total           int                   `json:"total"`
	ByStatus        map[DisputeStatus]int `json:"by_status"`
	ByReason        map[string]int        `json:"by_reason"`
	BySubmitter     map[string]int        `json:"by_submitter"`
	ApprovalRate    float64               `json:"approval_rate"`
	AverageDaysOpen float64               `json:"average_days_open"`
}

// TrendBucket is one time bucket of a trend series, keyed by the bucket's
// start date in YYYY-MM-DD form
type TrendBucket struct {
	Bucket       string  `json:"bucket"`
	Evaluations  int     `json:"evaluations"`
	Disputes     int     `json:"disputes"`
	AverageScore float64 `json:"average_score"`
}

// EvaluationStatistics aggregates stored evaluations for reporting
type EvaluationStatistics struct {
	Total        int     `json:"total"`
	PassRate     float64 `json:"pass_rate"`
	DisputeRate  float64 `json:"dispute_rate"`
	AverageScore float64 `json:"average_score"`
	PassingScore float64 `json:"passing_score"`
}
