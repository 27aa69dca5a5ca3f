package models

import (
	"time"
)

// Role defines the access level of a user
type Role string

const (
	RoleAgent        Role = "Agent"
	RoleAgentManager Role = "AgentManager"
	RoleQAAnalyst    Role = "QAAnalyst"
	RoleQAManager    Role = "QAManager"
	RoleAdmin        Role = "Admin"
)

// QuestionType defines how a question is answered and scored
type QuestionType string

const (
	QuestionYesNo          QuestionType = "YesNo"
	QuestionMultipleChoice QuestionType = "MultipleChoice"
	QuestionNumeric        QuestionType = "Numeric"
	QuestionText           QuestionType = "Text"
)

// EvaluationStatus tracks the lifecycle of an evaluation
type EvaluationStatus string

const (
	EvaluationPending    EvaluationStatus = "Pending"
	EvaluationInProgress EvaluationStatus = "InProgress"
	EvaluationCompleted  EvaluationStatus = "Completed"
	EvaluationDisputed   EvaluationStatus = "Disputed"
)

// DisputeStatus tracks the lifecycle of a dispute
type DisputeStatus string

const (
	DisputePending           DisputeStatus = "Pending"
	DisputeInProgress        DisputeStatus = "InProgress"
	DisputeApproved          DisputeStatus = "Approved"
	DisputePartiallyApproved DisputeStatus = "PartiallyApproved"
	DisputeRejected          DisputeStatus = "Rejected"
)

// Active reports whether the dispute still blocks its evaluation.
// Pending and InProgress both count as active for the
// one-active-dispute-per-evaluation rule.
func (s DisputeStatus) Active() bool {
	return s == DisputePending || s == DisputeInProgress
}

// User represents a provisioned account
type User struct {
	Email      string    `json:"email" db:"email"`
	Name       string    `json:"name" db:"name"`
	Role       Role      `json:"role" db:"role"`
	Department string    `json:"department" db:"department"`
	ManagerID  string    `json:"manager_id" db:"manager_id"`
	Active     bool      `json:"active" db:"active"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionSet represents a scoring template for one interaction type
type QuestionSet struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	InteractionType string    `json:"interaction_type" db:"interaction_type"`
	Active          bool      `json:"active" db:"active"`
	CreatedBy       string    `json:"created_by" db:"created_by"`
	LastModified    time.Time `json:"last_modified" db:"last_modified"`
}

// Question represents one scorable item inside a question set
type Question struct {
	ID            string       `json:"id" db:"id"`
	QuestionSetID string       `json:"question_set_id" db:"question_set_id"`
	Text          string       `json:"text" db:"text"`
	Type          QuestionType `json:"type" db:"type"`
	Weight        int          `json:"weight" db:"weight"`
	PossibleScore int          `json:"possible_score" db:"possible_score"`
	Critical      bool         `json:"critical" db:"critical"`
	Options       string       `json:"options" db:"options"`
	HelpText      string       `json:"help_text" db:"help_text"`
	Active        bool         `json:"active" db:"active"`
}

// Evaluation represents a scored assessment of one agent interaction
type Evaluation struct {
	ID                  string           `json:"id" db:"id"`
	Date                time.Time        `json:"date" db:"date"`
	AgentID             string           `json:"agent_id" db:"agent_id"`
	EvaluatorID         string           `json:"evaluator_id" db:"evaluator_id"`
	QuestionSetID       string           `json:"question_set_id" db:"question_set_id"`
	InteractionType     string           `json:"interaction_type" db:"interaction_type"`
	CustomerID          string           `json:"customer_id" db:"customer_id"`
	InteractionID       string           `json:"interaction_id" db:"interaction_id"`
	Score               int              `json:"score" db:"score"`
	MaxPossible         int              `json:"max_possible" db:"max_possible"`
	Status              EvaluationStatus `json:"status" db:"status"`
	Strengths           string           `json:"strengths" db:"strengths"`
	AreasForImprovement string           `json:"areas_for_improvement" db:"areas_for_improvement"`
	Comments            string           `json:"comments" db:"comments"`
	LastUpdated         time.Time        `json:"last_updated" db:"last_updated"`
	Revision            int              `json:"revision" db:"revision"`
}

// ScorePercentage returns the evaluation score as a percentage of the maximum
func (e *Evaluation) ScorePercentage() float64 {
	if e.MaxPossible == 0 {
		return 0
	}
	return float64(e.Score) / float64(e.MaxPossible) * 100
}

// Answer represents one per-question score inside an evaluation
type Answer struct {
	ID           string `json:"id" db:"id"`
	EvaluationID string `json:"evaluation_id" db:"evaluation_id"`
	QuestionID   string `json:"question_id" db:"question_id"`
	QuestionText string `json:"question_text" db:"question_text"`
	AnswerValue  string `json:"answer_value" db:"answer_value"`
	Score        int    `json:"score" db:"score"`
	MaxScore     int    `json:"max_score" db:"max_score"`
	Comments     string `json:"comments" db:"comments"`
}

// Dispute represents a formal challenge to an evaluation's score
type Dispute struct {
	ID                   string        `json:"id" db:"id"`
	EvaluationID         string        `json:"evaluation_id" db:"evaluation_id"`
	SubmittedBy          string        `json:"submitted_by" db:"submitted_by"`
	SubmissionDate       time.Time     `json:"submission_date" db:"submission_date"`
	Reason               string        `json:"reason" db:"reason"`
	Details              string        `json:"details" db:"details"`
	AdditionalEvidence   string        `json:"additional_evidence" db:"additional_evidence"`
	RequestedScoreChange int           `json:"requested_score_change" db:"requested_score_change"`
	Status               DisputeStatus `json:"status" db:"status"`
	ReviewedBy           string        `json:"reviewed_by" db:"reviewed_by"`
	ReviewDate           *time.Time    `json:"review_date,omitempty" db:"review_date"`
	ScoreAdjustment      int           `json:"score_adjustment" db:"score_adjustment"`
	Revision             int           `json:"revision" db:"revision"`
}

// DisputeResolution is the immutable audit record of a dispute review
type DisputeResolution struct {
	ID             string        `json:"id" db:"id"`
	DisputeID      string        `json:"dispute_id" db:"dispute_id"`
	ResolutionDate time.Time     `json:"resolution_date" db:"resolution_date"`
	ResolvedBy     string        `json:"resolved_by" db:"resolved_by"`
	Decision       DisputeStatus `json:"decision" db:"decision"`
	ReviewNotes    string        `json:"review_notes" db:"review_notes"`
}

// Setting is one key/value row of process-wide configuration
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedBy string    `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Setting keys read by the engines
const (
	SettingPassingScorePercentage = "passing_score_percentage"
	SettingDisputeTimeLimitDays   = "dispute_time_limit_days"
)

// ActivityLog is one append-only audit row describing an engine operation
type ActivityLog struct {
	ID        string    `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	Detail    string    `json:"detail" db:"detail"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
