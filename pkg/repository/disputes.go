package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qa-review-tracker/pkg/models"
)

// PostgresDisputeRepository implements DisputeRepository
type PostgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) *PostgresDisputeRepository {
	return &PostgresDisputeRepository{db: db}
}

const disputeColumns = `id, evaluation_id, submitted_by, submission_date, reason, details,
		       additional_evidence, requested_score_change, status, reviewed_by,
		       review_date, score_adjustment, revision`

func scanDispute(row interface{ Scan(...interface{}) error }) (*models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(
		&d.ID,
		&d.EvaluationID,
		&d.SubmittedBy,
		&d.SubmissionDate,
		&d.Reason,
		&d.Details,
		&d.AdditionalEvidence,
		&d.RequestedScoreChange,
		&d.Status,
		&d.ReviewedBy,
		&d.ReviewDate,
		&d.ScoreAdjustment,
		&d.Revision,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDisputeRepository) Create(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dispute insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO disputes (
			id, evaluation_id, submitted_by, submission_date, reason, details,
			additional_evidence, requested_score_change, status, reviewed_by,
			review_date, score_adjustment, revision
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', NULL, 0, 1)
	`
	_, err = tx.ExecContext(ctx, query,
		dispute.ID,
		dispute.EvaluationID,
		dispute.SubmittedBy,
		dispute.SubmissionDate,
		dispute.Reason,
		dispute.Details,
		dispute.AdditionalEvidence,
		dispute.RequestedScoreChange,
		dispute.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	dispute.Revision = 1

	// Flip the evaluation to Disputed, guarded by the revision the caller
	// read. A lost race means another dispute landed first.
	result, err := tx.ExecContext(ctx,
		`UPDATE evaluations SET status = $2, last_updated = NOW(), revision = revision + 1 WHERE id = $1 AND revision = $3`,
		eval.ID, models.EvaluationDisputed, eval.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to mark evaluation disputed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark evaluation disputed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evaluation %s: %w", eval.ID, ErrConflict)
	}

	return tx.Commit()
}

func (r *PostgresDisputeRepository) GetByID(ctx context.Context, id string) (*models.Dispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE id = $1
	`

	d, err := scanDispute(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dispute %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return d, nil
}

func (r *PostgresDisputeRepository) FindActiveByEvaluation(ctx context.Context, evaluationID string) (*models.Dispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE evaluation_id = $1 AND status IN ($2, $3)
		LIMIT 1
	`

	d, err := scanDispute(r.db.QueryRowContext(ctx, query, evaluationID, models.DisputePending, models.DisputeInProgress))
	if err == sql.ErrNoRows {
		return nil, nil // no active dispute
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active dispute: %w", err)
	}
	return d, nil
}

func (r *PostgresDisputeRepository) List(ctx context.Context, filter DisputeFilter) ([]models.Dispute, error) {
	baseQuery := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE 1=1
	`

	var args []interface{}
	argIndex := 1

	if filter.EvaluationID != "" {
		baseQuery += fmt.Sprintf(" AND evaluation_id = $%d", argIndex)
		args = append(args, filter.EvaluationID)
		argIndex++
	}
	if filter.SubmittedBy != "" {
		baseQuery += fmt.Sprintf(" AND submitted_by = $%d", argIndex)
		args = append(args, filter.SubmittedBy)
		argIndex++
	}
	if filter.From != nil {
		baseQuery += fmt.Sprintf(" AND submission_date >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		baseQuery += fmt.Sprintf(" AND submission_date <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	baseQuery += " ORDER BY submission_date DESC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes: %w", err)
	}
	defer rows.Close()

	var disputes []models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", err)
		}
		disputes = append(disputes, *d)
	}

	return disputes, rows.Err()
}

func (r *PostgresDisputeRepository) Update(ctx context.Context, dispute *models.Dispute) error {
	query := `
		UPDATE disputes
		SET reason = $2, details = $3, additional_evidence = $4,
		    requested_score_change = $5, revision = revision + 1
		WHERE id = $1 AND revision = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		dispute.ID,
		dispute.Reason,
		dispute.Details,
		dispute.AdditionalEvidence,
		dispute.RequestedScoreChange,
		dispute.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	if affected == 0 {
		return r.conflictOrNotFound(ctx, dispute.ID)
	}
	dispute.Revision++
	return nil
}

func (r *PostgresDisputeRepository) conflictOrNotFound(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM disputes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	if exists {
		return fmt.Errorf("dispute %s: %w", id, ErrConflict)
	}
	return fmt.Errorf("dispute %s: %w", id, ErrNotFound)
}

func (r *PostgresDisputeRepository) Resolve(ctx context.Context, dispute *models.Dispute, resolution *models.DisputeResolution, eval *models.Evaluation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dispute resolve: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, reviewed_by = $3, review_date = $4,
		    score_adjustment = $5, revision = revision + 1
		WHERE id = $1 AND revision = $6 AND status IN ($7, $8)
	`,
		dispute.ID,
		dispute.Status,
		dispute.ReviewedBy,
		dispute.ReviewDate,
		dispute.ScoreAdjustment,
		dispute.Revision,
		models.DisputePending,
		models.DisputeInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dispute %s: %w", dispute.ID, ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dispute_resolutions (id, dispute_id, resolution_date, resolved_by, decision, review_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		resolution.ID,
		resolution.DisputeID,
		resolution.ResolutionDate,
		resolution.ResolvedBy,
		resolution.Decision,
		resolution.ReviewNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE evaluations SET score = $2, status = $3, last_updated = NOW(), revision = revision + 1 WHERE id = $1 AND revision = $4`,
		eval.ID, eval.Score, eval.Status, eval.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to restore evaluation: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to restore evaluation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evaluation %s: %w", eval.ID, ErrConflict)
	}

	return tx.Commit()
}

func (r *PostgresDisputeRepository) Cancel(ctx context.Context, dispute *models.Dispute, eval *models.Evaluation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dispute cancel: %w", err)
	}
	defer tx.Rollback()

	// Only a still-pending dispute can be withdrawn.
	result, err := tx.ExecContext(ctx,
		`DELETE FROM disputes WHERE id = $1 AND status = $2`,
		dispute.ID, models.DisputePending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel dispute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel dispute: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dispute %s: %w", dispute.ID, ErrConflict)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE evaluations SET status = $2, last_updated = NOW(), revision = revision + 1 WHERE id = $1 AND revision = $3`,
		eval.ID, models.EvaluationCompleted, eval.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to restore evaluation: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to restore evaluation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evaluation %s: %w", eval.ID, ErrConflict)
	}

	return tx.Commit()
}

func (r *PostgresDisputeRepository) GetResolutions(ctx context.Context, disputeID string) ([]models.DisputeResolution, error) {
	query := `
		SELECT id, dispute_id, resolution_date, resolved_by, decision, review_notes
		FROM dispute_resolutions
		WHERE dispute_id = $1
		ORDER BY resolution_date
	`

	rows, err := r.db.QueryContext(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []models.DisputeResolution
	for rows.Next() {
		var res models.DisputeResolution
		err := rows.Scan(
			&res.ID,
			&res.DisputeID,
			&res.ResolutionDate,
			&res.ResolvedBy,
			&res.Decision,
			&res.ReviewNotes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}
		resolutions = append(resolutions, res)
	}

	return resolutions, rows.Err()
}
