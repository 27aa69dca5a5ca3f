package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qa-review-tracker/pkg/models"

	"github.com/lib/pq"
)

// PostgresEvaluationRepository implements EvaluationRepository
type PostgresEvaluationRepository struct {
	db *sql.DB
}

func NewPostgresEvaluationRepository(db *sql.DB) *PostgresEvaluationRepository {
	return &PostgresEvaluationRepository{db: db}
}

const evaluationColumns = `id, date, agent_id, evaluator_id, question_set_id, interaction_type,
		       customer_id, interaction_id, score, max_possible, status,
		       strengths, areas_for_improvement, comments, last_updated, revision`

func (r *PostgresEvaluationRepository) CreateWithAnswers(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin evaluation insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO evaluations (
			id, date, agent_id, evaluator_id, question_set_id, interaction_type,
			customer_id, interaction_id, score, max_possible, status,
			strengths, areas_for_improvement, comments, last_updated, revision
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), 1)
		RETURNING last_updated
	`

	err = tx.QueryRowContext(ctx, query,
		eval.ID,
		eval.Date,
		eval.AgentID,
		eval.EvaluatorID,
		eval.QuestionSetID,
		eval.InteractionType,
		eval.CustomerID,
		eval.InteractionID,
		eval.Score,
		eval.MaxPossible,
		eval.Status,
		eval.Strengths,
		eval.AreasForImprovement,
		eval.Comments,
	).Scan(&eval.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	eval.Revision = 1

	answerQuery := `
		INSERT INTO evaluation_answers (id, evaluation_id, question_id, question_text, answer_value, score, max_score, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i := range answers {
		a := &answers[i]
		_, err := tx.ExecContext(ctx, answerQuery,
			a.ID,
			a.EvaluationID,
			a.QuestionID,
			a.QuestionText,
			a.AnswerValue,
			a.Score,
			a.MaxScore,
			a.Comments,
		)
		if err != nil {
			return fmt.Errorf("failed to create answer for question %s: %w", a.QuestionID, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresEvaluationRepository) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE id = $1
	`

	var e models.Evaluation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.Date,
		&e.AgentID,
		&e.EvaluatorID,
		&e.QuestionSetID,
		&e.InteractionType,
		&e.CustomerID,
		&e.InteractionID,
		&e.Score,
		&e.MaxPossible,
		&e.Status,
		&e.Strengths,
		&e.AreasForImprovement,
		&e.Comments,
		&e.LastUpdated,
		&e.Revision,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evaluation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	return &e, nil
}

func (r *PostgresEvaluationRepository) GetAnswers(ctx context.Context, evaluationID string) ([]models.Answer, error) {
	query := `
		SELECT id, evaluation_id, question_id, question_text, answer_value, score, max_score, comments
		FROM evaluation_answers
		WHERE evaluation_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		err := rows.Scan(
			&a.ID,
			&a.EvaluationID,
			&a.QuestionID,
			&a.QuestionText,
			&a.AnswerValue,
			&a.Score,
			&a.MaxScore,
			&a.Comments,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		answers = append(answers, a)
	}

	return answers, rows.Err()
}

func (r *PostgresEvaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	baseQuery := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE 1=1
	`

	var args []interface{}
	argIndex := 1

	if filter.AgentID != "" {
		baseQuery += fmt.Sprintf(" AND agent_id = $%d", argIndex)
		args = append(args, filter.AgentID)
		argIndex++
	}
	if len(filter.AgentIDs) > 0 {
		baseQuery += fmt.Sprintf(" AND agent_id = ANY($%d)", argIndex)
		args = append(args, pq.Array(filter.AgentIDs))
		argIndex++
	}
	if filter.EvaluatorID != "" {
		baseQuery += fmt.Sprintf(" AND evaluator_id = $%d", argIndex)
		args = append(args, filter.EvaluatorID)
		argIndex++
	}
	if filter.From != nil {
		baseQuery += fmt.Sprintf(" AND date >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		baseQuery += fmt.Sprintf(" AND date <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	baseQuery += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		err := rows.Scan(
			&e.ID,
			&e.Date,
			&e.AgentID,
			&e.EvaluatorID,
			&e.QuestionSetID,
			&e.InteractionType,
			&e.CustomerID,
			&e.InteractionID,
			&e.Score,
			&e.MaxPossible,
			&e.Status,
			&e.Strengths,
			&e.AreasForImprovement,
			&e.Comments,
			&e.LastUpdated,
			&e.Revision,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation row: %w", err)
		}
		evals = append(evals, e)
	}

	return evals, rows.Err()
}

func (r *PostgresEvaluationRepository) Update(ctx context.Context, eval *models.Evaluation, answers []models.Answer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin evaluation update: %w", err)
	}
	defer tx.Rollback()

	// Revision guard: only the writer that read the current revision wins.
	query := `
		UPDATE evaluations
		SET score = $2, max_possible = $3, status = $4, strengths = $5,
		    areas_for_improvement = $6, comments = $7, last_updated = NOW(),
		    revision = revision + 1
		WHERE id = $1 AND revision = $8
	`

	result, err := tx.ExecContext(ctx, query,
		eval.ID,
		eval.Score,
		eval.MaxPossible,
		eval.Status,
		eval.Strengths,
		eval.AreasForImprovement,
		eval.Comments,
		eval.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}
	if affected == 0 {
		return r.conflictOrNotFound(ctx, eval.ID)
	}

	upsert := `
		INSERT INTO evaluation_answers (id, evaluation_id, question_id, question_text, answer_value, score, max_score, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (evaluation_id, question_id) DO UPDATE
		SET answer_value = EXCLUDED.answer_value,
		    score = EXCLUDED.score,
		    max_score = EXCLUDED.max_score,
		    comments = EXCLUDED.comments
	`
	for i := range answers {
		a := &answers[i]
		_, err := tx.ExecContext(ctx, upsert,
			a.ID,
			a.EvaluationID,
			a.QuestionID,
			a.QuestionText,
			a.AnswerValue,
			a.Score,
			a.MaxScore,
			a.Comments,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert answer for question %s: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evaluation update: %w", err)
	}
	eval.Revision++
	return nil
}

func (r *PostgresEvaluationRepository) conflictOrNotFound(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM evaluations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}
	if exists {
		return fmt.Errorf("evaluation %s: %w", id, ErrConflict)
	}
	return fmt.Errorf("evaluation %s: %w", id, ErrNotFound)
}

func (r *PostgresEvaluationRepository) CountByQuestionSet(ctx context.Context, questionSetID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM evaluations WHERE question_set_id = $1`,
		questionSetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func (r *PostgresEvaluationRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin evaluation delete: %w", err)
	}
	defer tx.Rollback()

	// Children before parent so an interrupted delete never leaves
	// dangling references.
	steps := []struct {
		desc  string
		query string
	}{
		{"answers", `DELETE FROM evaluation_answers WHERE evaluation_id = $1`},
		{"dispute resolutions", `DELETE FROM dispute_resolutions WHERE dispute_id IN (SELECT id FROM disputes WHERE evaluation_id = $1)`},
		{"disputes", `DELETE FROM disputes WHERE evaluation_id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.desc, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evaluation %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}
