package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qa-review-tracker/pkg/models"
)

// PostgresQuestionSetRepository implements QuestionSetRepository
type PostgresQuestionSetRepository struct {
	db *sql.DB
}

func NewPostgresQuestionSetRepository(db *sql.DB) *PostgresQuestionSetRepository {
	return &PostgresQuestionSetRepository{db: db}
}

func (r *PostgresQuestionSetRepository) GetByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	query := `
		SELECT id, name, description, interaction_type, active, created_by, last_modified
		FROM question_sets
		WHERE id = $1
	`

	var set models.QuestionSet
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&set.ID,
		&set.Name,
		&set.Description,
		&set.InteractionType,
		&set.Active,
		&set.CreatedBy,
		&set.LastModified,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question set %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question set: %w", err)
	}

	return &set, nil
}

func (r *PostgresQuestionSetRepository) List(ctx context.Context) ([]models.QuestionSet, error) {
	query := `
		SELECT id, name, description, interaction_type, active, created_by, last_modified
		FROM question_sets
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query question sets: %w", err)
	}
	defer rows.Close()

	var sets []models.QuestionSet
	for rows.Next() {
		var set models.QuestionSet
		err := rows.Scan(
			&set.ID,
			&set.Name,
			&set.Description,
			&set.InteractionType,
			&set.Active,
			&set.CreatedBy,
			&set.LastModified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question set row: %w", err)
		}
		sets = append(sets, set)
	}

	return sets, rows.Err()
}

func (r *PostgresQuestionSetRepository) Create(ctx context.Context, set *models.QuestionSet) error {
	query := `
		INSERT INTO question_sets (id, name, description, interaction_type, active, created_by, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING last_modified
	`

	err := r.db.QueryRowContext(ctx, query,
		set.ID,
		set.Name,
		set.Description,
		set.InteractionType,
		set.Active,
		set.CreatedBy,
	).Scan(&set.LastModified)

	if err != nil {
		return fmt.Errorf("failed to create question set: %w", err)
	}
	return nil
}

func (r *PostgresQuestionSetRepository) Update(ctx context.Context, set *models.QuestionSet) error {
	query := `
		UPDATE question_sets
		SET name = $2, description = $3, interaction_type = $4, active = $5, last_modified = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		set.ID,
		set.Name,
		set.Description,
		set.InteractionType,
		set.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update question set: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update question set: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("question set %s: %w", set.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresQuestionSetRepository) Delete(ctx context.Context, id string) error {
	// Questions go with their set; evaluations referencing the set are
	// checked by the service before this is called.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE question_set_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM question_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question set: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete question set: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("question set %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

func (r *PostgresQuestionSetRepository) GetQuestions(ctx context.Context, questionSetID string) ([]models.Question, error) {
	query := `
		SELECT id, question_set_id, text, type, weight, possible_score, critical, options, help_text, active
		FROM questions
		WHERE question_set_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, questionSetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		err := rows.Scan(
			&q.ID,
			&q.QuestionSetID,
			&q.Text,
			&q.Type,
			&q.Weight,
			&q.PossibleScore,
			&q.Critical,
			&q.Options,
			&q.HelpText,
			&q.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

func (r *PostgresQuestionSetRepository) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	query := `
		SELECT id, question_set_id, text, type, weight, possible_score, critical, options, help_text, active
		FROM questions
		WHERE id = $1
	`

	var q models.Question
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID,
		&q.QuestionSetID,
		&q.Text,
		&q.Type,
		&q.Weight,
		&q.PossibleScore,
		&q.Critical,
		&q.Options,
		&q.HelpText,
		&q.Active,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return &q, nil
}

func (r *PostgresQuestionSetRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	query := `
		INSERT INTO questions (id, question_set_id, text, type, weight, possible_score, critical, options, help_text, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		q.ID,
		q.QuestionSetID,
		q.Text,
		q.Type,
		q.Weight,
		q.PossibleScore,
		q.Critical,
		q.Options,
		q.HelpText,
		q.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (r *PostgresQuestionSetRepository) UpdateQuestion(ctx context.Context, q *models.Question) error {
	query := `
		UPDATE questions
		SET text = $2, type = $3, weight = $4, possible_score = $5, critical = $6, options = $7, help_text = $8, active = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		q.ID,
		q.Text,
		q.Type,
		q.Weight,
		q.PossibleScore,
		q.Critical,
		q.Options,
		q.HelpText,
		q.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("question %s: %w", q.ID, ErrNotFound)
	}
	return nil
}
