package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"qa-review-tracker/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationColumnNames() []string {
	return []string{
		"id", "date", "agent_id", "evaluator_id", "question_set_id", "interaction_type",
		"customer_id", "interaction_id", "score", "max_possible", "status",
		"strengths", "areas_for_improvement", "comments", "last_updated", "revision",
	}
}

func sampleEvaluation() *models.Evaluation {
	return &models.Evaluation{
		ID:              "ev-1",
		Date:            time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC),
		AgentID:         "agent@example.com",
		EvaluatorID:     "analyst@example.com",
		QuestionSetID:   "qs-1",
		InteractionType: "call",
		Score:           70,
		MaxPossible:     100,
		Status:          models.EvaluationCompleted,
		Revision:        1,
	}
}

func TestCreateWithAnswersCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)
	eval := sampleEvaluation()
	answers := []models.Answer{
		{ID: "a-1", EvaluationID: "ev-1", QuestionID: "q-1", Score: 8, MaxScore: 10},
		{ID: "a-2", EvaluationID: "ev-1", QuestionID: "q-2", Score: 5, MaxScore: 10},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO evaluations").
		WillReturnRows(sqlmock.NewRows([]string{"last_updated"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO evaluation_answers").
		WithArgs("a-1", "ev-1", "q-1", "", "", 8, 10, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO evaluation_answers").
		WithArgs("a-2", "ev-1", "q-2", "", "", 5, 10, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.CreateWithAnswers(context.Background(), eval, answers)

	assert.NoError(t, err)
	assert.Equal(t, 1, eval.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithAnswersRollsBackOnAnswerFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)
	eval := sampleEvaluation()
	answers := []models.Answer{
		{ID: "a-1", EvaluationID: "ev-1", QuestionID: "q-1", Score: 8, MaxScore: 10},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO evaluations").
		WillReturnRows(sqlmock.NewRows([]string{"last_updated"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO evaluation_answers").
		WillReturnError(fmt.Errorf("duplicate key"))
	mock.ExpectRollback()

	err = repo.CreateWithAnswers(context.Background(), eval, answers)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEvaluationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM evaluations").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "missing")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEvaluationRevisionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)
	eval := sampleEvaluation()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE evaluations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err = repo.Update(context.Background(), eval, nil)

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 1, eval.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEvaluationBumpsRevision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)
	eval := sampleEvaluation()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE evaluations").
		WithArgs("ev-1", 70, 100, string(models.EvaluationCompleted), "", "", "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Update(context.Background(), eval, nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, eval.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascadeRemovesChildrenFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)

	// Ordered expectations: answers, resolutions, disputes, then the
	// evaluation itself.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluation_answers").
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM dispute_resolutions").
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM disputes").
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM evaluations").
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.DeleteCascade(context.Background(), "ev-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascadeMissingEvaluation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluation_answers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM dispute_resolutions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM disputes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM evaluations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.DeleteCascade(context.Background(), "missing")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvaluationsByAgent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEvaluationRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(evaluationColumnNames()).
		AddRow("ev-1", now, "agent@example.com", "analyst@example.com", "qs-1", "call",
			"", "", 70, 100, string(models.EvaluationCompleted), "", "", "", now, 1)
	mock.ExpectQuery("SELECT (.+) FROM evaluations").
		WithArgs("agent@example.com").
		WillReturnRows(rows)

	evals, err := repo.List(context.Background(), EvaluationFilter{AgentID: "agent@example.com"})

	assert.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, "ev-1", evals[0].ID)
	assert.Equal(t, 70, evals[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
