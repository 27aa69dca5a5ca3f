package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qa-review-tracker/pkg/models"
)

// PostgresUserRepository implements UserRepository
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `email, name, role, department, manager_id, active, updated_at`

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.Email,
		&u.Name,
		&u.Role,
		&u.Department,
		&u.ManagerID,
		&u.Active,
		&u.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (r *PostgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY email
	`
	return r.scanUsers(ctx, query)
}

func (r *PostgresUserRepository) ListDirectReports(ctx context.Context, managerID string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE manager_id = $1
		ORDER BY email
	`
	return r.scanUsers(ctx, query, managerID)
}

func (r *PostgresUserRepository) scanUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(
			&u.Email,
			&u.Name,
			&u.Role,
			&u.Department,
			&u.ManagerID,
			&u.Active,
			&u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, role, department, manager_id, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		user.Role,
		user.Department,
		user.ManagerID,
		user.Active,
	).Scan(&user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, role = $3, department = $4, manager_id = $5, active = $6, updated_at = NOW()
		WHERE email = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.Role,
		user.Department,
		user.ManagerID,
		user.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", user.Email, ErrNotFound)
	}
	return nil
}
