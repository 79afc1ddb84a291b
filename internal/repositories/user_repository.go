package repositories

import (
	"context"
	"strings"
	"time"

	"photofix-api/internal/database"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, name, plan, credits, is_admin, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.Plan, user.Credits, user.IsAdmin, user.Status,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "users_email_key") {
			return errors.WrapError(err, "CONFLICT", "Email already registered", errors.ErrConflict.Status)
		}
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create user", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, name, avatar_url, plan, credits,
			is_admin, status, last_login_at, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.AvatarURL,
		&user.Plan, &user.Credits, &user.IsAdmin, &user.Status,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get user", errors.ErrInternalServer.Status)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, name, avatar_url, plan, credits,
			is_admin, status, last_login_at, created_at, updated_at, deleted_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`

	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.AvatarURL,
		&user.Plan, &user.Credits, &user.IsAdmin, &user.Status,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get user", errors.ErrInternalServer.Status)
	}

	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = COALESCE($1, name),
			avatar_url = COALESCE($2, avatar_url),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.Name, user.AvatarURL, user.Status, user.ID,
	).Scan(&user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return errors.ErrNotFound
	}
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update user", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update password", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`

	_, err := r.db.Pool.Exec(ctx, query, at, userID)
	return err
}

// AddCredits grants credits and optionally upgrades the plan. Used by the
// billing webhook after a paid checkout.
func (r *UserRepository) AddCredits(ctx context.Context, userID uuid.UUID, credits int, plan *string) error {
	query := `
		UPDATE users
		SET credits = credits + $1,
			plan = COALESCE($2, plan),
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := r.db.Pool.Exec(ctx, query, credits, plan, userID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to add credits", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// SpendCredit decrements one credit if the user has any left. Returns
// ErrInsufficientCredits when the balance is zero.
func (r *UserRepository) SpendCredit(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET credits = credits - 1, updated_at = NOW()
		WHERE id = $1 AND credits > 0 AND deleted_at IS NULL
	`

	result, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to spend credit", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrInsufficientCredits
	}

	return nil
}

func (r *UserRepository) List(ctx context.Context, page, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
	if err := r.db.Pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count users", errors.ErrInternalServer.Status)
	}

	query := `
		SELECT id, email, name, avatar_url, plan, credits, is_admin, status,
			last_login_at, created_at, updated_at
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list users", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.Plan,
			&user.Credits, &user.IsAdmin, &user.Status, &user.LastLoginAt,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan user", errors.ErrInternalServer.Status)
		}
		users = append(users, user)
	}

	return users, total, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to delete user", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}
