package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"photofix-api/internal/database"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PhotoRepository struct {
	db *database.DB
}

func NewPhotoRepository(db *database.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, user_id, original_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		photo.ID, photo.UserID, photo.OriginalURL, photo.Status,
	).Scan(&photo.CreatedAt, &photo.UpdatedAt)

	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create photo", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *PhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	photo := &models.Photo{}
	query := `
		SELECT id, user_id, original_url, enhanced_url, status, error_message,
			claimed_at, created_at, updated_at
		FROM photos
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&photo.ID, &photo.UserID, &photo.OriginalURL, &photo.EnhancedURL,
		&photo.Status, &photo.ErrorMessage, &photo.ClaimedAt,
		&photo.CreatedAt, &photo.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get photo", errors.ErrInternalServer.Status)
	}

	return photo, nil
}

// ClaimBatch atomically claims up to limit pending photos, oldest first,
// transitioning them to processing in a single statement. FOR UPDATE SKIP
// LOCKED makes overlapping cron invocations claim disjoint sets, so an item
// can never be dispatched twice.
func (r *PhotoRepository) ClaimBatch(ctx context.Context, limit int) ([]*models.Photo, error) {
	query := `
		UPDATE photos
		SET status = $1, claimed_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM photos
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, original_url, enhanced_url, status, error_message,
			claimed_at, created_at, updated_at
	`

	rows, err := r.db.Pool.Query(ctx, query, models.PhotoStatusProcessing, models.PhotoStatusPending, limit)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to claim pending photos", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo := &models.Photo{}
		err := rows.Scan(
			&photo.ID, &photo.UserID, &photo.OriginalURL, &photo.EnhancedURL,
			&photo.Status, &photo.ErrorMessage, &photo.ClaimedAt,
			&photo.CreatedAt, &photo.UpdatedAt,
		)
		if err != nil {
			return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan photo", errors.ErrInternalServer.Status)
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to claim pending photos", errors.ErrInternalServer.Status)
	}

	// UPDATE ... RETURNING does not guarantee row order; sort claimed rows
	// back to oldest-first before dispatch.
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})

	return photos, nil
}

// MarkFailed records a terminal dispatch failure.
func (r *PhotoRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE photos
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.Pool.Exec(ctx, query, models.PhotoStatusFailed, message, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to mark photo failed", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// MarkCompleted records the enhanced image. Only a processing photo can
// complete; completing an already terminal photo is a no-op conflict.
func (r *PhotoRepository) MarkCompleted(ctx context.Context, id uuid.UUID, enhancedURL string) error {
	query := `
		UPDATE photos
		SET status = $1, enhanced_url = $2, error_message = NULL, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, models.PhotoStatusCompleted, enhancedURL, id, models.PhotoStatusProcessing)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to mark photo completed", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrConflict
	}

	return nil
}

// RequeueStale returns photos stuck in processing longer than maxAge back to
// pending so the next cron run picks them up again.
func (r *PhotoRepository) RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE photos
		SET status = $1, claimed_at = NULL, updated_at = NOW()
		WHERE status = $2 AND claimed_at < NOW() - $3::interval
	`

	result, err := r.db.Pool.Exec(ctx, query, models.PhotoStatusPending, models.PhotoStatusProcessing, maxAge.String())
	if err != nil {
		return 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to requeue stale photos", errors.ErrInternalServer.Status)
	}

	return result.RowsAffected(), nil
}

func (r *PhotoRepository) ListByUser(ctx context.Context, userID uuid.UUID, status *string, page, limit int) ([]*models.Photo, int64, error) {
	var photos []*models.Photo
	var total int64

	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM photos WHERE user_id = $1`
	countArgs := []interface{}{userID}

	if status != nil {
		countQuery += ` AND status = $2`
		countArgs = append(countArgs, *status)
	}

	if err := r.db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count photos", errors.ErrInternalServer.Status)
	}

	query := `
		SELECT id, user_id, original_url, enhanced_url, status, error_message,
			claimed_at, created_at, updated_at
		FROM photos
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	argPos := 2

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
		argPos++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list photos", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	for rows.Next() {
		photo := &models.Photo{}
		err := rows.Scan(
			&photo.ID, &photo.UserID, &photo.OriginalURL, &photo.EnhancedURL,
			&photo.Status, &photo.ErrorMessage, &photo.ClaimedAt,
			&photo.CreatedAt, &photo.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan photo", errors.ErrInternalServer.Status)
		}
		photos = append(photos, photo)
	}

	return photos, total, nil
}
