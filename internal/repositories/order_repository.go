package repositories

import (
	"context"

	"photofix-api/internal/database"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, pack, credits, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		order.ID, order.UserID, order.Pack, order.Credits,
		order.AmountCents, order.Currency, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create order", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, user_id, provider_session_id, pack, credits, amount_cents,
			currency, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.UserID, &order.ProviderSessionID, &order.Pack,
		&order.Credits, &order.AmountCents, &order.Currency, &order.Status,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get order", errors.ErrInternalServer.Status)
	}

	return order, nil
}

func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, user_id, provider_session_id, pack, credits, amount_cents,
			currency, status, created_at, updated_at
		FROM orders
		WHERE provider_session_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, sessionID).Scan(
		&order.ID, &order.UserID, &order.ProviderSessionID, &order.Pack,
		&order.Credits, &order.AmountCents, &order.Currency, &order.Status,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get order", errors.ErrInternalServer.Status)
	}

	return order, nil
}

func (r *OrderRepository) SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	query := `UPDATE orders SET provider_session_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, sessionID, orderID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to set order session", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// UpdateStatus transitions an order only out of the pending state, so a
// replayed webhook cannot flip a paid order to failed or pay it twice.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Pool.Exec(ctx, query, status, orderID, models.OrderStatusPending)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update order status", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrConflict
	}

	return nil
}

// SettlePaid marks a pending order paid and grants its credits to the buyer
// in one transaction, so a crash between the two cannot strand a paid order
// without credits. Returns ErrConflict when the order already left the
// pending state.
func (r *OrderRepository) SettlePaid(ctx context.Context, orderID uuid.UUID, credits int, plan *string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to settle order", errors.ErrInternalServer.Status)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING user_id
	`
	err = tx.QueryRow(ctx, query, models.OrderStatusPaid, orderID, models.OrderStatusPending).Scan(&userID)
	if err == pgx.ErrNoRows {
		return errors.ErrConflict
	}
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to settle order", errors.ErrInternalServer.Status)
	}

	grant := `
		UPDATE users
		SET credits = credits + $1, plan = COALESCE($2, plan), updated_at = NOW()
		WHERE id = $3
	`
	if _, err := tx.Exec(ctx, grant, credits, plan, userID); err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to grant order credits", errors.ErrInternalServer.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to settle order", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.Order, int64, error) {
	var orders []*models.Order
	var total int64

	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := r.db.Pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count orders", errors.ErrInternalServer.Status)
	}

	query := `
		SELECT id, user_id, provider_session_id, pack, credits, amount_cents,
			currency, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list orders", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID, &order.UserID, &order.ProviderSessionID, &order.Pack,
			&order.Credits, &order.AmountCents, &order.Currency, &order.Status,
			&order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan order", errors.ErrInternalServer.Status)
		}
		orders = append(orders, order)
	}

	return orders, total, nil
}
