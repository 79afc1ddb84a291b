package repositories

import (
	"context"
	"time"

	"photofix-api/internal/database"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"
)

type StatsRepository struct {
	db *database.DB
}

func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetAdminStats aggregates the dashboard counters in a handful of queries.
func (r *StatsRepository) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{
		PhotosByStatus: make(map[string]int64),
		GeneratedAt:    time.Now().UTC(),
	}

	userQuery := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '7 days')
		FROM users
		WHERE deleted_at IS NULL
	`
	err := r.db.Pool.QueryRow(ctx, userQuery).Scan(
		&stats.TotalUsers, &stats.ActiveUsers, &stats.SignupsLast7d,
	)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count users", errors.ErrInternalServer.Status)
	}

	photoQuery := `SELECT status, COUNT(*) FROM photos GROUP BY status`
	rows, err := r.db.Pool.Query(ctx, photoQuery)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count photos", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan photo counts", errors.ErrInternalServer.Status)
		}
		stats.PhotosByStatus[status] = count
	}

	recentQuery := `SELECT COUNT(*) FROM photos WHERE created_at > NOW() - INTERVAL '24 hours'`
	if err := r.db.Pool.QueryRow(ctx, recentQuery).Scan(&stats.PhotosLast24h); err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count recent photos", errors.ErrInternalServer.Status)
	}

	revenueQuery := `SELECT COALESCE(SUM(amount_cents), 0) FROM orders WHERE status = $1`
	if err := r.db.Pool.QueryRow(ctx, revenueQuery, models.OrderStatusPaid).Scan(&stats.RevenueCents); err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to sum revenue", errors.ErrInternalServer.Status)
	}

	ticketQuery := `SELECT COUNT(*) FROM tickets WHERE status != $1`
	if err := r.db.Pool.QueryRow(ctx, ticketQuery, models.TicketStatusClosed).Scan(&stats.OpenTickets); err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count tickets", errors.ErrInternalServer.Status)
	}

	return stats, nil
}
