package repositories

import (
	"context"

	"photofix-api/internal/database"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (id, user_id, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		ticket.ID, ticket.UserID, ticket.Subject, ticket.Body, ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)

	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create ticket", errors.ErrInternalServer.Status)
	}

	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		SELECT t.id, t.user_id, t.subject, t.body, t.status, t.created_at, t.updated_at, u.email
		FROM tickets t
		INNER JOIN users u ON u.id = t.user_id
		WHERE t.id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID, &ticket.UserID, &ticket.Subject, &ticket.Body,
		&ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.UserEmail,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get ticket", errors.ErrInternalServer.Status)
	}

	replies, err := r.ListReplies(ctx, id)
	if err == nil {
		ticket.Replies = replies
	}

	return ticket, nil
}

// List returns tickets for one user, or all tickets when userID is nil
// (admin view).
func (r *TicketRepository) List(ctx context.Context, userID *uuid.UUID, page, limit int) ([]*models.Ticket, int64, error) {
	var tickets []*models.Ticket
	var total int64

	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM tickets`
	countArgs := []interface{}{}

	if userID != nil {
		countQuery += ` WHERE user_id = $1`
		countArgs = append(countArgs, *userID)
	}

	if err := r.db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count tickets", errors.ErrInternalServer.Status)
	}

	query := `
		SELECT t.id, t.user_id, t.subject, t.body, t.status, t.created_at, t.updated_at, u.email
		FROM tickets t
		INNER JOIN users u ON u.id = t.user_id
	`
	args := []interface{}{}

	if userID != nil {
		query += ` WHERE t.user_id = $1 ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *userID, limit, offset)
	} else {
		query += ` ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list tickets", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	for rows.Next() {
		ticket := &models.Ticket{}
		err := rows.Scan(
			&ticket.ID, &ticket.UserID, &ticket.Subject, &ticket.Body,
			&ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.UserEmail,
		)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan ticket", errors.ErrInternalServer.Status)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, total, nil
}

func (r *TicketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE tickets SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, status, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update ticket status", errors.ErrInternalServer.Status)
	}

	if result.RowsAffected() == 0 {
		return errors.ErrNotFound
	}

	return nil
}

func (r *TicketRepository) CreateReply(ctx context.Context, reply *models.TicketReply) error {
	query := `
		INSERT INTO ticket_replies (id, ticket_id, user_id, body, is_staff)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		reply.ID, reply.TicketID, reply.UserID, reply.Body, reply.IsStaff,
	).Scan(&reply.CreatedAt)

	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create reply", errors.ErrInternalServer.Status)
	}

	// Replying reopens the conversation for the other side
	touch := `UPDATE tickets SET updated_at = NOW() WHERE id = $1`
	_, _ = r.db.Pool.Exec(ctx, touch, reply.TicketID)

	return nil
}

func (r *TicketRepository) ListReplies(ctx context.Context, ticketID uuid.UUID) ([]*models.TicketReply, error) {
	query := `
		SELECT id, ticket_id, user_id, body, is_staff, created_at
		FROM ticket_replies
		WHERE ticket_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list replies", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var replies []*models.TicketReply
	for rows.Next() {
		reply := &models.TicketReply{}
		err := rows.Scan(
			&reply.ID, &reply.TicketID, &reply.UserID, &reply.Body,
			&reply.IsStaff, &reply.CreatedAt,
		)
		if err != nil {
			return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan reply", errors.ErrInternalServer.Status)
		}
		replies = append(replies, reply)
	}

	return replies, nil
}
