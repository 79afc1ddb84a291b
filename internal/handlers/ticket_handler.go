package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"photofix-api/internal/models"
	"photofix-api/pkg/errors"
	"photofix-api/pkg/mail"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TicketStore is the slice of ticket storage the handler needs.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, userID *uuid.UUID, page, limit int) ([]*models.Ticket, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateReply(ctx context.Context, reply *models.TicketReply) error
}

type TicketHandler struct {
	tickets TicketStore
	mailer  *mail.Sender
}

func NewTicketHandler(tickets TicketStore, mailer *mail.Sender) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		mailer:  mailer,
	}
}

// Create opens a new support ticket for the caller.
func (h *TicketHandler) Create(c *gin.Context) {
	userID := currentUserID(c)

	var req models.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	ticket := &models.Ticket{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  models.TicketStatusOpen,
	}
	if err := h.tickets.Create(c.Request.Context(), ticket); err != nil {
		respondError(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// List returns the caller's tickets. Admins see every ticket.
func (h *TicketHandler) List(c *gin.Context) {
	userID := currentUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var scope *uuid.UUID
	if !isAdmin(c) {
		scope = &userID
	}

	tickets, total, err := h.tickets.List(c.Request.Context(), scope, page, limit)
	if err != nil {
		respondError(c, err, "Failed to list tickets")
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       tickets,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetByID returns a ticket with its replies. Owner or admin only.
func (h *TicketHandler) GetByID(c *gin.Context) {
	ticket, ok := h.loadTicket(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// Reply appends a reply to a ticket and reopens it if it was closed by a
// customer reply, or marks it in progress on a staff reply.
func (h *TicketHandler) Reply(c *gin.Context) {
	ticket, ok := h.loadTicket(c)
	if !ok {
		return
	}

	var req models.CreateTicketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	reply := &models.TicketReply{
		ID:       uuid.New(),
		TicketID: ticket.ID,
		UserID:   currentUserID(c),
		Body:     req.Body,
		IsStaff:  isAdmin(c),
	}
	if err := h.tickets.CreateReply(c.Request.Context(), reply); err != nil {
		respondError(c, err, "Failed to create reply")
		return
	}

	next := models.TicketStatusOpen
	if reply.IsStaff {
		next = models.TicketStatusInProgress
	}
	if ticket.Status != next {
		if err := h.tickets.UpdateStatus(c.Request.Context(), ticket.ID, next); err != nil {
			respondError(c, err, "Failed to update ticket status")
			return
		}
	}

	// Notify the customer when support replies. Mail failures never fail
	// the request.
	if reply.IsStaff && ticket.UserEmail != nil {
		subject := fmt.Sprintf("Re: %s", ticket.Subject)
		body := fmt.Sprintf("Support replied to your ticket %q:\n\n%s\n", ticket.Subject, reply.Body)
		if err := h.mailer.Send(*ticket.UserEmail, subject, body); err != nil {
			log.Printf("Failed to send ticket reply notification: %v", err)
		}
	}

	c.JSON(http.StatusCreated, reply)
}

// UpdateStatus sets a ticket's status. Owners can close or reopen their own
// tickets; all transitions are open to admins.
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	ticket, ok := h.loadTicket(c)
	if !ok {
		return
	}

	var req models.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	if !isAdmin(c) && req.Status == models.TicketStatusInProgress {
		c.JSON(http.StatusForbidden, errors.ErrorResponse{
			Error:   errors.ErrForbidden.Code,
			Message: "Only support staff can mark a ticket in progress",
		})
		return
	}

	if err := h.tickets.UpdateStatus(c.Request.Context(), ticket.ID, req.Status); err != nil {
		respondError(c, err, "Failed to update ticket status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket status updated"})
}

// loadTicket parses the :id param, fetches the ticket and enforces
// owner-or-admin access. Writes the error response itself on failure.
func (h *TicketHandler) loadTicket(c *gin.Context) (*models.Ticket, bool) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: "Invalid ticket ID",
		})
		return nil, false
	}

	ticket, err := h.tickets.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err, "Failed to get ticket")
		return nil, false
	}

	if ticket.UserID != currentUserID(c) && !isAdmin(c) {
		c.JSON(http.StatusNotFound, errors.ErrorResponse{
			Error:   errors.ErrNotFound.Code,
			Message: "Ticket not found",
		})
		return nil, false
	}

	return ticket, true
}
