package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PhotoStore is the slice of photo storage the handler needs.
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *string, page, limit int) ([]*models.Photo, int64, error)
}

// CreditSpender debits and refunds submission credits.
type CreditSpender interface {
	SpendCredit(ctx context.Context, userID uuid.UUID) error
	AddCredits(ctx context.Context, userID uuid.UUID, credits int, plan *string) error
}

type PhotoHandler struct {
	photos  PhotoStore
	credits CreditSpender
}

func NewPhotoHandler(photos PhotoStore, credits CreditSpender) *PhotoHandler {
	return &PhotoHandler{
		photos:  photos,
		credits: credits,
	}
}

// Submit enqueues a photo for enhancement. One credit is spent per
// submission and refunded if the photo cannot be stored.
func (h *PhotoHandler) Submit(c *gin.Context) {
	userID := currentUserID(c)

	var req models.SubmitPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	if err := h.credits.SpendCredit(c.Request.Context(), userID); err != nil {
		respondError(c, err, "Failed to spend credit")
		return
	}

	photo := &models.Photo{
		ID:          uuid.New(),
		UserID:      userID,
		OriginalURL: req.OriginalURL,
		Status:      models.PhotoStatusPending,
	}
	if err := h.photos.Create(c.Request.Context(), photo); err != nil {
		if refundErr := h.credits.AddCredits(c.Request.Context(), userID, 1, nil); refundErr != nil {
			log.Printf("Failed to refund credit to user %s: %v", userID, refundErr)
		}
		respondError(c, err, "Failed to submit photo")
		return
	}

	c.JSON(http.StatusCreated, photo)
}

// List returns the caller's photos, optionally filtered by status.
func (h *PhotoHandler) List(c *gin.Context) {
	userID := currentUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var status *string
	if s := c.Query("status"); s != "" {
		switch s {
		case models.PhotoStatusPending, models.PhotoStatusProcessing,
			models.PhotoStatusCompleted, models.PhotoStatusFailed:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, errors.ErrorResponse{
				Error:   errors.ErrValidation.Code,
				Message: "Invalid status filter",
			})
			return
		}
	}

	photos, total, err := h.photos.ListByUser(c.Request.Context(), userID, status, page, limit)
	if err != nil {
		respondError(c, err, "Failed to list photos")
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       photos,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetByID returns a single photo. Owners see their own; admins see any.
func (h *PhotoHandler) GetByID(c *gin.Context) {
	userID := currentUserID(c)

	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: "Invalid photo ID",
		})
		return
	}

	photo, err := h.photos.GetByID(c.Request.Context(), photoID)
	if err != nil {
		respondError(c, err, "Failed to get photo")
		return
	}

	if photo.UserID != userID && !isAdmin(c) {
		c.JSON(http.StatusNotFound, errors.ErrorResponse{
			Error:   errors.ErrNotFound.Code,
			Message: "Photo not found",
		})
		return
	}

	c.JSON(http.StatusOK, photo)
}
