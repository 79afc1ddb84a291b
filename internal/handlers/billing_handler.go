package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"photofix-api/internal/models"
	"photofix-api/internal/repositories"
	"photofix-api/internal/services"
	"photofix-api/pkg/billing"
	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps webhook payload reads at 64 KiB.
const maxWebhookBody = 64 << 10

type BillingHandler struct {
	billingService *services.BillingService
	orderRepo      *repositories.OrderRepository
	webhookSecret  string
}

func NewBillingHandler(billingService *services.BillingService, orderRepo *repositories.OrderRepository, webhookSecret string) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		orderRepo:      orderRepo,
		webhookSecret:  webhookSecret,
	}
}

// Checkout creates an order for a credit pack and returns the provider's
// hosted checkout URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID := currentUserID(c)

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	resp, err := h.billingService.Checkout(c.Request.Context(), userID, req.Pack)
	if err != nil {
		respondError(c, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListOrders returns the caller's order history.
func (h *BillingHandler) ListOrders(c *gin.Context) {
	userID := currentUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := h.orderRepo.ListByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err, "Failed to list orders")
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       orders,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Webhook receives payment provider events. The raw body is verified against
// the shared webhook secret before any decoding happens.
func (h *BillingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrBadRequest.Code,
			Message: "Failed to read request body",
		})
		return
	}

	event, err := billing.ParseEvent(body, c.GetHeader(billing.SignatureHeader), h.webhookSecret)
	if err != nil {
		log.Printf("Rejected billing webhook: %v", err)
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrBadRequest.Code,
			Message: "Invalid webhook payload",
		})
		return
	}

	if err := h.billingService.HandleEvent(c.Request.Context(), event); err != nil {
		respondError(c, err, "Failed to process billing event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
