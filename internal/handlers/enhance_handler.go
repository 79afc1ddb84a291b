package handlers

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"photofix-api/internal/models"
	"photofix-api/internal/repositories"
	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// EnhanceHandler is the service-to-service enhancement endpoint. The queue
// processor dispatches claimed photos here; in production this would fan out
// to the ML pipeline, here the enhancement itself is a URL rewrite.
type EnhanceHandler struct {
	photoRepo *repositories.PhotoRepository
}

func NewEnhanceHandler(photoRepo *repositories.PhotoRepository) *EnhanceHandler {
	return &EnhanceHandler{photoRepo: photoRepo}
}

// Enhance completes a processing photo, or fails it when the source image
// URL cannot be enhanced.
func (h *EnhanceHandler) Enhance(c *gin.Context) {
	var req models.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	photo, err := h.photoRepo.GetByID(c.Request.Context(), req.PhotoID)
	if err != nil {
		respondError(c, err, "Failed to get photo")
		return
	}

	if photo.Status != models.PhotoStatusProcessing {
		c.JSON(http.StatusConflict, errors.ErrorResponse{
			Error:   errors.ErrConflict.Code,
			Message: fmt.Sprintf("Photo is %s, expected %s", photo.Status, models.PhotoStatusProcessing),
		})
		return
	}

	enhancedURL, err := enhanceImageURL(photo.OriginalURL)
	if err != nil {
		log.Printf("Enhancement failed for photo %s: %v", photo.ID, err)
		if markErr := h.photoRepo.MarkFailed(c.Request.Context(), photo.ID, err.Error()); markErr != nil {
			respondError(c, markErr, "Failed to record enhancement failure")
			return
		}
		c.JSON(http.StatusUnprocessableEntity, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: "Enhancement failed",
			Details: err.Error(),
		})
		return
	}

	if err := h.photoRepo.MarkCompleted(c.Request.Context(), photo.ID, enhancedURL); err != nil {
		respondError(c, err, "Failed to complete photo")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photoId":      photo.ID,
		"enhanced_url": enhancedURL,
	})
}

// enhanceImageURL derives the enhanced asset location from the original.
// Stands in for the ML pipeline output path.
func enhanceImageURL(original string) (string, error) {
	u, err := url.Parse(original)
	if err != nil {
		return "", fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	dir := u.Path
	name := ""
	if idx := strings.LastIndex(u.Path, "/"); idx >= 0 {
		dir = u.Path[:idx]
		name = u.Path[idx+1:]
	}
	if name == "" {
		return "", fmt.Errorf("source URL has no file name")
	}

	u.Path = dir + "/enhanced/" + name
	return u.String(), nil
}
