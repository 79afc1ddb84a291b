package handlers

import (
	"log"
	"net/http"

	"photofix-api/internal/queue"
	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	processor *queue.Processor
}

func NewQueueHandler(processor *queue.Processor) *QueueHandler {
	return &QueueHandler{processor: processor}
}

// ProcessPhotos runs one queue batch. It is invoked by the external cron
// scheduler; authentication happens in middleware before this runs.
func (h *QueueHandler) ProcessPhotos(c *gin.Context) {
	summary, err := h.processor.Run(c.Request.Context())
	if err != nil {
		log.Printf("Queue run failed: %v", err)
		c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
			Error:   "Failed to process photo queue",
			Details: err.Error(),
		})
		return
	}

	if summary.Total == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":   summary.Message,
			"processed": 0,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
