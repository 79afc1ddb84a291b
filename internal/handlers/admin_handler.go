package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"photofix-api/internal/models"
	"photofix-api/internal/repositories"
	"photofix-api/pkg/memorydb"

	"github.com/gin-gonic/gin"
)

const (
	statsCacheKey = "admin:stats"
	statsCacheTTL = 60 * time.Second
)

type AdminHandler struct {
	statsRepo *repositories.StatsRepository
	cache     *memorydb.RedisClient
}

// NewAdminHandler creates the admin handler. cache may be nil, in which case
// stats are computed on every request.
func NewAdminHandler(statsRepo *repositories.StatsRepository, cache *memorydb.RedisClient) *AdminHandler {
	return &AdminHandler{
		statsRepo: statsRepo,
		cache:     cache,
	}
}

// Stats returns aggregate platform statistics, cached for a minute.
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, statsCacheKey); err == nil {
			var stats models.AdminStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				c.JSON(http.StatusOK, stats)
				return
			}
		}
	}

	stats, err := h.statsRepo.GetAdminStats(ctx)
	if err != nil {
		respondError(c, err, "Failed to compute stats")
		return
	}

	if h.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := h.cache.Set(ctx, statsCacheKey, payload, statsCacheTTL); err != nil {
				log.Printf("Failed to cache admin stats: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}
