package services

import (
	"context"
	"time"

	"photofix-api/internal/database"
	"photofix-api/pkg/memorydb"
)

// HealthStatus represents the status of a dependency
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// HealthService handles health check operations
type HealthService struct {
	db    *database.DB
	redis *memorydb.RedisClient // may be nil
}

// NewHealthService creates a new health service
func NewHealthService(db *database.DB, redis *memorydb.RedisClient) *HealthService {
	return &HealthService{
		db:    db,
		redis: redis,
	}
}

// CheckDatabase checks the database connection
func (s *HealthService) CheckDatabase(ctx context.Context) HealthStatus {
	if err := s.db.Ping(ctx); err != nil {
		return HealthStatus{
			Status:    "error",
			Timestamp: time.Now(),
			Details:   err.Error(),
		}
	}
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// CheckRedis checks the Redis connection
func (s *HealthService) CheckRedis(ctx context.Context) HealthStatus {
	if s.redis == nil {
		return HealthStatus{
			Status:    "disabled",
			Timestamp: time.Now(),
		}
	}
	if err := s.redis.Ping(ctx); err != nil {
		return HealthStatus{
			Status:    "error",
			Timestamp: time.Now(),
			Details:   err.Error(),
		}
	}
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// CheckOverall checks all dependencies. Redis being disabled does not
// degrade overall health.
func (s *HealthService) CheckOverall(ctx context.Context) (map[string]HealthStatus, bool) {
	status := map[string]HealthStatus{
		"database": s.CheckDatabase(ctx),
		"redis":    s.CheckRedis(ctx),
	}

	healthy := status["database"].Status == "ok" && status["redis"].Status != "error"
	return status, healthy
}
