package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"photofix-api/config"
	"photofix-api/internal/models"

	"github.com/google/uuid"
)

// Store is the slice of photo storage the processor needs.
type Store interface {
	// ClaimBatch atomically transitions up to limit pending photos to
	// processing, oldest first, and returns them.
	ClaimBatch(ctx context.Context, limit int) ([]*models.Photo, error)
	// MarkFailed records a terminal dispatch failure for one photo.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	// RequeueStale returns photos stuck in processing back to pending.
	RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Summary is the result of one processing run.
type Summary struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

// Processor drains the photo queue one batch per invocation: claim a batch,
// dispatch each photo to the enhancement endpoint sequentially, and record
// failures. Items dispatched successfully are left in processing; the
// enhancement endpoint completes them.
type Processor struct {
	store         Store
	enhanceURL    string
	internalToken string
	batchSize     int
	staleAfter    time.Duration
	httpClient    *http.Client
}

func NewProcessor(store Store, cfg config.QueueConfig) *Processor {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	timeout := time.Duration(cfg.DispatchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Processor{
		store:         store,
		enhanceURL:    cfg.EnhanceURL,
		internalToken: cfg.InternalToken,
		batchSize:     batchSize,
		staleAfter:    time.Duration(cfg.StaleAfter) * time.Minute,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Run executes one batch. A claim failure is fatal to the invocation; a
// per-photo dispatch failure is counted, marks the photo failed, and does
// not abort the batch. Always Processed+Errors == Total.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	if p.staleAfter > 0 {
		requeued, err := p.store.RequeueStale(ctx, p.staleAfter)
		if err != nil {
			log.Printf("Queue: failed to requeue stale photos: %v", err)
		} else if requeued > 0 {
			log.Printf("Queue: requeued %d stale photos", requeued)
		}
	}

	photos, err := p.store.ClaimBatch(ctx, p.batchSize)
	if err != nil {
		return nil, err
	}

	if len(photos) == 0 {
		return &Summary{Message: "No photos in queue to process", Processed: 0}, nil
	}

	summary := &Summary{Total: len(photos)}

	for _, photo := range photos {
		if err := p.dispatch(ctx, photo); err != nil {
			log.Printf("Queue: dispatch failed for photo %s: %v", photo.ID, err)
			summary.Errors++

			if markErr := p.store.MarkFailed(ctx, photo.ID, err.Error()); markErr != nil {
				log.Printf("Queue: failed to mark photo %s failed: %v", photo.ID, markErr)
			}
			continue
		}
		summary.Processed++
	}

	summary.Message = fmt.Sprintf("Processed %d photos", summary.Total)
	return summary, nil
}

// dispatch makes exactly one call to the enhancement endpoint for one photo.
func (p *Processor) dispatch(ctx context.Context, photo *models.Photo) error {
	body, err := json.Marshal(models.EnhanceRequest{PhotoID: photo.ID})
	if err != nil {
		return fmt.Errorf("failed to encode enhance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.enhanceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build enhance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Service", p.internalToken)
	req.Header.Set("X-User-Id", photo.UserID.String())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enhance call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("enhance endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
