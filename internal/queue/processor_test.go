package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photofix-api/config"
	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	pending     []*models.Photo
	claimCalls  int
	claimErr    error
	failed      map[uuid.UUID]string
	requeueErr  error
	requeued    int64
	staleCalled bool
}

func newFakeStore(pending ...*models.Photo) *fakeStore {
	return &fakeStore{
		pending: pending,
		failed:  make(map[uuid.UUID]string),
	}
}

func (s *fakeStore) ClaimBatch(ctx context.Context, limit int) ([]*models.Photo, error) {
	s.claimCalls++
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	n := limit
	if n > len(s.pending) {
		n = len(s.pending)
	}
	claimed := s.pending[:n]
	s.pending = s.pending[n:]
	for _, p := range claimed {
		p.Status = models.PhotoStatusProcessing
	}
	return claimed, nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	s.failed[id] = message
	return nil
}

func (s *fakeStore) RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.staleCalled = true
	if s.requeueErr != nil {
		return 0, s.requeueErr
	}
	return s.requeued, nil
}

func pendingPhoto(age time.Duration) *models.Photo {
	return &models.Photo{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    models.PhotoStatusPending,
		CreatedAt: time.Now().Add(-age),
	}
}

func testConfig(enhanceURL string) config.QueueConfig {
	return config.QueueConfig{
		InternalToken:   "test-internal-token",
		EnhanceURL:      enhanceURL,
		BatchSize:       5,
		DispatchTimeout: 5,
		StaleAfter:      15,
	}
}

func TestRunProcessesFullBatch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore(
		pendingPhoto(3*time.Hour),
		pendingPhoto(2*time.Hour),
		pendingPhoto(time.Hour),
	)
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, summary.Total, summary.Processed+summary.Errors)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Processed 3 photos", summary.Message)
}

func TestRunCapsBatchAtConfiguredSize(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	photos := make([]*models.Photo, 7)
	for i := range photos {
		photos[i] = pendingPhoto(time.Duration(7-i) * time.Hour)
	}
	store := newFakeStore(photos...)
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, calls)
	assert.Len(t, store.pending, 2, "two photos stay pending for the next run")
}

func TestRunEmptyQueueMakesNoDownstreamCalls(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := newFakeStore()
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "No photos in queue to process", summary.Message)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, calls)
}

func TestRunMarksDispatchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	photo := pendingPhoto(time.Hour)
	store := newFakeStore(photo)
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Total)

	msg, ok := store.failed[photo.ID]
	require.True(t, ok, "photo should be marked failed")
	assert.Contains(t, msg, "502")
}

func TestRunMixedResults(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls%2 == 0 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore(
		pendingPhoto(4*time.Hour),
		pendingPhoto(3*time.Hour),
		pendingPhoto(2*time.Hour),
		pendingPhoto(time.Hour),
	)
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, summary.Total, summary.Processed+summary.Errors)
	assert.Len(t, store.failed, 2)
}

func TestRunClaimFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.claimErr = errors.ErrInternalServer
	p := NewProcessor(store, testConfig("http://localhost:0"))

	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestRunRequeueStaleFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore(pendingPhoto(time.Hour))
	store.requeueErr = errors.ErrInternalServer
	p := NewProcessor(store, testConfig(srv.URL))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, store.staleCalled)
	assert.Equal(t, 1, summary.Processed)
}

func TestDispatchSendsInternalHeadersAndPhotoID(t *testing.T) {
	photo := pendingPhoto(time.Hour)

	var gotToken, gotUser string
	var gotBody models.EnhanceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Internal-Service")
		gotUser = r.Header.Get("X-User-Id")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore(photo)
	p := NewProcessor(store, testConfig(srv.URL))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-internal-token", gotToken)
	assert.Equal(t, photo.UserID.String(), gotUser)
	assert.Equal(t, photo.ID, gotBody.PhotoID)
}

func TestRunProcessesOldestFirst(t *testing.T) {
	var order []uuid.UUID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.EnhanceRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		order = append(order, req.PhotoID)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	oldest := pendingPhoto(3 * time.Hour)
	middle := pendingPhoto(2 * time.Hour)
	newest := pendingPhoto(time.Hour)
	store := newFakeStore(oldest, middle, newest)
	p := NewProcessor(store, testConfig(srv.URL))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, order, 3)
	assert.Equal(t, oldest.ID, order[0])
	assert.Equal(t, middle.ID, order[1])
	assert.Equal(t, newest.ID, order[2])
}
