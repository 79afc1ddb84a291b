package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"photofix-api/internal/models"
	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type photoStoreStub struct {
	photos    map[uuid.UUID]*models.Photo
	createErr error
}

func newPhotoStoreStub() *photoStoreStub {
	return &photoStoreStub{photos: make(map[uuid.UUID]*models.Photo)}
}

func (s *photoStoreStub) Create(ctx context.Context, photo *models.Photo) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.photos[photo.ID]; exists {
		return errors.ErrConflict
	}
	s.photos[photo.ID] = photo
	return nil
}

func (s *photoStoreStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	photo, ok := s.photos[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return photo, nil
}

func (s *photoStoreStub) ListByUser(ctx context.Context, userID uuid.UUID, status *string, page, limit int) ([]*models.Photo, int64, error) {
	var out []*models.Photo
	for _, photo := range s.photos {
		if photo.UserID == userID {
			out = append(out, photo)
		}
	}
	return out, int64(len(out)), nil
}

type creditSpenderStub struct {
	balances map[uuid.UUID]int
}

func newCreditSpenderStub() *creditSpenderStub {
	return &creditSpenderStub{balances: make(map[uuid.UUID]int)}
}

func (s *creditSpenderStub) SpendCredit(ctx context.Context, userID uuid.UUID) error {
	if s.balances[userID] <= 0 {
		return errors.ErrInsufficientCredits
	}
	s.balances[userID]--
	return nil
}

func (s *creditSpenderStub) AddCredits(ctx context.Context, userID uuid.UUID, credits int, plan *string) error {
	s.balances[userID] += credits
	return nil
}

func newPhotoRouter(t *testing.T, photos PhotoStore, credits CreditSpender, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewPhotoHandler(photos, credits)

	router := gin.New()
	authed := router.Group("/api/v1", func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})
	authed.POST("/photos", handler.Submit)
	authed.GET("/photos", handler.List)
	authed.GET("/photos/:id", handler.GetByID)
	return router
}

func submitPhoto(router *gin.Engine, url string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(models.SubmitPhotoRequest{OriginalURL: url})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/photos", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitAssignsDistinctPhotoIDs(t *testing.T) {
	userID := uuid.New()
	photos := newPhotoStoreStub()
	credits := newCreditSpenderStub()
	credits.balances[userID] = 2
	router := newPhotoRouter(t, photos, credits, userID)

	w := submitPhoto(router, "https://cdn.example.com/a.jpg")
	require.Equal(t, http.StatusCreated, w.Code)

	var first models.Photo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, userID, first.UserID)
	assert.Equal(t, models.PhotoStatusPending, first.Status)

	w = submitPhoto(router, "https://cdn.example.com/b.jpg")
	require.Equal(t, http.StatusCreated, w.Code)

	var second models.Photo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, uuid.Nil, second.ID)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Len(t, photos.photos, 2)
	assert.Equal(t, 0, credits.balances[userID])
}

func TestSubmitWithoutCredits(t *testing.T) {
	userID := uuid.New()
	photos := newPhotoStoreStub()
	router := newPhotoRouter(t, photos, newCreditSpenderStub(), userID)

	w := submitPhoto(router, "https://cdn.example.com/a.jpg")

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Empty(t, photos.photos)
}

func TestSubmitRefundsCreditWhenStoreFails(t *testing.T) {
	userID := uuid.New()
	photos := newPhotoStoreStub()
	photos.createErr = errors.NewError("INTERNAL_ERROR", "database unavailable", 500)
	credits := newCreditSpenderStub()
	credits.balances[userID] = 3
	router := newPhotoRouter(t, photos, credits, userID)

	w := submitPhoto(router, "https://cdn.example.com/a.jpg")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 3, credits.balances[userID])
	assert.Empty(t, photos.photos)
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	userID := uuid.New()
	credits := newCreditSpenderStub()
	credits.balances[userID] = 1
	router := newPhotoRouter(t, newPhotoStoreStub(), credits, userID)

	w := submitPhoto(router, "not-a-url")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, credits.balances[userID], "validation failure must not spend a credit")
}

func TestGetByIDHidesOtherUsersPhotos(t *testing.T) {
	userID := uuid.New()
	photos := newPhotoStoreStub()
	other := &models.Photo{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		OriginalURL: "https://cdn.example.com/other.jpg",
		Status:      models.PhotoStatusPending,
	}
	photos.photos[other.ID] = other
	router := newPhotoRouter(t, photos, newCreditSpenderStub(), userID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/photos/"+other.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
