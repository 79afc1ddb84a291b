package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photofix-api/pkg/billing"
	"photofix-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newWebhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	// The billing service is only reached after signature verification, so
	// rejection paths can run without one.
	handler := NewBillingHandler(nil, nil, secret)
	router := gin.New()
	router.POST("/api/webhooks/billing", handler.Webhook)
	return router
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	router := newWebhookRouter("whsec_test")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/webhooks/billing",
		strings.NewReader(`{"id":"evt_1","type":"payment.failed"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router := newWebhookRouter("whsec_test")

	body := `{"id":"evt_1","type":"payment.failed"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/webhooks/billing", strings.NewReader(body))
	req.Header.Set(billing.SignatureHeader, utils.SignPayload([]byte(body), "wrong-secret"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
