package services

import (
	"context"
	"testing"
	"time"

	"photofix-api/internal/models"
	"photofix-api/pkg/billing"
	"photofix-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	orders    map[uuid.UUID]*models.Order
	granted   map[uuid.UUID]int
	plans     map[uuid.UUID]string
	settleErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:  make(map[uuid.UUID]*models.Order),
		granted: make(map[uuid.UUID]int),
		plans:   make(map[uuid.UUID]string),
	}
}

func (s *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	order, ok := s.orders[orderID]
	if !ok {
		return errors.ErrNotFound
	}
	order.ProviderSessionID = &sessionID
	return nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	order, ok := s.orders[orderID]
	if !ok {
		return errors.ErrNotFound
	}
	if order.Status != models.OrderStatusPending {
		return errors.ErrConflict
	}
	order.Status = status
	return nil
}

func (s *fakeOrderStore) SettlePaid(ctx context.Context, orderID uuid.UUID, credits int, plan *string) error {
	if s.settleErr != nil {
		return s.settleErr
	}
	order, ok := s.orders[orderID]
	if !ok {
		return errors.ErrNotFound
	}
	if order.Status != models.OrderStatusPending {
		return errors.ErrConflict
	}
	order.Status = models.OrderStatusPaid
	s.granted[order.UserID] += credits
	if plan != nil {
		s.plans[order.UserID] = *plan
	}
	return nil
}

type fakeProvider struct {
	sessions int
	fail     bool
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, orderID string, amountCents int64, currency string, metadata map[string]string) (*billing.CheckoutSession, error) {
	if p.fail {
		return nil, errors.NewError("PROVIDER_DOWN", "provider unavailable", 502)
	}
	p.sessions++
	return &billing.CheckoutSession{
		ID:          "cs_" + orderID,
		CheckoutURL: "https://pay.example.com/" + orderID,
		Status:      "open",
	}, nil
}

type fakeDeduper struct {
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (d *fakeDeduper) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *fakeDeduper) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(d.seen, key)
	}
	return nil
}

func newTestBillingService() (*BillingService, *fakeOrderStore, *fakeProvider) {
	orders := newFakeOrderStore()
	provider := &fakeProvider{}
	svc := NewBillingService(orders, provider, newFakeDeduper())
	return svc, orders, provider
}

func completedEvent(orderID uuid.UUID, eventID string) *billing.Event {
	return &billing.Event{
		ID:   eventID,
		Type: billing.EventCheckoutCompleted,
		Data: billing.EventData{
			SessionID: "cs_test",
			Reference: orderID.String(),
		},
	}
}

func TestCheckoutCreatesOrderAndSession(t *testing.T) {
	svc, orders, provider := newTestBillingService()
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "standard")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.sessions)
	assert.Contains(t, resp.CheckoutURL, resp.OrderID.String())

	order := orders.orders[resp.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 100, order.Credits)
	assert.Equal(t, int64(1499), order.AmountCents)
	require.NotNil(t, order.ProviderSessionID)
	assert.Equal(t, "cs_"+resp.OrderID.String(), *order.ProviderSessionID)
}

func TestCheckoutRejectsUnknownPack(t *testing.T) {
	svc, _, provider := newTestBillingService()

	_, err := svc.Checkout(context.Background(), uuid.New(), "mega")
	require.Error(t, err)
	assert.Equal(t, 0, provider.sessions)
}

func TestCheckoutProviderFailure(t *testing.T) {
	svc, _, provider := newTestBillingService()
	provider.fail = true

	_, err := svc.Checkout(context.Background(), uuid.New(), "starter")
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 502, appErr.Status)
}

func TestHandleEventGrantsCreditsOnce(t *testing.T) {
	svc, orders, _ := newTestBillingService()
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "starter")
	require.NoError(t, err)

	event := completedEvent(resp.OrderID, "evt_1")
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, models.OrderStatusPaid, orders.orders[resp.OrderID].Status)
	assert.Equal(t, 20, orders.granted[userID])

	// Same event replayed: deduped, no double grant
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, 20, orders.granted[userID])

	// New event ID for an already-paid order: status conflict, no double grant
	require.NoError(t, svc.HandleEvent(context.Background(), completedEvent(resp.OrderID, "evt_2")))
	assert.Equal(t, 20, orders.granted[userID])
}

func TestHandleEventRetryAfterSettleFailure(t *testing.T) {
	orders := newFakeOrderStore()
	dedup := newFakeDeduper()
	svc := NewBillingService(orders, &fakeProvider{}, dedup)
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "starter")
	require.NoError(t, err)

	// First delivery hits a transient storage failure after the event ID
	// was claimed. The claim must be released so the provider's retry is
	// processed instead of being dropped as a replay.
	orders.settleErr = errors.NewError("INTERNAL_ERROR", "database unavailable", 500)
	event := completedEvent(resp.OrderID, "evt_retry")
	require.Error(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, models.OrderStatusPending, orders.orders[resp.OrderID].Status)
	assert.Zero(t, orders.granted[userID])
	assert.False(t, dedup.seen["billing:event:evt_retry"])

	orders.settleErr = nil
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, models.OrderStatusPaid, orders.orders[resp.OrderID].Status)
	assert.Equal(t, 20, orders.granted[userID])

	// And a further replay of the now-processed event stays deduped.
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, 20, orders.granted[userID])
}

func TestHandleEventStudioUpgradesPlan(t *testing.T) {
	svc, orders, _ := newTestBillingService()
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "studio")
	require.NoError(t, err)

	require.NoError(t, svc.HandleEvent(context.Background(), completedEvent(resp.OrderID, "evt_1")))

	assert.Equal(t, 500, orders.granted[userID])
	assert.Equal(t, "studio", orders.plans[userID])
}

func TestHandleEventPaymentFailed(t *testing.T) {
	svc, orders, _ := newTestBillingService()
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "starter")
	require.NoError(t, err)

	event := &billing.Event{
		ID:   "evt_fail",
		Type: billing.EventPaymentFailed,
		Data: billing.EventData{
			Reference: resp.OrderID.String(),
			Reason:    "card_declined",
		},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, models.OrderStatusFailed, orders.orders[resp.OrderID].Status)
	assert.Empty(t, orders.granted)
}

func TestHandleEventUnknownTypeIsAcknowledged(t *testing.T) {
	svc, orders, _ := newTestBillingService()

	err := svc.HandleEvent(context.Background(), &billing.Event{
		ID:   "evt_x",
		Type: "invoice.created",
	})
	require.NoError(t, err)
	assert.Empty(t, orders.granted)
}

func TestHandleEventBadReference(t *testing.T) {
	svc, _, _ := newTestBillingService()

	err := svc.HandleEvent(context.Background(), &billing.Event{
		ID:   "evt_bad",
		Type: billing.EventCheckoutCompleted,
		Data: billing.EventData{Reference: "not-a-uuid"},
	})
	require.Error(t, err)
}

func TestHandleEventWithoutDeduper(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewBillingService(orders, &fakeProvider{}, nil)
	userID := uuid.New()

	resp, err := svc.Checkout(context.Background(), userID, "starter")
	require.NoError(t, err)

	event := completedEvent(resp.OrderID, "evt_1")
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, 20, orders.granted[userID])

	// Replay without Redis still cannot double-grant: the pending-only
	// settle is the idempotency backstop.
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, 20, orders.granted[userID])
}
