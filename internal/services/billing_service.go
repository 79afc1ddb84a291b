package services

import (
	"context"
	"log"
	"time"

	"photofix-api/internal/models"
	"photofix-api/pkg/billing"
	"photofix-api/pkg/errors"
	"photofix-api/pkg/utils"

	"github.com/google/uuid"
)

// CreditPack describes a purchasable credit bundle.
type CreditPack struct {
	Name        string
	Credits     int
	AmountCents int64
	Currency    string
	Plan        *string
}

// Packs is the credit pack catalog. Studio upgrades the plan as well.
var Packs = map[string]CreditPack{
	"starter":  {Name: "starter", Credits: 20, AmountCents: 499, Currency: "usd"},
	"standard": {Name: "standard", Credits: 100, AmountCents: 1499, Currency: "usd"},
	"studio":   {Name: "studio", Credits: 500, AmountCents: 4999, Currency: "usd", Plan: utils.StringPtr("studio")},
}

// OrderStore is the slice of order storage the billing service needs.
// SettlePaid must flip the order to paid and grant its credits atomically.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error
	SettlePaid(ctx context.Context, orderID uuid.UUID, credits int, plan *string) error
}

// SessionCreator creates hosted checkout sessions at the payment provider.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, orderID string, amountCents int64, currency string, metadata map[string]string) (*billing.CheckoutSession, error)
}

// EventDeduper remembers webhook event IDs so replays are acknowledged
// without re-applying their effects. Del releases a claimed ID again.
type EventDeduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type BillingService struct {
	orders   OrderStore
	provider SessionCreator
	dedup    EventDeduper
}

func NewBillingService(orders OrderStore, provider SessionCreator, dedup EventDeduper) *BillingService {
	return &BillingService{
		orders:   orders,
		provider: provider,
		dedup:    dedup,
	}
}

// Checkout creates a pending order and a provider checkout session for it.
func (s *BillingService) Checkout(ctx context.Context, userID uuid.UUID, packName string) (*models.CheckoutResponse, error) {
	pack, ok := Packs[packName]
	if !ok {
		return nil, errors.NewError("UNKNOWN_PACK", "Unknown credit pack", 400)
	}

	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Pack:        pack.Name,
		Credits:     pack.Credits,
		AmountCents: pack.AmountCents,
		Currency:    pack.Currency,
		Status:      models.OrderStatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, order.ID.String(), order.AmountCents, order.Currency, map[string]string{
		"user_id": userID.String(),
		"pack":    pack.Name,
	})
	if err != nil {
		return nil, errors.WrapError(err, "PROVIDER_ERROR", "Failed to create checkout session", 502)
	}

	if err := s.orders.SetSessionID(ctx, order.ID, session.ID); err != nil {
		return nil, err
	}

	return &models.CheckoutResponse{
		OrderID:     order.ID,
		CheckoutURL: session.CheckoutURL,
	}, nil
}

// HandleEvent applies one verified webhook event. Replayed events and
// events for orders already in a terminal state are acknowledged without
// side effects.
func (s *BillingService) HandleEvent(ctx context.Context, event *billing.Event) error {
	claimed := false
	if s.dedup != nil {
		key := "billing:event:" + event.ID
		fresh, err := s.dedup.SetNX(ctx, key, 1, 24*time.Hour)
		if err != nil {
			log.Printf("Billing: event dedup unavailable, processing %s anyway: %v", event.ID, err)
		} else if !fresh {
			log.Printf("Billing: skipping replayed event %s", event.ID)
			return nil
		} else {
			claimed = true
		}
	}

	err := s.applyEvent(ctx, event)
	if err != nil && claimed {
		// Release the claim so the provider's retry is not mistaken
		// for a replay of a successfully processed event.
		if delErr := s.dedup.Del(ctx, "billing:event:"+event.ID); delErr != nil {
			log.Printf("Billing: failed to release dedup claim for event %s: %v", event.ID, delErr)
		}
	}
	return err
}

func (s *BillingService) applyEvent(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case billing.EventPaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	default:
		log.Printf("Billing: ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	orderID, err := uuid.Parse(event.Data.Reference)
	if err != nil {
		return errors.NewError("BAD_REFERENCE", "Webhook event has an invalid order reference", 400)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	pack := Packs[order.Pack]
	if err := s.orders.SettlePaid(ctx, order.ID, order.Credits, pack.Plan); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrConflict.Code {
			// Already settled by an earlier delivery
			log.Printf("Billing: order %s already settled, ignoring event %s", order.ID, event.ID)
			return nil
		}
		return err
	}

	log.Printf("Billing: order %s paid, granted %d credits to user %s", order.ID, order.Credits, order.UserID)
	return nil
}

func (s *BillingService) handlePaymentFailed(ctx context.Context, event *billing.Event) error {
	orderID, err := uuid.Parse(event.Data.Reference)
	if err != nil {
		return errors.NewError("BAD_REFERENCE", "Webhook event has an invalid order reference", 400)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusFailed); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrConflict.Code {
			log.Printf("Billing: order %s already settled, ignoring failure event %s", orderID, event.ID)
			return nil
		}
		return err
	}

	log.Printf("Billing: order %s marked failed (%s)", orderID, event.Data.Reason)
	return nil
}
