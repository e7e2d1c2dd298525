package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendahair/internal/domain"
)

type CheckoutRequest struct {
	domain.QuoteRequest
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CheckoutUC is the order-creation flow: re-quote, block on any line error,
// commit one OUT movement per line through the ledger, persist the order.
type CheckoutUC struct {
	Quotes *QuoteUC
	Ledger *LedgerUC
	Orders domain.OrderRepo
}

// Confirm returns the quote alongside any error so the caller can show the
// per-line failures that blocked the order.
func (uc *CheckoutUC) Confirm(ctx context.Context, req CheckoutRequest) (*domain.Order, *domain.Quote, error) {
	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	if email == "" {
		return nil, nil, domain.ErrValidation
	}

	q, err := uc.Quotes.Build(ctx, req.QuoteRequest)
	if err != nil {
		return nil, nil, err
	}
	// Policy: block until zero errors remain.
	if q.HasLineErrors() || len(q.Errors) > 0 {
		return nil, q, domain.ErrValidation
	}

	orderID := uuid.New()
	applied := make([]domain.CartLine, 0, len(q.Lines))
	for _, l := range q.Lines {
		_, err := uc.Ledger.Apply(ctx, domain.MovementRequest{
			SKUID:      l.SKUID,
			Type:       domain.MovementOut,
			Grams:      l.Grams,
			Actor:      email,
			Note:       "venta " + orderID.String()[:8],
			RefOrderID: &orderID,
		})
		if err != nil {
			uc.compensate(ctx, applied, orderID)
			return nil, q, err
		}
		applied = append(applied, l)
	}

	o := &domain.Order{
		ID:             orderID,
		Status:         domain.OrderStatusConfirmed,
		Email:          email,
		Name:           req.Name,
		Phone:          req.Phone,
		Address:        req.Address,
		CouponCode:     strings.ToUpper(strings.TrimSpace(req.CouponCode)),
		Subtotal:       q.Subtotal,
		DiscountAmount: q.Discount,
		Total:          q.GrandTotal,
	}
	for _, l := range q.Lines {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			SKUID:       l.SKUID,
			SKUCode:     l.SKUCode,
			SaleMode:    l.SaleMode,
			Grams:       l.Grams,
			EndingCode:  l.EndingCode,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
			EndingFee:   l.EndingFee,
			AssemblyFee: l.AssemblyFee,
		})
	}
	if err := uc.Orders.Save(ctx, o); err != nil {
		uc.compensate(ctx, applied, orderID)
		return nil, q, fmt.Errorf("%w: %v", domain.ErrTransaction, err)
	}
	return o, q, nil
}

// compensate reverses already-committed OUT movements when a later line or
// the order insert fails. Each reversal is its own atomic ledger call.
func (uc *CheckoutUC) compensate(ctx context.Context, lines []domain.CartLine, orderID uuid.UUID) {
	for _, l := range lines {
		_, err := uc.Ledger.Apply(ctx, domain.MovementRequest{
			SKUID:      l.SKUID,
			Type:       domain.MovementIn,
			Grams:      l.Grams,
			Actor:      "system",
			Note:       "reverso venta " + orderID.String()[:8],
			RefOrderID: &orderID,
		})
		if err != nil {
			log.Error().Err(err).Str("sku_code", l.SKUCode).Msg("failed to reverse movement")
		}
	}
}
