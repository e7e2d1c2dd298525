package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line-scoped error codes. A failed line never aborts its siblings; the
// caller decides whether any error blocks the whole order.
const (
	LineErrNotFound          = "not_found"
	LineErrInsufficientStock = "insufficient_stock"
	LineErrInvalidIncrement  = "invalid_increment"
	LineErrSoldOut           = "sold_out"
)

type LineRequest struct {
	SKUCode    string `json:"sku_code"`
	Grams      int    `json:"grams"`
	EndingCode string `json:"ending_code"`
}

type QuoteRequest struct {
	Lines         []LineRequest `json:"lines"`
	CouponCode    string        `json:"coupon_code"`
	CustomerEmail string        `json:"customer_email"`
}

// CartLine is one priced line of a quote. Ephemeral, never persisted.
type CartLine struct {
	SKUID          uuid.UUID       `json:"sku_id"`
	SKUCode        string          `json:"sku_code"`
	SaleMode       SaleMode        `json:"sale_mode"`
	Grams          int             `json:"grams"`
	EndingCode     string          `json:"ending_code"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	EndingFee      decimal.Decimal `json:"ending_fee"`
	AssemblyFee    decimal.Decimal `json:"assembly_fee"`
	LineGrandTotal decimal.Decimal `json:"line_grand_total"`
	Err            string          `json:"error,omitempty"`
}

type Quote struct {
	Lines      []CartLine      `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Errors     []string        `json:"errors,omitempty"`
}

// HasLineErrors reports whether any line is not purchasable as requested.
func (q *Quote) HasLineErrors() bool {
	for _, l := range q.Lines {
		if l.Err != "" {
			return true
		}
	}
	return false
}
