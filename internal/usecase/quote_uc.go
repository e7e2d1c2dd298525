package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendahair/internal/domain"
)

// Flat surcharge per ending code (ARS). Unknown codes price as "none".
var endingFees = map[string]decimal.Decimal{
	"":         decimal.Zero,
	"none":     decimal.Zero,
	"sellado":  decimal.NewFromInt(1500),
	"keratina": decimal.NewFromInt(2800),
	"clip":     decimal.NewFromInt(3500),
}

var (
	assemblyPerGram = decimal.NewFromFloat(12.0)
	assemblyFlatFee = decimal.NewFromInt(2000)
)

// QuoteUC prices and validates a multi-line cart. Pure read path: it performs
// no writes, so quotes may run fully in parallel.
type QuoteUC struct {
	SKUs    domain.SKURepo
	Coupons *CouponUC
}

func (uc *QuoteUC) Build(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if len(req.Lines) == 0 {
		return nil, domain.ErrValidation
	}

	q := &domain.Quote{
		Subtotal:   decimal.Zero,
		Discount:   decimal.Zero,
		GrandTotal: decimal.Zero,
	}

	sum := decimal.Zero
	for _, lr := range req.Lines {
		line := uc.priceLine(ctx, lr)
		q.Lines = append(q.Lines, line)
		if line.Err != "" {
			continue
		}
		q.Subtotal = q.Subtotal.Add(line.LineTotal)
		sum = sum.Add(line.LineGrandTotal)
	}

	if req.CouponCode != "" {
		res, err := uc.Coupons.Validate(ctx, req.CouponCode, sum, req.CustomerEmail)
		switch {
		case err == nil:
			q.Discount = res.Discount
		case isCouponErr(err):
			q.Errors = append(q.Errors, couponErrCode(err))
		default:
			// falla de infraestructura, no un cupón rechazado
			return nil, err
		}
	}

	q.GrandTotal = sum.Sub(q.Discount)
	if q.GrandTotal.IsNegative() {
		q.GrandTotal = decimal.Zero
	}
	return q, nil
}

// priceLine resolves and prices one cart line. A failure marks the line and
// never aborts siblings.
func (uc *QuoteUC) priceLine(ctx context.Context, lr domain.LineRequest) domain.CartLine {
	line := domain.CartLine{
		SKUCode:    lr.SKUCode,
		Grams:      lr.Grams,
		EndingCode: lr.EndingCode,
	}

	s, err := uc.SKUs.FindByCode(ctx, lr.SKUCode)
	if err != nil {
		line.Err = domain.LineErrNotFound
		return line
	}
	line.SKUID = s.ID
	line.SaleMode = s.SaleMode

	switch s.SaleMode {
	case domain.SaleModeBulk:
		if code := validateBulk(s, lr.Grams); code != "" {
			line.Err = code
			return line
		}
	case domain.SaleModePiece:
		// A piece sells whole or not at all; grams 0 means "the piece".
		if s.SoldOut || !s.InStock {
			line.Err = domain.LineErrSoldOut
			return line
		}
		if lr.Grams != 0 && lr.Grams != s.WeightTotalG {
			line.Err = domain.LineErrInvalidIncrement
			return line
		}
		line.Grams = s.WeightTotalG
	default:
		line.Err = domain.LineErrNotFound
		return line
	}

	// Unit price comes from the SKU as stored at creation/edit time, not
	// re-resolved from the matrix, so past quotes survive matrix edits.
	line.UnitPrice = s.PricePerGram
	line.LineTotal = s.PricePerGram.Mul(decimal.NewFromInt(int64(line.Grams))).Round(2)

	fee, ok := endingFees[line.EndingCode]
	if !ok {
		fee = decimal.Zero
	}
	line.EndingFee = fee

	if s.SaleMode == domain.SaleModeBulk {
		line.AssemblyFee = assemblyPerGram.Mul(decimal.NewFromInt(int64(line.Grams))).Round(2)
	} else {
		line.AssemblyFee = assemblyFlatFee
	}

	line.LineGrandTotal = line.LineTotal.Add(line.EndingFee).Add(line.AssemblyFee)
	return line
}

func validateBulk(s *domain.SKU, grams int) string {
	if grams <= 0 {
		return domain.LineErrInvalidIncrement
	}
	if s.StepG > 0 && grams%s.StepG != 0 {
		return domain.LineErrInvalidIncrement
	}
	if grams < s.MinOrderG {
		return domain.LineErrInvalidIncrement
	}
	if grams > s.AvailableGrams {
		return domain.LineErrInsufficientStock
	}
	return ""
}

func isCouponErr(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrCouponInactive,
		domain.ErrCouponNotYetValid,
		domain.ErrCouponExpired,
		domain.ErrCouponMaxUses,
		domain.ErrCouponPerUserLimit,
		domain.ErrCouponMinOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func couponErrCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "coupon_not_found"
	case errors.Is(err, domain.ErrCouponInactive):
		return "coupon_inactive"
	case errors.Is(err, domain.ErrCouponNotYetValid):
		return "coupon_not_yet_valid"
	case errors.Is(err, domain.ErrCouponExpired):
		return "coupon_expired"
	case errors.Is(err, domain.ErrCouponMaxUses):
		return "coupon_max_uses"
	case errors.Is(err, domain.ErrCouponPerUserLimit):
		return "coupon_per_user_limit"
	case errors.Is(err, domain.ErrCouponMinOrder):
		return "coupon_min_order"
	default:
		return "coupon_invalid"
	}
}
