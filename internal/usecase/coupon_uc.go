package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendahair/internal/domain"
)

type CouponResult struct {
	Coupon      *domain.Coupon  `json:"-"`
	Code        string          `json:"code"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// CouponUC validates coupons against an order amount. Validation is
// preview-only: usage counts are derived from persisted orders, so nothing
// here changes until an order referencing the coupon is saved.
type CouponUC struct {
	Coupons domain.CouponRepo
	Orders  domain.OrderRepo
	Now     func() time.Time
}

func (uc *CouponUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc *CouponUC) Validate(ctx context.Context, code string, orderAmount decimal.Decimal, customerEmail string) (*CouponResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrValidation
	}

	c, err := uc.Coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, domain.ErrCouponInactive
	}
	now := uc.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, domain.ErrCouponNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, domain.ErrCouponExpired
	}
	if c.MaxUses > 0 {
		uses, err := uc.Orders.CountByCoupon(ctx, c.Code)
		if err != nil {
			return nil, err
		}
		if uses >= int64(c.MaxUses) {
			return nil, domain.ErrCouponMaxUses
		}
	}
	if c.MaxUsesPerUser > 0 && customerEmail != "" {
		uses, err := uc.Orders.CountByCouponAndEmail(ctx, c.Code, strings.ToLower(strings.TrimSpace(customerEmail)))
		if err != nil {
			return nil, err
		}
		if uses >= int64(c.MaxUsesPerUser) {
			return nil, domain.ErrCouponPerUserLimit
		}
	}
	if c.MinOrderAmount.IsPositive() && orderAmount.LessThan(c.MinOrderAmount) {
		return nil, domain.ErrCouponMinOrder
	}

	var discount decimal.Decimal
	switch c.Type {
	case domain.CouponPercentage:
		discount = orderAmount.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
			discount = c.MaxDiscount
		}
	case domain.CouponFixed:
		discount = c.Value
	default:
		return nil, domain.ErrValidation
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return &CouponResult{
		Coupon:      c,
		Code:        c.Code,
		Discount:    discount,
		FinalAmount: orderAmount.Sub(discount),
	}, nil
}
