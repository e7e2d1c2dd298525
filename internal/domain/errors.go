package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")

	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidIncrement    = errors.New("invalid increment")
	ErrSoldOut             = errors.New("sold out")
	ErrAmbiguousShadeRange = errors.New("ambiguous shade range")

	ErrCouponInactive     = errors.New("coupon inactive")
	ErrCouponNotYetValid  = errors.New("coupon not yet valid")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponMaxUses      = errors.New("coupon max uses exceeded")
	ErrCouponPerUserLimit = errors.New("coupon per-user limit exceeded")
	ErrCouponMinOrder     = errors.New("coupon min order not met")

	// ErrTransaction wraps storage failures during a ledger mutation; the
	// mutation rolled back and the caller may retry.
	ErrTransaction = errors.New("transaction failed")
)
