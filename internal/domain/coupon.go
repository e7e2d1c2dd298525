package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Coupon codes are stored upper-case and matched case-insensitively. Usage is
// derived by counting orders that reference the code, never stored as a
// counter. Coupons referenced by any order are deactivated, never deleted.
type Coupon struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code           string          `gorm:"size:60;uniqueIndex"`
	Type           CouponType      `gorm:"type:varchar(20);not null"`
	Value          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	MaxDiscount    decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	MaxUses        int             `gorm:"default:0"`
	MaxUsesPerUser int             `gorm:"default:0"`
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	Active         bool `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CouponRepo interface {
	Save(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Deactivate(ctx context.Context, code string) error
}
