package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Status         OrderStatus `gorm:"type:varchar(30);index"`
	Items          []OrderItem
	Email          string          `gorm:"size:140;index"`
	Name           string          `gorm:"size:140"`
	Phone          string          `gorm:"size:50"`
	Address        string          `gorm:"size:255"`
	CouponCode     string          `gorm:"size:60;index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem snapshots a priced quote line at confirmation time so historical
// orders keep their prices even if the matrix or SKU is later edited.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index"`
	SKUID       uuid.UUID       `gorm:"type:uuid;index"`
	SKUCode     string          `gorm:"size:60"`
	SaleMode    SaleMode        `gorm:"type:varchar(20)"`
	Grams       int             `gorm:"not null"`
	EndingCode  string          `gorm:"size:30"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2)"`
	EndingFee   decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	AssemblyFee decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
}

type OrderRepo interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	CountByCoupon(ctx context.Context, code string) (int64, error)
	CountByCouponAndEmail(ctx context.Context, code, email string) (int64, error)
}
