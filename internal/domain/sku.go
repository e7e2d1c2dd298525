package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleMode string

const (
	SaleModeBulk  SaleMode = "BULK_G"
	SaleModePiece SaleMode = "PIECE_BY_WEIGHT"
)

type SKU struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code            string          `gorm:"size:60;uniqueIndex"`
	Category        string          `gorm:"size:60;index"`
	Tier            string          `gorm:"size:40;index"`
	Shade           int             `gorm:"default:0"`
	ShadeRangeStart int             `gorm:"default:0"`
	ShadeRangeEnd   int             `gorm:"default:0"`
	LengthCM        int             `gorm:"not null"`
	SaleMode        SaleMode        `gorm:"type:varchar(20);not null;index"`
	PricePerGram    decimal.Decimal `gorm:"type:decimal(12,2)"`
	PriceUSDPerGram decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	AvailableGrams  int             `gorm:"default:0"`
	WeightTotalG    int             `gorm:"default:0"`
	MinOrderG       int             `gorm:"default:0"`
	StepG           int             `gorm:"default:0"`
	InStock         bool            `gorm:"default:false;index"`
	SoldOut         bool            `gorm:"default:false"`
	IsListed        bool            `gorm:"default:true;index"`
	InStockSince    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Quantity is the grams the ledger accounts for: the shared pool for
// bulk SKUs, the fixed weight (or zero once sold) for pieces.
func (s *SKU) Quantity() int {
	if s.SaleMode == SaleModePiece {
		if s.SoldOut {
			return 0
		}
		return s.WeightTotalG
	}
	return s.AvailableGrams
}

// SKUPatch carries admin edits. Only non-nil fields are persisted.
type SKUPatch struct {
	Category     *string
	Tier         *string
	Shade        *int
	LengthCM     *int
	PricePerGram *decimal.Decimal
	MinOrderG    *int
	StepG        *int
	IsListed     *bool
}

type SKUFilter struct {
	Category string
	Tier     string
	SaleMode SaleMode
	Listed   *bool
	Page     int
	PageSize int
}

type SKURepo interface {
	Save(ctx context.Context, s *SKU) error
	FindByID(ctx context.Context, id uuid.UUID) (*SKU, error)
	FindByCode(ctx context.Context, code string) (*SKU, error)
	List(ctx context.Context, f SKUFilter) ([]SKU, int64, error)
	Patch(ctx context.Context, code string, p SKUPatch) (*SKU, error)
}
