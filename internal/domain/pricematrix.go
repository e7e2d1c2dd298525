package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceMatrixEntry maps (category, tier, shade range, length) to a price per
// gram. The key tuple is unique; lookups are exact, never interpolated.
type PriceMatrixEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Category        string          `gorm:"size:60;not null;uniqueIndex:idx_price_matrix_key"`
	Tier            string          `gorm:"size:40;not null;uniqueIndex:idx_price_matrix_key"`
	ShadeRangeStart int             `gorm:"not null;uniqueIndex:idx_price_matrix_key"`
	ShadeRangeEnd   int             `gorm:"not null;uniqueIndex:idx_price_matrix_key"`
	LengthCM        int             `gorm:"not null;uniqueIndex:idx_price_matrix_key"`
	PricePerGram    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PriceUSDPerGram decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PriceMatrixKey struct {
	Category        string
	Tier            string
	ShadeRangeStart int
	ShadeRangeEnd   int
	LengthCM        int
}

func (e *PriceMatrixEntry) Key() PriceMatrixKey {
	return PriceMatrixKey{e.Category, e.Tier, e.ShadeRangeStart, e.ShadeRangeEnd, e.LengthCM}
}

type PriceMatrixPatch struct {
	PricePerGram    *decimal.Decimal
	PriceUSDPerGram *decimal.Decimal
}

type PriceMatrixRepo interface {
	Upsert(ctx context.Context, e *PriceMatrixEntry) error
	FindByKey(ctx context.Context, k PriceMatrixKey) (*PriceMatrixEntry, error)
	// FindByCategoryTierLength returns every entry for the triple, any range.
	FindByCategoryTierLength(ctx context.Context, category, tier string, lengthCM int) ([]PriceMatrixEntry, error)
	List(ctx context.Context, category string) ([]PriceMatrixEntry, error)
	Patch(ctx context.Context, id uuid.UUID, p PriceMatrixPatch) (*PriceMatrixEntry, error)
}
