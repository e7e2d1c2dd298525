package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

// StockMovement is one append-only ledger row. Rows are never updated or
// deleted; replaying a SKU's rows in order reconstructs its quantity.
type StockMovement struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	SKUID        uuid.UUID    `gorm:"type:uuid;index;not null"`
	Type         MovementType `gorm:"type:varchar(10);not null"`
	Grams        int          `gorm:"not null"`
	BalanceAfter int          `gorm:"not null"`
	Actor        string       `gorm:"size:140"`
	Note         string       `gorm:"size:255"`
	RefOrderID   *uuid.UUID   `gorm:"type:uuid;index"`
	CreatedAt    time.Time    `gorm:"index"`
}

// MovementRequest is the input to the ledger mutator. For ADJUST, Grams is
// the absolute target quantity, not a delta.
type MovementRequest struct {
	SKUID      uuid.UUID
	Type       MovementType
	Grams      int
	Actor      string
	Note       string
	RefOrderID *uuid.UUID
}

type LedgerRepo interface {
	// Apply runs the quantity read-check-write and the ledger insert as one
	// serializable transaction. mutate receives the current SKU and returns
	// the row to append; the SKU is persisted as mutate leaves it.
	Apply(ctx context.Context, skuID uuid.UUID, mutate func(s *SKU) (*StockMovement, error)) (*StockMovement, error)
	ListBySKU(ctx context.Context, skuID uuid.UUID) ([]StockMovement, error)
	ListAll(ctx context.Context, from, to time.Time) ([]StockMovement, error)
}

// Replay folds movements in order into the quantity they should produce.
func Replay(moves []StockMovement) int {
	bal := 0
	for _, m := range moves {
		switch m.Type {
		case MovementIn:
			bal += m.Grams
		case MovementOut:
			bal -= m.Grams
		case MovementAdjust:
			bal = m.BalanceAfter
		}
	}
	return bal
}
