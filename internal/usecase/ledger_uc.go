package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendahair/internal/domain"
)

// LowStockNotifier receives SKUs whose pool dropped to or below the alert
// threshold after a committed mutation.
type LowStockNotifier interface {
	LowStock(ctx context.Context, sku *domain.SKU, balanceG int)
}

// LedgerUC is the only sanctioned mutator of SKU quantity. Every Apply runs
// the read-check-write and the ledger insert as one serializable transaction
// in the repo; the two are never observable independently.
type LedgerUC struct {
	Ledger domain.LedgerRepo
	SKUs   domain.SKURepo

	Alerts             LowStockNotifier
	LowStockThresholdG int
}

func (uc *LedgerUC) Apply(ctx context.Context, req domain.MovementRequest) (*domain.StockMovement, error) {
	switch req.Type {
	case domain.MovementIn, domain.MovementOut:
		if req.Grams <= 0 {
			return nil, domain.ErrValidation
		}
	case domain.MovementAdjust:
		if req.Grams < 0 {
			return nil, domain.ErrValidation
		}
	default:
		return nil, domain.ErrValidation
	}
	if req.SKUID == uuid.Nil {
		return nil, domain.ErrValidation
	}

	var low *domain.SKU
	mv, err := uc.Ledger.Apply(ctx, req.SKUID, func(s *domain.SKU) (*domain.StockMovement, error) {
		wasEmpty := s.Quantity() == 0

		m := &domain.StockMovement{
			Type:       req.Type,
			Grams:      req.Grams,
			Actor:      req.Actor,
			Note:       req.Note,
			RefOrderID: req.RefOrderID,
		}

		switch req.Type {
		case domain.MovementIn:
			if s.SaleMode == domain.SaleModePiece {
				// Re-stocking replaces the piece weight. The row records the
				// delta against the current quantity so replay stays exact
				// even when an unsold piece is weighed in again.
				m.Grams = req.Grams - s.Quantity()
				s.WeightTotalG = req.Grams
				s.SoldOut = false
			} else {
				s.AvailableGrams += req.Grams
			}
		case domain.MovementOut:
			if s.SaleMode == domain.SaleModePiece {
				if s.SoldOut || s.WeightTotalG == 0 {
					return nil, domain.ErrSoldOut
				}
				// Pieces are indivisible: any OUT consumes the whole piece.
				m.Grams = s.WeightTotalG
				s.SoldOut = true
			} else {
				if req.Grams > s.AvailableGrams {
					return nil, domain.ErrInsufficientStock
				}
				s.AvailableGrams -= req.Grams
			}
		case domain.MovementAdjust:
			if s.SaleMode == domain.SaleModePiece {
				s.WeightTotalG = req.Grams
				s.SoldOut = req.Grams == 0
			} else {
				s.AvailableGrams = req.Grams
			}
		}

		// InStock is a pure function of quantity, recomputed inside the
		// same mutation, never set independently.
		s.InStock = s.Quantity() > 0
		if wasEmpty && s.InStock {
			now := time.Now()
			s.InStockSince = &now
		}

		m.BalanceAfter = s.Quantity()
		if s.SaleMode == domain.SaleModeBulk && uc.LowStockThresholdG > 0 && m.BalanceAfter <= uc.LowStockThresholdG {
			cp := *s
			low = &cp
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sku_id", req.SKUID.String()).
		Str("type", string(mv.Type)).
		Int("grams", mv.Grams).
		Int("balance_after", mv.BalanceAfter).
		Msg("stock movement applied")

	if low != nil && uc.Alerts != nil && req.Type == domain.MovementOut {
		go uc.Alerts.LowStock(context.Background(), low, mv.BalanceAfter)
	}
	return mv, nil
}

type ReconcileReport struct {
	SKUID       uuid.UUID `json:"sku_id"`
	SKUCode     string    `json:"sku_code"`
	Stored      int       `json:"stored_grams"`
	Replayed    int       `json:"replayed_grams"`
	Movements   int       `json:"movements"`
	InBalance   bool      `json:"in_balance"`
	DeltaGrams  int       `json:"delta_grams"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Reconcile replays every ledger row for a SKU and compares the result with
// the stored quantity.
func (uc *LedgerUC) Reconcile(ctx context.Context, skuID uuid.UUID) (*ReconcileReport, error) {
	s, err := uc.SKUs.FindByID(ctx, skuID)
	if err != nil {
		return nil, err
	}
	moves, err := uc.Ledger.ListBySKU(ctx, skuID)
	if err != nil {
		return nil, err
	}
	replayed := domain.Replay(moves)
	stored := s.Quantity()
	return &ReconcileReport{
		SKUID:       s.ID,
		SKUCode:     s.Code,
		Stored:      stored,
		Replayed:    replayed,
		Movements:   len(moves),
		InBalance:   stored == replayed,
		DeltaGrams:  stored - replayed,
		GeneratedAt: time.Now(),
	}, nil
}
