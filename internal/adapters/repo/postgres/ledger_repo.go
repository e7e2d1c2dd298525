package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/tiendahair/internal/domain"
)

type LedgerRepo struct{ db *gorm.DB }

func NewLedgerRepo(db *gorm.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Apply runs the SKU read, the mutation and the ledger insert inside one
// serializable transaction. Transaction isolation is the sole concurrency
// guard: two OUTs racing over the same pool cannot both commit past the
// available balance.
func (r *LedgerRepo) Apply(ctx context.Context, skuID uuid.UUID, mutate func(s *domain.SKU) (*domain.StockMovement, error)) (*domain.StockMovement, error) {
	var mv *domain.StockMovement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s domain.SKU
		if err := tx.First(&s, "id = ?", skuID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		m, err := mutate(&s)
		if err != nil {
			return err
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.SKUID = s.ID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		mv = m
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransaction, err)
	}
	return mv, nil
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrInsufficientStock,
		domain.ErrSoldOut,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (r *LedgerRepo) ListBySKU(ctx context.Context, skuID uuid.UUID) ([]domain.StockMovement, error) {
	var list []domain.StockMovement
	if err := r.db.WithContext(ctx).Where("sku_id = ?", skuID).Order("created_at asc, id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *LedgerRepo) ListAll(ctx context.Context, from, to time.Time) ([]domain.StockMovement, error) {
	var list []domain.StockMovement
	q := r.db.WithContext(ctx).Model(&domain.StockMovement{})
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	if err := q.Order("created_at asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
