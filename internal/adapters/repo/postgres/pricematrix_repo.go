package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/tiendahair/internal/domain"
)

type PriceMatrixRepo struct{ db *gorm.DB }

func NewPriceMatrixRepo(db *gorm.DB) *PriceMatrixRepo { return &PriceMatrixRepo{db: db} }

// Upsert keys on the (category, tier, range, length) tuple.
func (r *PriceMatrixRepo) Upsert(ctx context.Context, e *domain.PriceMatrixEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "category"}, {Name: "tier"},
			{Name: "shade_range_start"}, {Name: "shade_range_end"}, {Name: "length_cm"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"price_per_gram", "price_usd_per_gram", "updated_at"}),
	}).Create(e).Error
}

func (r *PriceMatrixRepo) FindByKey(ctx context.Context, k domain.PriceMatrixKey) (*domain.PriceMatrixEntry, error) {
	var e domain.PriceMatrixEntry
	err := r.db.WithContext(ctx).
		Where("category = ? AND tier = ? AND shade_range_start = ? AND shade_range_end = ? AND length_cm = ?",
			k.Category, k.Tier, k.ShadeRangeStart, k.ShadeRangeEnd, k.LengthCM).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PriceMatrixRepo) FindByCategoryTierLength(ctx context.Context, category, tier string, lengthCM int) ([]domain.PriceMatrixEntry, error) {
	var list []domain.PriceMatrixEntry
	err := r.db.WithContext(ctx).
		Where("category = ? AND tier = ? AND length_cm = ?", category, tier, lengthCM).
		Order("shade_range_start asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PriceMatrixRepo) List(ctx context.Context, category string) ([]domain.PriceMatrixEntry, error) {
	var list []domain.PriceMatrixEntry
	q := r.db.WithContext(ctx).Model(&domain.PriceMatrixEntry{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("category asc, tier asc, length_cm asc, shade_range_start asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PriceMatrixRepo) Patch(ctx context.Context, id uuid.UUID, p domain.PriceMatrixPatch) (*domain.PriceMatrixEntry, error) {
	updates := map[string]any{}
	if p.PricePerGram != nil {
		updates["price_per_gram"] = *p.PricePerGram
	}
	if p.PriceUSDPerGram != nil {
		updates["price_usd_per_gram"] = *p.PriceUSDPerGram
	}
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&domain.PriceMatrixEntry{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrNotFound
		}
	}
	var e domain.PriceMatrixEntry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
