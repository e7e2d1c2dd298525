package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/tiendahair/internal/domain"
)

type SKURepo struct{ db *gorm.DB }

func NewSKURepo(db *gorm.DB) *SKURepo { return &SKURepo{db: db} }

func (r *SKURepo) Save(ctx context.Context, s *domain.SKU) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SKURepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.SKU, error) {
	var s domain.SKU
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SKURepo) FindByCode(ctx context.Context, code string) (*domain.SKU, error) {
	var s domain.SKU
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := r.db.WithContext(ctx).First(&s, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SKURepo) List(ctx context.Context, f domain.SKUFilter) ([]domain.SKU, int64, error) {
	var list []domain.SKU
	q := r.db.WithContext(ctx).Model(&domain.SKU{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Tier != "" {
		q = q.Where("tier = ?", f.Tier)
	}
	if f.SaleMode != "" {
		q = q.Where("sale_mode = ?", f.SaleMode)
	}
	if f.Listed != nil {
		q = q.Where("is_listed = ?", *f.Listed)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Order("code asc").Offset(offset).Limit(f.PageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Patch persists only the fields named in p, so stray request fields can
// never reach a column.
func (r *SKURepo) Patch(ctx context.Context, code string, p domain.SKUPatch) (*domain.SKU, error) {
	updates := map[string]any{}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.Tier != nil {
		updates["tier"] = *p.Tier
	}
	if p.Shade != nil {
		updates["shade"] = *p.Shade
	}
	if p.LengthCM != nil {
		updates["length_cm"] = *p.LengthCM
	}
	if p.PricePerGram != nil {
		updates["price_per_gram"] = *p.PricePerGram
	}
	if p.MinOrderG != nil {
		updates["min_order_g"] = *p.MinOrderG
	}
	if p.StepG != nil {
		updates["step_g"] = *p.StepG
	}
	if p.IsListed != nil {
		updates["is_listed"] = *p.IsListed
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&domain.SKU{}).Where("code = ?", code).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrNotFound
		}
	}
	return r.FindByCode(ctx, code)
}
