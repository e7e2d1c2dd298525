package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/tiendahair/internal/domain"
)

type fakeSKURepo struct {
	mu   sync.Mutex
	skus map[uuid.UUID]*domain.SKU
}

func newFakeSKURepo(skus ...*domain.SKU) *fakeSKURepo {
	r := &fakeSKURepo{skus: map[uuid.UUID]*domain.SKU{}}
	for _, s := range skus {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		r.skus[s.ID] = s
	}
	return r
}

func (r *fakeSKURepo) Save(_ context.Context, s *domain.SKU) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.skus[s.ID] = &cp
	return nil
}

func (r *fakeSKURepo) FindByID(_ context.Context, id uuid.UUID) (*domain.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skus[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSKURepo) FindByCode(_ context.Context, code string) (*domain.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, s := range r.skus {
		if strings.ToUpper(s.Code) == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeSKURepo) List(_ context.Context, _ domain.SKUFilter) ([]domain.SKU, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SKU, 0, len(r.skus))
	for _, s := range r.skus {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSKURepo) Patch(ctx context.Context, code string, p domain.SKUPatch) (*domain.SKU, error) {
	s, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p.PricePerGram != nil {
		s.PricePerGram = *p.PricePerGram
	}
	if p.MinOrderG != nil {
		s.MinOrderG = *p.MinOrderG
	}
	if p.StepG != nil {
		s.StepG = *p.StepG
	}
	if p.IsListed != nil {
		s.IsListed = *p.IsListed
	}
	r.mu.Lock()
	r.skus[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// fakeLedger serializes Apply calls with a mutex, standing in for the
// serializable transaction the postgres repo runs.
type fakeLedger struct {
	mu    sync.Mutex
	skus  *fakeSKURepo
	moves []domain.StockMovement
}

func newFakeLedger(skus *fakeSKURepo) *fakeLedger { return &fakeLedger{skus: skus} }

func (l *fakeLedger) Apply(_ context.Context, skuID uuid.UUID, mutate func(s *domain.SKU) (*domain.StockMovement, error)) (*domain.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skus.mu.Lock()
	s, ok := l.skus.skus[skuID]
	l.skus.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	m, err := mutate(&cp)
	if err != nil {
		return nil, err
	}
	m.ID = uuid.New()
	m.SKUID = skuID
	m.CreatedAt = time.Now()
	l.skus.mu.Lock()
	*s = cp
	l.skus.mu.Unlock()
	l.moves = append(l.moves, *m)
	return m, nil
}

func (l *fakeLedger) ListBySKU(_ context.Context, skuID uuid.UUID) ([]domain.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.StockMovement
	for _, m := range l.moves {
		if m.SKUID == skuID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *fakeLedger) ListAll(_ context.Context, _, _ time.Time) ([]domain.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.StockMovement, len(l.moves))
	copy(out, l.moves)
	return out, nil
}

type fakeCouponRepo struct {
	coupons map[string]*domain.Coupon
}

func newFakeCouponRepo(coupons ...*domain.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{coupons: map[string]*domain.Coupon{}}
	for _, c := range coupons {
		c.Code = strings.ToUpper(c.Code)
		r.coupons[c.Code] = c
	}
	return r
}

func (r *fakeCouponRepo) Save(_ context.Context, c *domain.Coupon) error {
	c.Code = strings.ToUpper(c.Code)
	r.coupons[c.Code] = c
	return nil
}

func (r *fakeCouponRepo) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := r.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) Deactivate(_ context.Context, code string) error {
	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	return nil
}

type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   []*domain.Order
	failSave error
}

func (r *fakeOrderRepo) Save(_ context.Context, o *domain.Order) error {
	if r.failSave != nil {
		return r.failSave
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) CountByCoupon(_ context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.CouponCode == code && o.Status != domain.OrderStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) CountByCouponAndEmail(_ context.Context, code, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.CouponCode == code && strings.EqualFold(o.Email, email) && o.Status != domain.OrderStatusCancelled {
			n++
		}
	}
	return n, nil
}

type fakeMatrixRepo struct {
	entries []domain.PriceMatrixEntry
}

func (r *fakeMatrixRepo) Upsert(_ context.Context, e *domain.PriceMatrixEntry) error {
	for i := range r.entries {
		if r.entries[i].Key() == e.Key() {
			r.entries[i].PricePerGram = e.PricePerGram
			r.entries[i].PriceUSDPerGram = e.PriceUSDPerGram
			return nil
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeMatrixRepo) FindByKey(_ context.Context, k domain.PriceMatrixKey) (*domain.PriceMatrixEntry, error) {
	for _, e := range r.entries {
		if e.Key() == k {
			cp := e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeMatrixRepo) FindByCategoryTierLength(_ context.Context, category, tier string, lengthCM int) ([]domain.PriceMatrixEntry, error) {
	var out []domain.PriceMatrixEntry
	for _, e := range r.entries {
		if e.Category == category && e.Tier == tier && e.LengthCM == lengthCM {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeMatrixRepo) List(_ context.Context, category string) ([]domain.PriceMatrixEntry, error) {
	var out []domain.PriceMatrixEntry
	for _, e := range r.entries {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeMatrixRepo) Patch(_ context.Context, id uuid.UUID, p domain.PriceMatrixPatch) (*domain.PriceMatrixEntry, error) {
	for i := range r.entries {
		if r.entries[i].ID == id {
			if p.PricePerGram != nil {
				r.entries[i].PricePerGram = *p.PricePerGram
			}
			if p.PriceUSDPerGram != nil {
				r.entries[i].PriceUSDPerGram = *p.PriceUSDPerGram
			}
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}
