package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/tiendahair/internal/domain"
)

func bulkSKU(code string, available, minOrder, step int, price string) *domain.SKU {
	return &domain.SKU{
		Code:           code,
		Category:       "natural",
		Tier:           "standard",
		LengthCM:       60,
		SaleMode:       domain.SaleModeBulk,
		PricePerGram:   decimal.RequireFromString(price),
		AvailableGrams: available,
		MinOrderG:      minOrder,
		StepG:          step,
		InStock:        available > 0,
		IsListed:       true,
	}
}

func pieceSKU(code string, weight int, price string, soldOut bool) *domain.SKU {
	return &domain.SKU{
		Code:         code,
		Category:     "natural",
		Tier:         "premium",
		LengthCM:     70,
		SaleMode:     domain.SaleModePiece,
		PricePerGram: decimal.RequireFromString(price),
		WeightTotalG: weight,
		SoldOut:      soldOut,
		InStock:      !soldOut && weight > 0,
		IsListed:     true,
	}
}

func newQuoteUC(skus *fakeSKURepo) *QuoteUC {
	return &QuoteUC{
		SKUs:    skus,
		Coupons: &CouponUC{Coupons: newFakeCouponRepo(), Orders: &fakeOrderRepo{}},
	}
}

func TestQuoteBulkIncrementAndStock(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	uc := newQuoteUC(skus)

	// 37 g no es múltiplo de 5
	q, err := uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NAT-60-T2", Grams: 37},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.LineErrInvalidIncrement, q.Lines[0].Err)

	// 505 g supera los 500 disponibles
	q, err = uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NAT-60-T2", Grams: 505},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.LineErrInsufficientStock, q.Lines[0].Err)

	// por debajo del mínimo
	q, err = uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NAT-60-T2", Grams: 5},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.LineErrInvalidIncrement, q.Lines[0].Err)
}

func TestQuoteLineTotal(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	uc := newQuoteUC(skus)

	q, err := uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NAT-60-T2", Grams: 100},
	}})
	require.NoError(t, err)
	line := q.Lines[0]
	require.Empty(t, line.Err)
	require.True(t, line.LineTotal.Equal(decimal.NewFromInt(1850)), "line total %s", line.LineTotal)
	require.True(t, line.AssemblyFee.Equal(decimal.NewFromInt(1200)), "assembly %s", line.AssemblyFee)
	require.True(t, line.LineGrandTotal.Equal(decimal.NewFromInt(3050)), "grand %s", line.LineGrandTotal)
	require.True(t, q.Subtotal.Equal(decimal.NewFromInt(1850)))
}

func TestQuoteEndingSurcharge(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	uc := newQuoteUC(skus)

	q, err := uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NAT-60-T2", Grams: 100, EndingCode: "keratina"},
	}})
	require.NoError(t, err)
	require.True(t, q.Lines[0].EndingFee.Equal(decimal.NewFromInt(2800)))
	require.True(t, q.Lines[0].LineGrandTotal.Equal(decimal.NewFromInt(5850)))
}

func TestQuotePieceWholeOnly(t *testing.T) {
	skus := newFakeSKURepo(
		pieceSKU("PZA-70-N1", 120, "25.00", false),
		pieceSKU("PZA-70-N2", 95, "25.00", true),
	)
	uc := newQuoteUC(skus)

	// grams 0 compra la pieza entera
	q, err := uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "PZA-70-N1", Grams: 0},
	}})
	require.NoError(t, err)
	line := q.Lines[0]
	require.Empty(t, line.Err)
	require.Equal(t, 120, line.Grams)
	require.True(t, line.LineTotal.Equal(decimal.NewFromInt(3000)))
	require.True(t, line.AssemblyFee.Equal(decimal.NewFromInt(2000)))

	// pedido parcial contra una pieza se rechaza
	q, err = uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "PZA-70-N1", Grams: 60},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.LineErrInvalidIncrement, q.Lines[0].Err)

	// pieza vendida
	q, err = uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "PZA-70-N2", Grams: 0},
	}})
	require.NoError(t, err)
	require.Equal(t, domain.LineErrSoldOut, q.Lines[0].Err)
}

func TestQuoteLineFailureDoesNotAbortSiblings(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	uc := newQuoteUC(skus)

	q, err := uc.Build(context.Background(), domain.QuoteRequest{Lines: []domain.LineRequest{
		{SKUCode: "NO-EXISTE", Grams: 50},
		{SKUCode: "NAT-60-T2", Grams: 37},
		{SKUCode: "NAT-60-T2", Grams: 100},
	}})
	require.NoError(t, err)
	require.Len(t, q.Lines, 3)
	require.Equal(t, domain.LineErrNotFound, q.Lines[0].Err)
	require.Equal(t, domain.LineErrInvalidIncrement, q.Lines[1].Err)
	require.Empty(t, q.Lines[2].Err)
	// sólo la línea válida suma
	require.True(t, q.Subtotal.Equal(decimal.NewFromInt(1850)))
	require.True(t, q.GrandTotal.Equal(decimal.NewFromInt(3050)))
}

func TestQuoteWithCoupon(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	coupons := newFakeCouponRepo(&domain.Coupon{
		Code:   "PELO10",
		Type:   domain.CouponPercentage,
		Value:  decimal.NewFromInt(10),
		Active: true,
	})
	uc := &QuoteUC{SKUs: skus, Coupons: &CouponUC{Coupons: coupons, Orders: &fakeOrderRepo{}}}

	q, err := uc.Build(context.Background(), domain.QuoteRequest{
		Lines:      []domain.LineRequest{{SKUCode: "NAT-60-T2", Grams: 100}},
		CouponCode: "pelo10",
	})
	require.NoError(t, err)
	require.Empty(t, q.Errors)
	// 10% de 3050
	require.True(t, q.Discount.Equal(decimal.NewFromInt(305)), "discount %s", q.Discount)
	require.True(t, q.GrandTotal.Equal(decimal.NewFromInt(2745)), "grand %s", q.GrandTotal)
}

func TestQuoteCouponFailureKeepsLines(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	past := time.Now().Add(-time.Hour)
	coupons := newFakeCouponRepo(&domain.Coupon{
		Code:       "VIEJO",
		Type:       domain.CouponPercentage,
		Value:      decimal.NewFromInt(10),
		Active:     true,
		ValidUntil: &past,
	})
	uc := &QuoteUC{SKUs: skus, Coupons: &CouponUC{Coupons: coupons, Orders: &fakeOrderRepo{}}}

	q, err := uc.Build(context.Background(), domain.QuoteRequest{
		Lines:      []domain.LineRequest{{SKUCode: "NAT-60-T2", Grams: 100}},
		CouponCode: "VIEJO",
	})
	require.NoError(t, err)
	require.Contains(t, q.Errors, "coupon_expired")
	require.Empty(t, q.Lines[0].Err)
	require.True(t, q.Discount.IsZero())
	require.True(t, q.GrandTotal.Equal(decimal.NewFromInt(3050)))
}

type brokenCouponRepo struct{ err error }

func (r *brokenCouponRepo) Save(context.Context, *domain.Coupon) error { return r.err }
func (r *brokenCouponRepo) FindByCode(context.Context, string) (*domain.Coupon, error) {
	return nil, r.err
}
func (r *brokenCouponRepo) Deactivate(context.Context, string) error { return r.err }

func TestQuoteCouponStorageFailurePropagates(t *testing.T) {
	skus := newFakeSKURepo(bulkSKU("NAT-60-T2", 500, 10, 5, "18.50"))
	repo := &brokenCouponRepo{err: errors.New("db down")}
	uc := &QuoteUC{SKUs: skus, Coupons: &CouponUC{Coupons: repo, Orders: &fakeOrderRepo{}}}

	// una falla de storage no se disfraza de cupón rechazado
	_, err := uc.Build(context.Background(), domain.QuoteRequest{
		Lines:      []domain.LineRequest{{SKUCode: "NAT-60-T2", Grams: 100}},
		CouponCode: "PELO10",
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNotFound)
	require.ErrorContains(t, err, "db down")
}

func TestQuoteEmptyCart(t *testing.T) {
	uc := newQuoteUC(newFakeSKURepo())
	_, err := uc.Build(context.Background(), domain.QuoteRequest{})
	require.ErrorIs(t, err, domain.ErrValidation)
}
