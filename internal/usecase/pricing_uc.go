package usecase

import (
	"context"
	"strings"

	"github.com/phenrril/tiendahair/internal/domain"
)

type PriceQuery struct {
	Category   string
	Tier       string
	LengthCM   int
	Shade      int
	RangeStart int
	RangeEnd   int
}

type ShadeRange struct {
	Start int
	End   int
}

// Shade-range derivation is a decision table: first rule whose category
// matches wins. Categories not listed fall through to shade bucketing.
type shadeRule struct {
	category string
	resolve  func(shade int) ShadeRange
}

var shadeRules = []shadeRule{
	{category: "color", resolve: func(int) ShadeRange { return ShadeRange{5, 10} }},
	{category: "nacional", resolve: func(int) ShadeRange { return ShadeRange{1, 4} }},
	{category: "", resolve: bucketShade},
}

func bucketShade(shade int) ShadeRange {
	switch {
	case shade <= 4:
		return ShadeRange{1, 4}
	case shade <= 7:
		return ShadeRange{5, 7}
	default:
		return ShadeRange{8, 10}
	}
}

// DeriveShadeRange maps a single shade code to the banded range that shares
// one price-matrix entry.
func DeriveShadeRange(category string, shade int) ShadeRange {
	cat := strings.ToLower(strings.TrimSpace(category))
	for _, r := range shadeRules {
		if r.category == "" || r.category == cat {
			return r.resolve(shade)
		}
	}
	return bucketShade(shade)
}

type PricingUC struct {
	Matrix domain.PriceMatrixRepo
}

// Resolve returns the matrix entry for the query. Lookup is an exact key
// match only; a missing entry is ErrNotFound, never approximated from a
// neighbouring length or tier.
func (uc *PricingUC) Resolve(ctx context.Context, q PriceQuery) (*domain.PriceMatrixEntry, error) {
	if q.Category == "" || q.Tier == "" || q.LengthCM <= 0 {
		return nil, domain.ErrValidation
	}

	if q.RangeStart > 0 || q.RangeEnd > 0 {
		if q.RangeStart <= 0 || q.RangeEnd < q.RangeStart {
			return nil, domain.ErrValidation
		}
		return uc.Matrix.FindByKey(ctx, domain.PriceMatrixKey{
			Category:        q.Category,
			Tier:            q.Tier,
			ShadeRangeStart: q.RangeStart,
			ShadeRangeEnd:   q.RangeEnd,
			LengthCM:        q.LengthCM,
		})
	}

	if q.Shade > 0 {
		rng := DeriveShadeRange(q.Category, q.Shade)
		return uc.Matrix.FindByKey(ctx, domain.PriceMatrixKey{
			Category:        q.Category,
			Tier:            q.Tier,
			ShadeRangeStart: rng.Start,
			ShadeRangeEnd:   rng.End,
			LengthCM:        q.LengthCM,
		})
	}

	// Neither shade nor range: only usable when the category/tier/length
	// combination implies exactly one range.
	entries, err := uc.Matrix.FindByCategoryTierLength(ctx, q.Category, q.Tier, q.LengthCM)
	if err != nil {
		return nil, err
	}
	switch len(entries) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return &entries[0], nil
	default:
		return nil, domain.ErrAmbiguousShadeRange
	}
}
