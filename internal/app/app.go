package app

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/tiendahair/internal/adapters/alerts"
	"github.com/phenrril/tiendahair/internal/adapters/httpserver"
	"github.com/phenrril/tiendahair/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendahair/internal/domain"
	"github.com/phenrril/tiendahair/internal/usecase"
)

type App struct {
	DB         *gorm.DB
	SKUs       domain.SKURepo
	Matrix     domain.PriceMatrixRepo
	Coupons    domain.CouponRepo
	Orders     domain.OrderRepo
	PricingUC  *usecase.PricingUC
	QuoteUC    *usecase.QuoteUC
	CouponUC   *usecase.CouponUC
	LedgerUC   *usecase.LedgerUC
	CheckoutUC *usecase.CheckoutUC
	FXRate     decimal.Decimal
}

func NewApp(db *gorm.DB) (*App, error) {
	skuRepo := postgres.NewSKURepo(db)
	matrixRepo := postgres.NewPriceMatrixRepo(db)
	couponRepo := postgres.NewCouponRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)

	// tasa de cambio inyectada, solo lectura
	fxRate := decimal.Zero
	if raw := strings.TrimSpace(os.Getenv("FX_RATE_USD")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil || !v.IsPositive() {
			log.Warn().Str("fx_rate_usd", raw).Msg("invalid FX_RATE_USD, USD prices disabled")
		} else {
			fxRate = v
		}
	}

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	}

	cooldown := 30 * time.Minute
	if raw := os.Getenv("ALERT_COOLDOWN_MIN"); raw != "" {
		if mins, err := strconv.Atoi(raw); err == nil && mins > 0 {
			cooldown = time.Duration(mins) * time.Minute
		}
	}
	threshold := 100
	if raw := os.Getenv("LOW_STOCK_THRESHOLD_G"); raw != "" {
		if g, err := strconv.Atoi(raw); err == nil && g >= 0 {
			threshold = g
		}
	}

	couponUC := &usecase.CouponUC{Coupons: couponRepo, Orders: orderRepo}
	quoteUC := &usecase.QuoteUC{SKUs: skuRepo, Coupons: couponUC}
	pricingUC := &usecase.PricingUC{Matrix: matrixRepo}
	ledgerUC := &usecase.LedgerUC{
		Ledger:             ledgerRepo,
		SKUs:               skuRepo,
		Alerts:             alerts.New(rdb, cooldown),
		LowStockThresholdG: threshold,
	}
	checkoutUC := &usecase.CheckoutUC{Quotes: quoteUC, Ledger: ledgerUC, Orders: orderRepo}

	return &App{
		DB:         db,
		SKUs:       skuRepo,
		Matrix:     matrixRepo,
		Coupons:    couponRepo,
		Orders:     orderRepo,
		PricingUC:  pricingUC,
		QuoteUC:    quoteUC,
		CouponUC:   couponUC,
		LedgerUC:   ledgerUC,
		CheckoutUC: checkoutUC,
		FXRate:     fxRate,
	}, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.SKUs, a.Matrix, a.Coupons, a.PricingUC, a.QuoteUC, a.CouponUC, a.LedgerUC, a.CheckoutUC, a.FXRate)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.SKU{}, &domain.StockMovement{}, &domain.PriceMatrixEntry{},
		&domain.Coupon{}, &domain.Order{}, &domain.OrderItem{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_sku_created ON stock_movements (sku_id, created_at)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_coupon_code ON orders (coupon_code)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_price_matrix_key ON price_matrix_entries (category, tier, shade_range_start, shade_range_end, length_cm)").Error

	return nil
}
