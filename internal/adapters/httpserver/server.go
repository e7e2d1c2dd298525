package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendahair/internal/domain"
	"github.com/phenrril/tiendahair/internal/usecase"
)

type Server struct {
	mux *http.ServeMux

	skus        domain.SKURepo
	matrix      domain.PriceMatrixRepo
	couponsRepo domain.CouponRepo

	pricing  *usecase.PricingUC
	quotes   *usecase.QuoteUC
	coupons  *usecase.CouponUC
	ledger   *usecase.LedgerUC
	checkout *usecase.CheckoutUC

	fxRate   decimal.Decimal
	adminKey []byte
}

func New(
	skus domain.SKURepo,
	matrix domain.PriceMatrixRepo,
	couponsRepo domain.CouponRepo,
	pricing *usecase.PricingUC,
	quotes *usecase.QuoteUC,
	coupons *usecase.CouponUC,
	ledger *usecase.LedgerUC,
	checkout *usecase.CheckoutUC,
	fxRate decimal.Decimal,
) http.Handler {
	s := &Server{
		mux:         http.NewServeMux(),
		skus:        skus,
		matrix:      matrix,
		couponsRepo: couponsRepo,
		pricing:     pricing,
		quotes:      quotes,
		coupons:     coupons,
		ledger:      ledger,
		checkout:    checkout,
		fxRate:      fxRate,
	}

	key := os.Getenv("ADMIN_API_KEY")
	if key == "" {
		key = "dev-admin-key"
	}
	s.adminKey = []byte(key)

	s.routes()
	return Chain(s.mux,
		PublicRateLimit(map[string]int{
			"/api/quote":            15,
			"/api/checkout":         10,
			"/api/coupons/validate": 20,
		}),
		RateLimit(60),
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/quote", s.apiQuote)
	s.mux.HandleFunc("/api/checkout", s.apiCheckout)
	s.mux.HandleFunc("/api/coupons/validate", s.apiCouponValidate)
	s.mux.HandleFunc("/api/coupons", s.apiCoupons)
	s.mux.HandleFunc("/api/coupons/", s.apiCouponByCode)

	s.mux.HandleFunc("/api/skus", s.apiSKUs)
	s.mux.HandleFunc("/api/skus/", s.apiSKUByCode)

	s.mux.HandleFunc("/api/pricematrix", s.apiPriceMatrix)
	s.mux.HandleFunc("/api/pricematrix/", s.apiPriceMatrixByID)

	s.mux.HandleFunc("/api/stock/movements", s.apiMovements)
	s.mux.HandleFunc("/api/stock/reconcile", s.apiReconcile)

	s.mux.HandleFunc("/admin/import/pricematrix", s.handleImportPriceMatrix)
	s.mux.HandleFunc("/admin/export/movements", s.handleExportMovements)
}

// --- público ---

func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req domain.QuoteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	q, err := s.quotes.Build(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 200, q)
}

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req usecase.CheckoutRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	o, q, err := s.checkout.Confirm(r.Context(), req)
	if err != nil {
		// devolver la cotización para que el cliente vea qué línea falló
		if q != nil {
			writeJSON(w, errStatus(err), map[string]any{"error": err.Error(), "quote": q})
			return
		}
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 201, map[string]any{"order_id": o.ID, "total": o.Total, "quote": q})
}

func (s *Server) apiCouponValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Code        string          `json:"code"`
		OrderAmount decimal.Decimal `json:"order_amount"`
		Email       string          `json:"email"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	res, err := s.coupons.Validate(r.Context(), req.Code, req.OrderAmount, req.Email)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, 200, res)
}

// --- SKUs ---

func (s *Server) apiSKUs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		qv := r.URL.Query()
		f := domain.SKUFilter{
			Category: qv.Get("category"),
			Tier:     qv.Get("tier"),
			SaleMode: domain.SaleMode(qv.Get("sale_mode")),
		}
		if !s.isAdmin(r) {
			listed := true
			f.Listed = &listed
		}
		list, total, err := s.skus.List(r.Context(), f)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"skus": list, "total": total})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		s.createSKU(w, r)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) createSKU(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code            string          `json:"code"`
		Category        string          `json:"category"`
		Tier            string          `json:"tier"`
		Shade           int             `json:"shade"`
		ShadeRangeStart int             `json:"shade_range_start"`
		ShadeRangeEnd   int             `json:"shade_range_end"`
		LengthCM        int             `json:"length_cm"`
		SaleMode        domain.SaleMode `json:"sale_mode"`
		PricePerGram    decimal.Decimal `json:"price_per_gram"`
		MinOrderG       int             `json:"min_order_g"`
		StepG           int             `json:"step_g"`
		IsListed        *bool           `json:"is_listed"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	if req.Code == "" || req.Category == "" || req.Tier == "" || req.LengthCM <= 0 {
		http.Error(w, "datos", 400)
		return
	}
	if req.SaleMode != domain.SaleModeBulk && req.SaleMode != domain.SaleModePiece {
		http.Error(w, "sale_mode", 400)
		return
	}

	sku := &domain.SKU{
		ID:              uuid.New(),
		Code:            req.Code,
		Category:        strings.ToLower(strings.TrimSpace(req.Category)),
		Tier:            strings.ToLower(strings.TrimSpace(req.Tier)),
		Shade:           req.Shade,
		ShadeRangeStart: req.ShadeRangeStart,
		ShadeRangeEnd:   req.ShadeRangeEnd,
		LengthCM:        req.LengthCM,
		SaleMode:        req.SaleMode,
		PricePerGram:    req.PricePerGram,
		MinOrderG:       req.MinOrderG,
		StepG:           req.StepG,
		IsListed:        true,
	}
	if req.IsListed != nil {
		sku.IsListed = *req.IsListed
	}
	if sku.ShadeRangeStart == 0 && sku.Shade > 0 {
		rng := usecase.DeriveShadeRange(sku.Category, sku.Shade)
		sku.ShadeRangeStart, sku.ShadeRangeEnd = rng.Start, rng.End
	}

	// Sin precio explícito: se toma del price matrix al crear. El SKU queda
	// con ese precio aunque el matrix se edite después.
	if sku.PricePerGram.IsZero() {
		entry, err := s.pricing.Resolve(r.Context(), usecase.PriceQuery{
			Category:   sku.Category,
			Tier:       sku.Tier,
			LengthCM:   sku.LengthCM,
			Shade:      sku.Shade,
			RangeStart: sku.ShadeRangeStart,
			RangeEnd:   sku.ShadeRangeEnd,
		})
		if err != nil {
			s.writeErr(w, err)
			return
		}
		sku.PricePerGram = entry.PricePerGram
		sku.PriceUSDPerGram = entry.PriceUSDPerGram
	} else if s.fxRate.IsPositive() {
		sku.PriceUSDPerGram = sku.PricePerGram.Div(s.fxRate).Round(2)
	}

	if err := s.skus.Save(r.Context(), sku); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, 201, sku)
}

func (s *Server) apiSKUByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/skus/")
	if code == "" || strings.Contains(code, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		sku, err := s.skus.FindByCode(r.Context(), code)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		if !sku.IsListed && !s.isAdmin(r) {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, 200, sku)
	case http.MethodPatch:
		if !s.requireAdmin(w, r) {
			return
		}
		var req struct {
			Category     *string          `json:"category"`
			Tier         *string          `json:"tier"`
			Shade        *int             `json:"shade"`
			LengthCM     *int             `json:"length_cm"`
			PricePerGram *decimal.Decimal `json:"price_per_gram"`
			MinOrderG    *int             `json:"min_order_g"`
			StepG        *int             `json:"step_g"`
			IsListed     *bool            `json:"is_listed"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		sku, err := s.skus.Patch(r.Context(), code, domain.SKUPatch{
			Category:     req.Category,
			Tier:         req.Tier,
			Shade:        req.Shade,
			LengthCM:     req.LengthCM,
			PricePerGram: req.PricePerGram,
			MinOrderG:    req.MinOrderG,
			StepG:        req.StepG,
			IsListed:     req.IsListed,
		})
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 200, sku)
	default:
		http.Error(w, "method", 405)
	}
}

// --- price matrix ---

func (s *Server) apiPriceMatrix(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.matrix.List(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"entries": list})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var req struct {
			Category        string          `json:"category"`
			Tier            string          `json:"tier"`
			ShadeRangeStart int             `json:"shade_range_start"`
			ShadeRangeEnd   int             `json:"shade_range_end"`
			LengthCM        int             `json:"length_cm"`
			PricePerGram    decimal.Decimal `json:"price_per_gram"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if req.Category == "" || req.Tier == "" || req.LengthCM <= 0 ||
			req.ShadeRangeStart <= 0 || req.ShadeRangeEnd < req.ShadeRangeStart ||
			!req.PricePerGram.IsPositive() {
			http.Error(w, "datos", 400)
			return
		}
		e := &domain.PriceMatrixEntry{
			Category:        strings.ToLower(strings.TrimSpace(req.Category)),
			Tier:            strings.ToLower(strings.TrimSpace(req.Tier)),
			ShadeRangeStart: req.ShadeRangeStart,
			ShadeRangeEnd:   req.ShadeRangeEnd,
			LengthCM:        req.LengthCM,
			PricePerGram:    req.PricePerGram,
		}
		if s.fxRate.IsPositive() {
			e.PriceUSDPerGram = e.PricePerGram.Div(s.fxRate).Round(2)
		}
		if err := s.matrix.Upsert(r.Context(), e); err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 201, e)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiPriceMatrixByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/pricematrix/")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "id", 400)
		return
	}
	var req struct {
		PricePerGram *decimal.Decimal `json:"price_per_gram"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	p := domain.PriceMatrixPatch{PricePerGram: req.PricePerGram}
	if req.PricePerGram != nil && s.fxRate.IsPositive() {
		usd := req.PricePerGram.Div(s.fxRate).Round(2)
		p.PriceUSDPerGram = &usd
	}
	e, err := s.matrix.Patch(r.Context(), id, p)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, 200, e)
}

// --- coupons (admin) ---

func (s *Server) apiCoupons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	var req struct {
		Code           string          `json:"code"`
		Type           string          `json:"type"`
		Value          decimal.Decimal `json:"value"`
		MinOrderAmount decimal.Decimal `json:"min_order_amount"`
		MaxDiscount    decimal.Decimal `json:"max_discount"`
		MaxUses        int             `json:"max_uses"`
		MaxUsesPerUser int             `json:"max_uses_per_user"`
		ValidFrom      *time.Time      `json:"valid_from"`
		ValidUntil     *time.Time      `json:"valid_until"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	ct := domain.CouponType(strings.ToLower(req.Type))
	if req.Code == "" || (ct != domain.CouponPercentage && ct != domain.CouponFixed) || !req.Value.IsPositive() {
		http.Error(w, "datos", 400)
		return
	}
	c := &domain.Coupon{
		ID:             uuid.New(),
		Code:           req.Code,
		Type:           ct,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		Active:         true,
	}
	if err := s.couponsRepo.Save(r.Context(), c); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, 201, c)
}

func (s *Server) apiCouponByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/coupons/")
	if code == "" || code == "validate" || strings.Contains(code, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if err := s.couponsRepo.Deactivate(r.Context(), code); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(204)
}

// --- stock ---

func (s *Server) apiMovements(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		code := r.URL.Query().Get("sku")
		if code == "" {
			http.Error(w, "sku", 400)
			return
		}
		sku, err := s.skus.FindByCode(r.Context(), code)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		moves, err := s.ledger.Ledger.ListBySKU(r.Context(), sku.ID)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"sku": sku.Code, "movements": moves})
	case http.MethodPost:
		var req struct {
			SKUCode string `json:"sku_code"`
			Type    string `json:"type"`
			Grams   int    `json:"grams"`
			Actor   string `json:"actor"`
			Note    string `json:"note"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		sku, err := s.skus.FindByCode(r.Context(), req.SKUCode)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		mv, err := s.ledger.Apply(r.Context(), domain.MovementRequest{
			SKUID: sku.ID,
			Type:  domain.MovementType(strings.ToUpper(req.Type)),
			Grams: req.Grams,
			Actor: req.Actor,
			Note:  req.Note,
		})
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, 201, mv)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	code := r.URL.Query().Get("sku")
	if code == "" {
		http.Error(w, "sku", 400)
		return
	}
	sku, err := s.skus.FindByCode(r.Context(), code)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	rep, err := s.ledger.Reconcile(r.Context(), sku.ID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, 200, rep)
}

// --- helpers ---

func (s *Server) isAdmin(r *http.Request) bool {
	key := r.Header.Get("X-Admin-Key")
	return key != "" && secureCompare(key, string(s.adminKey))
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.isAdmin(r) {
		http.Error(w, "unauthorized", 401)
		return false
	}
	return true
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 404
	case errors.Is(err, domain.ErrValidation):
		return 400
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrInvalidIncrement):
		return 409
	case errors.Is(err, domain.ErrAmbiguousShadeRange),
		errors.Is(err, domain.ErrCouponInactive),
		errors.Is(err, domain.ErrCouponNotYetValid),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponMaxUses),
		errors.Is(err, domain.ErrCouponPerUserLimit),
		errors.Is(err, domain.ErrCouponMinOrder):
		return 422
	default:
		return 500
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}
