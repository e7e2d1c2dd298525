package httpserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/tiendahair/internal/domain"
)

// POST /admin/import/pricematrix
// XLSX con columnas: categoria | tier | tono_desde | tono_hasta | largo_cm | precio_gramo
func (s *Server) handleImportPriceMatrix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file", 400)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, 8<<20))
	if err != nil {
		http.Error(w, "read", 400)
		return
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "xlsx", 400)
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		http.Error(w, "xlsx", 400)
		return
	}

	imported, skipped := 0, 0
	for i, row := range rows {
		if i == 0 {
			continue // encabezado
		}
		if len(row) < 6 {
			skipped++
			continue
		}
		category := strings.ToLower(strings.TrimSpace(row[0]))
		tier := strings.ToLower(strings.TrimSpace(row[1]))
		from, err1 := strconv.Atoi(strings.TrimSpace(row[2]))
		to, err2 := strconv.Atoi(strings.TrimSpace(row[3]))
		length, err3 := strconv.Atoi(strings.TrimSpace(row[4]))
		price, err4 := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row[5]), ",", "."))
		if category == "" || tier == "" || err1 != nil || err2 != nil || err3 != nil || err4 != nil ||
			from <= 0 || to < from || length <= 0 || !price.IsPositive() {
			skipped++
			continue
		}
		e := &domain.PriceMatrixEntry{
			Category:        category,
			Tier:            tier,
			ShadeRangeStart: from,
			ShadeRangeEnd:   to,
			LengthCM:        length,
			PricePerGram:    price,
		}
		if s.fxRate.IsPositive() {
			e.PriceUSDPerGram = price.Div(s.fxRate).Round(2)
		}
		if err := s.matrix.Upsert(r.Context(), e); err != nil {
			log.Warn().Err(err).Int("row", i+1).Msg("price matrix import row failed")
			skipped++
			continue
		}
		imported++
	}

	writeJSON(w, 200, map[string]int{"imported": imported, "skipped": skipped})
}

// GET /admin/export/movements?from=2026-01-01&to=2026-02-01
func (s *Server) handleExportMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "from", 400)
			return
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "to", 400)
			return
		}
		to = t
	}

	moves, err := s.ledger.Ledger.ListAll(r.Context(), from, to)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	// resolver códigos una sola vez por SKU
	codes := map[uuid.UUID]string{}
	for _, m := range moves {
		if _, ok := codes[m.SKUID]; ok {
			continue
		}
		sku, err := s.skus.FindByID(r.Context(), m.SKUID)
		if err != nil {
			codes[m.SKUID] = m.SKUID.String()
			continue
		}
		codes[m.SKUID] = sku.Code
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	headers := []string{"fecha", "sku", "tipo", "gramos", "saldo", "actor", "nota", "orden"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, m := range moves {
		rowN := i + 2
		order := ""
		if m.RefOrderID != nil {
			order = m.RefOrderID.String()
		}
		values := []any{
			m.CreatedAt.Format(time.RFC3339),
			codes[m.SKUID],
			string(m.Type),
			m.Grams,
			m.BalanceAfter,
			m.Actor,
			m.Note,
			order,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowN)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=movimientos-%s.xlsx", time.Now().Format("20060102")))
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("movements export failed")
	}
}
