package handlers

import (
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
)

// ReportHandler renders tenant reports as .xlsx downloads.
type ReportHandler struct {
	DB *gorm.DB
}

func NewReportHandler(db *gorm.DB) *ReportHandler { return &ReportHandler{DB: db} }

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportRange parses from/to query params (YYYY-MM-DD), defaulting to the
// last 30 days. The upper bound is exclusive end-of-day.
func reportRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		to = t
	}
	return from, to.AddDate(0, 0, 1), nil
}

// Sales: GET /reports/sales.xlsx?from=...&to=...
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	from, to, err := reportRange(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_date_range", nil)
		return
	}

	var orders []models.Order
	err = scope.Tenant(tenantID).Apply(h.DB).
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderCompleted, from, to).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_orders", nil)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sales"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Order Number", "Date", "Type", "Subtotal", "Tax", "Service Charge", "Discount", "Total"}
	for i, hname := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hname)
	}

	var grand float64
	for row, o := range orders {
		values := []any{
			o.OrderNumber,
			o.CreatedAt.Format("2006-01-02 15:04"),
			string(o.Type),
			o.Subtotal,
			o.TaxAmount,
			o.ServiceCharge,
			o.DiscountAmount,
			o.Total,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
		grand += o.Total
	}
	totalRow := len(orders) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	f.SetCellValue(sheet, cell, "TOTAL")
	cell, _ = excelize.CoordinatesToCellName(8, totalRow)
	f.SetCellValue(sheet, cell, grand)

	name := fmt.Sprintf("sales_%s_%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := f.Write(w); err != nil {
		log.Errorf("sales report write failed: %v", err)
	}
}

// Inventory: GET /reports/inventory.xlsx
func (h *ReportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}

	var ingredients []models.Ingredient
	err := scope.Tenant(tenantID).Apply(h.DB).Order("name asc").Find(&ingredients).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_ingredients", nil)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Inventory"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Ingredient", "Unit", "Current Stock", "Minimum Stock", "Cost Per Unit", "Stock Value", "Low Stock"}
	for i, hname := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hname)
	}
	for row := range ingredients {
		ing := &ingredients[row]
		low := ""
		if ing.IsLowStock() {
			low = "YES"
		}
		values := []any{
			ing.Name,
			ing.Unit,
			ing.CurrentStock,
			ing.MinimumStock,
			ing.CostPerUnit,
			ing.CurrentStock * ing.CostPerUnit,
			low,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	name := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := f.Write(w); err != nil {
		log.Errorf("inventory report write failed: %v", err)
	}
}
