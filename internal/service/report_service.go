package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-meatflow/internal/cache"
	"go-meatflow/internal/costing"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
)

// reportTTL keeps dashboard polls cheap without letting reports drift far
// behind the ledger; every write-side service also invalidates explicitly.
const reportTTL = 60 * time.Second

type ReportService interface {
	SalesSummary(ctx context.Context, orgID uuid.UUID, from, to string) (*SalesSummaryReport, error)
	StockValuation(ctx context.Context, orgID uuid.UUID) (*StockValuationReport, error)
	CarcassYieldReport(ctx context.Context, orgID uuid.UUID, from, to time.Time) (*YieldReport, error)
	TopProducts(ctx context.Context, orgID uuid.UUID, from, to string, limit int) ([]TopProductRow, error)
	DashboardStats(ctx context.Context, orgID uuid.UUID) (*DashboardStats, error)
	MovementSeries(orgID uuid.UUID, days int) ([]repository.MovementSeriesPoint, error)
}

type SalesSummaryReport struct {
	From             string                         `json:"from"`
	To               string                         `json:"to"`
	TotalRevenue     float64                        `json:"total_revenue"`
	TransactionCount int                            `json:"transaction_count"`
	TotalWeightKg    float64                        `json:"total_weight_kg"`
	TotalTax         float64                        `json:"total_tax"`
	AverageSale      float64                        `json:"average_sale"`
	ByMethod         []repository.PaymentMethodTotal `json:"by_method"`
	ByDay            []DailySalesRow                `json:"by_day"`
}

type DailySalesRow struct {
	Date             string  `json:"date"`
	Revenue          float64 `json:"revenue"`
	TransactionCount int     `json:"transaction_count"`
	WeightKg         float64 `json:"weight_kg"`
}

type StockValuationReport struct {
	TotalQuantityKg float64             `json:"total_quantity_kg"`
	TotalValue      float64             `json:"total_value"`
	ByZone          []ZoneValuationRow  `json:"by_zone"`
	ByCategory      []CategoryValueRow  `json:"by_category"`
	LowStock        []LowStockRow       `json:"low_stock"`
}

type ZoneValuationRow struct {
	ZoneID     uuid.UUID `json:"zone_id"`
	ZoneName   string    `json:"zone_name"`
	QuantityKg float64   `json:"quantity_kg"`
	Value      float64   `json:"value"`
}

type CategoryValueRow struct {
	Category   string  `json:"category"`
	QuantityKg float64 `json:"quantity_kg"`
	Value      float64 `json:"value"`
}

// LowStockRow is a product running below its minimum, worst ratio first.
type LowStockRow struct {
	Product        model.ProductRef `json:"product"`
	CurrentKg      float64          `json:"current_kg"`
	MinimumStockKg float64          `json:"minimum_stock_kg"`
	Ratio          float64          `json:"ratio"` // current / minimum
}

type YieldReport struct {
	From            string           `json:"from"`
	To              string           `json:"to"`
	Carcasses       []CarcassYieldRow `json:"carcasses"`
	TotalInputKg    float64          `json:"total_input_kg"`
	TotalOutputKg   float64          `json:"total_output_kg"`
	TotalWasteKg    float64          `json:"total_waste_kg"`
	AverageYieldPct float64          `json:"average_yield_pct"`
	TotalRevenue    float64          `json:"total_revenue"`
	TotalMargin     float64          `json:"total_margin"`
}

type CarcassYieldRow struct {
	CarcassID     uuid.UUID `json:"carcass_id"`
	CarcassNumber string    `json:"carcass_number"`
	WeightKg      float64   `json:"weight_kg"`
	CostTotal     float64   `json:"cost_total"`
	CostPerKg     float64   `json:"cost_per_kg"`
	OutputKg      float64   `json:"output_kg"`
	WasteKg       float64   `json:"waste_kg"`
	YieldPercent  float64   `json:"yield_percent"`
	Revenue       float64   `json:"revenue"`
	Margin        float64   `json:"margin"`
	MarginPercent float64   `json:"margin_percent"`
}

type TopProductRow struct {
	Product  model.ProductRef `json:"product"`
	WeightKg float64          `json:"weight_kg"`
	Revenue  float64          `json:"revenue"`
}

type DashboardStats struct {
	TodayRevenue      float64 `json:"today_revenue"`
	TodayTransactions int     `json:"today_transactions"`
	TodayWeightKg     float64 `json:"today_weight_kg"`
	StockQuantityKg   float64 `json:"stock_quantity_kg"`
	StockValue        float64 `json:"stock_value"`
	LowStockCount     int     `json:"low_stock_count"`
	ActiveSessions    int     `json:"active_sessions"`
	PendingCarcasses  int     `json:"pending_carcasses"`
}

type reportService struct {
	saleRepo    repository.SaleRepository
	stockRepo   repository.StockRepository
	carcassRepo repository.CarcassRepository
	sessionRepo repository.SessionRepository
	productRepo repository.ProductRepository
	zoneRepo    repository.ZoneRepository
	reportCache cache.ReportCache
	log         *zap.Logger
}

func NewReportService(
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	carcassRepo repository.CarcassRepository,
	sessionRepo repository.SessionRepository,
	productRepo repository.ProductRepository,
	zoneRepo repository.ZoneRepository,
	reportCache cache.ReportCache,
	log *zap.Logger,
) ReportService {
	return &reportService{
		saleRepo:    saleRepo,
		stockRepo:   stockRepo,
		carcassRepo: carcassRepo,
		sessionRepo: sessionRepo,
		productRepo: productRepo,
		zoneRepo:    zoneRepo,
		reportCache: reportCache,
		log:         log.Named("report"),
	}
}

func (s *reportService) fromCache(ctx context.Context, orgID uuid.UUID, key string, out interface{}) bool {
	payload, ok, err := s.reportCache.Get(ctx, orgID.String(), key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(payload, out) == nil
}

func (s *reportService) toCache(ctx context.Context, orgID uuid.UUID, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.reportCache.Set(ctx, orgID.String(), key, payload, reportTTL); err != nil {
		s.log.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *reportService) SalesSummary(ctx context.Context, orgID uuid.UUID, from, to string) (*SalesSummaryReport, error) {
	key := fmt.Sprintf("sales_summary:%s:%s", from, to)
	var cached SalesSummaryReport
	if s.fromCache(ctx, orgID, key, &cached) {
		return &cached, nil
	}

	sales, err := s.saleRepo.FindCompletedByDateRange(orgID, from, to)
	if err != nil {
		return nil, err
	}

	report := &SalesSummaryReport{From: from, To: to}
	byDay := make(map[string]*DailySalesRow)
	var dayOrder []string
	for _, sale := range sales {
		report.TotalRevenue += sale.TotalAmount
		report.TransactionCount++
		report.TotalWeightKg += sale.TotalWeightKg
		report.TotalTax += sale.TaxAmount

		row, ok := byDay[sale.SaleDate]
		if !ok {
			row = &DailySalesRow{Date: sale.SaleDate}
			byDay[sale.SaleDate] = row
			dayOrder = append(dayOrder, sale.SaleDate)
		}
		row.Revenue += sale.TotalAmount
		row.TransactionCount++
		row.WeightKg += sale.TotalWeightKg
	}
	if report.TransactionCount > 0 {
		report.AverageSale = report.TotalRevenue / float64(report.TransactionCount)
	}

	sort.Strings(dayOrder)
	for _, date := range dayOrder {
		report.ByDay = append(report.ByDay, *byDay[date])
	}

	report.ByMethod, err = s.saleRepo.PaymentTotalsByMethod(orgID, from, to)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, orgID, key, report)
	return report, nil
}

func (s *reportService) StockValuation(ctx context.Context, orgID uuid.UUID) (*StockValuationReport, error) {
	const key = "stock_valuation"
	var cached StockValuationReport
	if s.fromCache(ctx, orgID, key, &cached) {
		return &cached, nil
	}

	lots, err := s.stockRepo.FindAll(orgID, nil, nil)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.FindAll(orgID)
	if err != nil {
		return nil, err
	}

	report := &StockValuationReport{}
	zoneRows := make(map[uuid.UUID]*ZoneValuationRow)
	categoryRows := make(map[string]*CategoryValueRow)
	perProductKg := make(map[uuid.UUID]float64)
	for _, lot := range lots {
		report.TotalQuantityKg += lot.QuantityKg
		report.TotalValue += lot.TotalCost
		perProductKg[lot.ProductID] += lot.QuantityKg

		zr, ok := zoneRows[lot.ZoneID]
		if !ok {
			zr = &ZoneValuationRow{ZoneID: lot.ZoneID}
			if lot.Zone != nil {
				zr.ZoneName = lot.Zone.Name
			}
			zoneRows[lot.ZoneID] = zr
		}
		zr.QuantityKg += lot.QuantityKg
		zr.Value += lot.TotalCost

		category := "uncategorized"
		if lot.Product != nil && lot.Product.Category != "" {
			category = lot.Product.Category
		}
		cr, ok := categoryRows[category]
		if !ok {
			cr = &CategoryValueRow{Category: category}
			categoryRows[category] = cr
		}
		cr.QuantityKg += lot.QuantityKg
		cr.Value += lot.TotalCost
	}

	for _, zr := range zoneRows {
		report.ByZone = append(report.ByZone, *zr)
	}
	sort.Slice(report.ByZone, func(i, j int) bool {
		return report.ByZone[i].ZoneName < report.ByZone[j].ZoneName
	})
	for _, cr := range categoryRows {
		report.ByCategory = append(report.ByCategory, *cr)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})

	// Products below their minimum, most depleted first.
	for i := range products {
		p := &products[i]
		if p.MinimumStockKg <= 0 {
			continue
		}
		current := perProductKg[p.ID]
		if current >= p.MinimumStockKg {
			continue
		}
		report.LowStock = append(report.LowStock, LowStockRow{
			Product:        p.Ref(),
			CurrentKg:      current,
			MinimumStockKg: p.MinimumStockKg,
			Ratio:          current / p.MinimumStockKg,
		})
	}
	sort.Slice(report.LowStock, func(i, j int) bool {
		if report.LowStock[i].Ratio != report.LowStock[j].Ratio {
			return report.LowStock[i].Ratio < report.LowStock[j].Ratio
		}
		return report.LowStock[i].Product.ID.String() < report.LowStock[j].Product.ID.String()
	})

	s.toCache(ctx, orgID, key, report)
	return report, nil
}

func (s *reportService) CarcassYieldReport(ctx context.Context, orgID uuid.UUID, from, to time.Time) (*YieldReport, error) {
	key := fmt.Sprintf("yield:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached YieldReport
	if s.fromCache(ctx, orgID, key, &cached) {
		return &cached, nil
	}

	carcasses, err := s.carcassRepo.FindByDateRange(orgID, from, to)
	if err != nil {
		return nil, err
	}

	report := &YieldReport{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}
	for _, c := range carcasses {
		report.Carcasses = append(report.Carcasses, CarcassYieldRow{
			CarcassID:     c.ID,
			CarcassNumber: c.CarcassNumber,
			WeightKg:      c.WeightKg,
			CostTotal:     c.CostTotal,
			CostPerKg:     c.CostPerKg,
			OutputKg:      c.TotalOutputKg,
			WasteKg:       c.WasteKg,
			YieldPercent:  c.YieldPercentage,
			Revenue:       c.TotalRevenue,
			Margin:        c.Margin,
			MarginPercent: c.MarginPercent,
		})
		report.TotalInputKg += c.WeightKg
		report.TotalOutputKg += c.TotalOutputKg
		report.TotalWasteKg += c.WasteKg
		report.TotalRevenue += c.TotalRevenue
		report.TotalMargin += c.Margin
	}
	report.AverageYieldPct = costing.YieldPercent(report.TotalOutputKg, report.TotalWasteKg, report.TotalInputKg)

	s.toCache(ctx, orgID, key, report)
	return report, nil
}

func (s *reportService) TopProducts(ctx context.Context, orgID uuid.UUID, from, to string, limit int) ([]TopProductRow, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("top_products:%s:%s:%d", from, to, limit)
	var cached []TopProductRow
	if s.fromCache(ctx, orgID, key, &cached) {
		return cached, nil
	}

	rows, err := s.saleRepo.RevenueByProduct(orgID, from, to)
	if err != nil {
		return nil, err
	}

	// Highest revenue first; equal revenue is ordered by product id so the
	// ranking is stable across runs.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].ProductID.String() < rows[j].ProductID.String()
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	products, err := s.productRepo.FindAll(orgID)
	if err != nil {
		return nil, err
	}
	refs := make(map[uuid.UUID]model.ProductRef, len(products))
	for i := range products {
		refs[products[i].ID] = products[i].Ref()
	}

	result := make([]TopProductRow, 0, len(rows))
	for _, row := range rows {
		ref, ok := refs[row.ProductID]
		if !ok {
			ref = model.ProductRef{ID: row.ProductID}
		}
		result = append(result, TopProductRow{
			Product:  ref,
			WeightKg: row.WeightKg,
			Revenue:  row.Revenue,
		})
	}

	s.toCache(ctx, orgID, key, result)
	return result, nil
}

func (s *reportService) DashboardStats(ctx context.Context, orgID uuid.UUID) (*DashboardStats, error) {
	const key = "dashboard_stats"
	var cached DashboardStats
	if s.fromCache(ctx, orgID, key, &cached) {
		return &cached, nil
	}

	today := time.Now().Format("2006-01-02")
	sales, err := s.saleRepo.FindCompletedByDateRange(orgID, today, today)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{}
	for _, sale := range sales {
		stats.TodayRevenue += sale.TotalAmount
		stats.TodayTransactions++
		stats.TodayWeightKg += sale.TotalWeightKg
	}

	valuation, err := s.StockValuation(ctx, orgID)
	if err != nil {
		return nil, err
	}
	stats.StockQuantityKg = valuation.TotalQuantityKg
	stats.StockValue = valuation.TotalValue
	stats.LowStockCount = len(valuation.LowStock)

	active, err := s.sessionRepo.FindAll(orgID, string(model.SessionActive))
	if err != nil {
		return nil, err
	}
	stats.ActiveSessions = len(active)

	pending, err := s.carcassRepo.FindAll(orgID, string(model.CarcassPending))
	if err != nil {
		return nil, err
	}
	stats.PendingCarcasses = len(pending)

	s.toCache(ctx, orgID, key, stats)
	return stats, nil
}

func (s *reportService) MovementSeries(orgID uuid.UUID, days int) ([]repository.MovementSeriesPoint, error) {
	if days <= 0 {
		days = 7
	}
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	return s.stockRepo.MovementSeries(orgID, from, to)
}
