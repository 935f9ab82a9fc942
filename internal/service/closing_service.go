package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/cache"
	"go-meatflow/internal/costing"
	"go-meatflow/internal/metrics"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
)

// countEpsilon is the weight below which a count difference is treated as
// zero variance (scale noise, not a discrepancy).
const countEpsilon = 0.0001

// varianceReasons is the closed set a counter may pick from when the scale
// disagrees with the ledger.
var varianceReasons = map[string]bool{
	"wastage":         true,
	"theft":           true,
	"scale_error":     true,
	"recording_error": true,
	"transfer_error":  true,
	"sampling":        true,
	"other":           true,
}

type ClosingService interface {
	StartClosing(req *StartClosingRequest, actor Actor) (*model.DailyClosing, error)
	GetClosings(orgID uuid.UUID, status string, limit int) ([]model.DailyClosing, error)
	GetClosingByID(orgID, id uuid.UUID) (*model.DailyClosing, error)

	RecordStockCountItem(orgID, itemID uuid.UUID, req *RecordCountRequest, actor Actor) (*model.StockCountItem, error)
	CompleteStockCount(orgID, stockCountID uuid.UUID, actor Actor) (*model.StockCount, error)
	RecordCashCount(orgID, cashCountID uuid.UUID, req *RecordCashCountRequest, actor Actor) (*model.CashCount, error)
	CompleteClosing(orgID, closingID uuid.UUID, notes string, actor Actor) (*model.DailyClosing, error)
}

type StartClosingRequest struct {
	ClosingDate string `json:"closing_date"` // YYYY-MM-DD, defaults to today
	Notes       string `json:"notes"`
}

type RecordCountRequest struct {
	ActualKg       float64 `json:"actual_kg" validate:"gte=0"`
	VarianceReason string  `json:"variance_reason"`
	VarianceNotes  string  `json:"variance_notes"`
	Version        int     `json:"version"`
}

type RecordCashCountRequest struct {
	CountedTotal float64 `json:"counted_total" validate:"gte=0"`
	Notes        string  `json:"notes"`
}

type closingService struct {
	closingRepo  repository.ClosingRepository
	saleRepo     repository.SaleRepository
	stockRepo    repository.StockRepository
	zoneRepo     repository.ZoneRepository
	currencyRepo repository.CurrencyRepository
	db           *gorm.DB
	reportCache  cache.ReportCache
	log          *zap.Logger
}

func NewClosingService(
	closingRepo repository.ClosingRepository,
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	zoneRepo repository.ZoneRepository,
	currencyRepo repository.CurrencyRepository,
	db *gorm.DB,
	reportCache cache.ReportCache,
	log *zap.Logger,
) ClosingService {
	return &closingService{
		closingRepo:  closingRepo,
		saleRepo:     saleRepo,
		stockRepo:    stockRepo,
		zoneRepo:     zoneRepo,
		currencyRepo: currencyRepo,
		db:           db,
		reportCache:  reportCache,
		log:          log.Named("closing"),
	}
}

func (s *closingService) StartClosing(req *StartClosingRequest, actor Actor) (*model.DailyClosing, error) {
	if req == nil {
		req = &StartClosingRequest{}
	}
	date := req.ClosingDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperr.Validation("closing_date must be YYYY-MM-DD")
	}

	var closingID uuid.UUID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. One closing per organization per date
		if existing, err := s.closingRepo.FindByDate(tx, actor.OrganizationID, date); err == nil && existing != nil {
			return apperr.Conflict("a closing for %s already exists", date)
		}

		// 2. Freeze the day's trade numbers
		type dayTotals struct {
			Total  float64
			Count  int64
			Weight float64
		}
		var day dayTotals
		if err := tx.Model(&model.Sale{}).
			Select("COALESCE(SUM(total_amount),0) as total, COUNT(*) as count, COALESCE(SUM(total_weight_kg),0) as weight").
			Where("organization_id = ? AND sale_date = ? AND status = ?", actor.OrganizationID, date, model.SaleCompleted).
			Scan(&day).Error; err != nil {
			return err
		}

		closing := &model.DailyClosing{
			ClosingDate:       date,
			Status:            model.ClosingInProgress,
			StartedAt:         time.Now(),
			StartedBy:         actor.UserID,
			TotalSales:        day.Total,
			TransactionCount:  int(day.Count),
			TotalWeightSoldKg: day.Weight,
			Notes:             req.Notes,
		}
		closing.OrganizationID = actor.OrganizationID
		closing.CreatedBy = actor.UserID.String()
		closing.UpdatedBy = actor.UserID.String()

		// 3. Snapshot expected stock per active zone
		zones, err := s.zoneRepo.FindActiveInTx(tx, actor.OrganizationID)
		if err != nil {
			return err
		}
		for _, zone := range zones {
			rows, err := s.stockRepo.AggregateByZone(tx, actor.OrganizationID, zone.ID)
			if err != nil {
				return err
			}

			count := model.StockCount{
				ZoneID:     zone.ID,
				Status:     model.StockCountPending,
				TotalItems: len(rows),
			}
			count.CreatedBy = actor.UserID.String()
			count.UpdatedBy = actor.UserID.String()
			for _, row := range rows {
				item := model.StockCountItem{
					ProductID:  row.ProductID,
					ExpectedKg: row.QuantityKg,
				}
				item.CreatedBy = actor.UserID.String()
				item.UpdatedBy = actor.UserID.String()
				count.ExpectedTotalKg += row.QuantityKg
				count.Items = append(count.Items, item)
			}
			closing.ExpectedStockKg += count.ExpectedTotalKg
			closing.StockCounts = append(closing.StockCounts, count)
		}

		// 4. Snapshot expected cash per active currency
		currencies, err := s.currencyRepo.FindActiveInTx(tx, actor.OrganizationID)
		if err != nil {
			return err
		}
		for _, currency := range currencies {
			cashSales, err := s.saleRepo.CashSalesForDay(tx, actor.OrganizationID, date, currency.Code)
			if err != nil {
				return err
			}
			cash := model.CashCount{
				CurrencyCode:  currency.Code,
				OpeningFloat:  currency.OpeningFloat,
				CashSales:     cashSales,
				ExpectedTotal: currency.OpeningFloat + cashSales,
			}
			cash.CreatedBy = actor.UserID.String()
			cash.UpdatedBy = actor.UserID.String()
			closing.CashCounts = append(closing.CashCounts, cash)
		}

		if err := s.closingRepo.CreateInTx(tx, closing); err != nil {
			return err
		}
		closingID = closing.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("daily closing started", zap.String("closing_date", date))
	return s.closingRepo.FindByID(actor.OrganizationID, closingID)
}

func (s *closingService) GetClosings(orgID uuid.UUID, status string, limit int) ([]model.DailyClosing, error) {
	return s.closingRepo.FindAll(orgID, status, limit)
}

func (s *closingService) GetClosingByID(orgID, id uuid.UUID) (*model.DailyClosing, error) {
	closing, err := s.closingRepo.FindByID(orgID, id)
	if err != nil {
		return nil, apperr.NotFound("closing not found")
	}
	return closing, nil
}

// loadOpenClosingFor resolves a stock count's parent closing and checks it is
// still open for edits.
func (s *closingService) loadOpenClosingFor(orgID, closingID uuid.UUID) (*model.DailyClosing, error) {
	closing, err := s.closingRepo.FindByID(orgID, closingID)
	if err != nil {
		return nil, apperr.NotFound("closing not found")
	}
	if closing.Status != model.ClosingInProgress {
		return nil, apperr.InvalidState("closing for %s is already %s", closing.ClosingDate, closing.Status)
	}
	return closing, nil
}

func (s *closingService) RecordStockCountItem(orgID, itemID uuid.UUID, req *RecordCountRequest, actor Actor) (*model.StockCountItem, error) {
	if req.ActualKg < 0 {
		return nil, apperr.Validation("actual_kg must not be negative")
	}

	item, err := s.closingRepo.FindStockCountItem(itemID)
	if err != nil {
		return nil, apperr.NotFound("stock count item not found")
	}
	count, err := s.closingRepo.FindStockCount(item.StockCountID)
	if err != nil {
		return nil, apperr.NotFound("stock count not found")
	}
	if count.Status != model.StockCountPending {
		return nil, apperr.InvalidState("stock count is already completed")
	}
	if _, err := s.loadOpenClosingFor(orgID, count.DailyClosingID); err != nil {
		return nil, err
	}

	// A real discrepancy must carry an explanation; "I don't know" is not an
	// acceptable ledger entry.
	variance := costing.Variance(req.ActualKg, item.ExpectedKg)
	if math.Abs(variance) > countEpsilon {
		if req.VarianceReason == "" {
			return nil, apperr.Validation("variance_reason is required when the counted weight differs from the expected weight")
		}
		if !varianceReasons[req.VarianceReason] {
			return nil, apperr.Validation("unknown variance_reason %q", req.VarianceReason)
		}
	}

	now := time.Now()
	actual := req.ActualKg
	item.ActualKg = &actual
	item.IsCounted = true
	item.CountedAt = &now
	item.CountedBy = &actor.UserID
	item.VarianceKg = variance
	item.VariancePercent = costing.VariancePercent(req.ActualKg, item.ExpectedKg)
	item.VarianceReason = req.VarianceReason
	item.VarianceNotes = req.VarianceNotes
	item.UpdatedBy = actor.UserID.String()

	rows, err := s.closingRepo.UpdateStockCountItem(item, req.Version)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperr.Conflict("stock count item was counted by someone else, refresh and retry")
	}
	item.Version = req.Version + 1

	// Refresh the per-zone aggregates from the item rows.
	if err := s.recalcStockCount(count.ID, actor); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *closingService) recalcStockCount(stockCountID uuid.UUID, actor Actor) error {
	count, err := s.closingRepo.FindStockCount(stockCountID)
	if err != nil {
		return err
	}

	counted := 0
	actualTotal := 0.0
	varianceTotal := 0.0
	for _, item := range count.Items {
		if !item.IsCounted {
			continue
		}
		counted++
		if item.ActualKg != nil {
			actualTotal += *item.ActualKg
		}
		varianceTotal += item.VarianceKg
	}

	count.ItemsCounted = counted
	count.ActualTotalKg = actualTotal
	count.VarianceKg = varianceTotal
	count.UpdatedBy = actor.UserID.String()
	return s.closingRepo.UpdateStockCount(count)
}

func (s *closingService) CompleteStockCount(orgID, stockCountID uuid.UUID, actor Actor) (*model.StockCount, error) {
	count, err := s.closingRepo.FindStockCount(stockCountID)
	if err != nil {
		return nil, apperr.NotFound("stock count not found")
	}
	if count.Status != model.StockCountPending {
		return nil, apperr.InvalidState("stock count is already completed")
	}
	if _, err := s.loadOpenClosingFor(orgID, count.DailyClosingID); err != nil {
		return nil, err
	}

	uncounted, err := s.closingRepo.CountUncountedItems(stockCountID)
	if err != nil {
		return nil, err
	}
	if uncounted > 0 {
		return nil, apperr.InvalidState("%d items have not been counted yet", uncounted)
	}

	now := time.Now()
	count.Status = model.StockCountCompleted
	count.CompletedAt = &now
	count.CompletedBy = &actor.UserID
	count.UpdatedBy = actor.UserID.String()
	if err := s.closingRepo.UpdateStockCount(count); err != nil {
		return nil, err
	}
	return count, nil
}

func (s *closingService) RecordCashCount(orgID, cashCountID uuid.UUID, req *RecordCashCountRequest, actor Actor) (*model.CashCount, error) {
	if req.CountedTotal < 0 {
		return nil, apperr.Validation("counted_total must not be negative")
	}

	cash, err := s.closingRepo.FindCashCount(cashCountID)
	if err != nil {
		return nil, apperr.NotFound("cash count not found")
	}
	if _, err := s.loadOpenClosingFor(orgID, cash.DailyClosingID); err != nil {
		return nil, err
	}

	now := time.Now()
	cash.CountedTotal = req.CountedTotal
	cash.Variance = costing.Variance(req.CountedTotal, cash.ExpectedTotal)
	cash.CountedAt = &now
	cash.CountedBy = &actor.UserID
	cash.Notes = req.Notes
	cash.UpdatedBy = actor.UserID.String()
	if err := s.closingRepo.UpdateCashCount(cash); err != nil {
		return nil, err
	}
	return cash, nil
}

func (s *closingService) CompleteClosing(orgID, closingID uuid.UUID, notes string, actor Actor) (*model.DailyClosing, error) {
	closing, err := s.loadOpenClosingFor(orgID, closingID)
	if err != nil {
		return nil, err
	}

	// Every zone counted, every till counted. Nothing completes half-checked.
	for _, count := range closing.StockCounts {
		if count.Status != model.StockCountCompleted {
			return nil, apperr.Precondition("stock count for zone %s is not completed", count.ZoneID)
		}
	}
	for _, cash := range closing.CashCounts {
		if cash.CountedAt == nil {
			return nil, apperr.Precondition("cash count for %s has not been recorded", cash.CurrencyCode)
		}
	}

	actualStock := 0.0
	for _, count := range closing.StockCounts {
		actualStock += count.ActualTotalKg
	}

	now := time.Now()
	closing.ActualStockKg = actualStock
	closing.StockVarianceKg = costing.Variance(actualStock, closing.ExpectedStockKg)
	closing.StockVariancePercent = costing.VariancePercent(actualStock, closing.ExpectedStockKg)
	closing.Status = model.ClosingCompleted
	closing.CompletedAt = &now
	closing.CompletedBy = &actor.UserID
	if notes != "" {
		closing.Notes = notes
	}
	closing.UpdatedBy = actor.UserID.String()
	if err := s.closingRepo.Update(closing); err != nil {
		return nil, err
	}

	metrics.ClosingsCompleted.Inc()
	_ = s.reportCache.InvalidateOrg(context.Background(), orgID.String())
	s.log.Info("daily closing completed",
		zap.String("closing_date", closing.ClosingDate),
		zap.Float64("stock_variance_kg", closing.StockVarianceKg))

	return closing, nil
}
