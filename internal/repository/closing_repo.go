package repository

import (
	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClosingRepository interface {
	CreateInTx(tx *gorm.DB, closing *model.DailyClosing) error
	FindByID(orgID, id uuid.UUID) (*model.DailyClosing, error)
	FindByDate(tx *gorm.DB, orgID uuid.UUID, date string) (*model.DailyClosing, error)
	FindAll(orgID uuid.UUID, status string, limit int) ([]model.DailyClosing, error)
	Update(closing *model.DailyClosing) error

	FindStockCount(id uuid.UUID) (*model.StockCount, error)
	UpdateStockCount(count *model.StockCount) error
	FindStockCountItem(id uuid.UUID) (*model.StockCountItem, error)
	// UpdateStockCountItem writes the count only when the caller holds the
	// current version; returns rows updated.
	UpdateStockCountItem(item *model.StockCountItem, expectedVersion int) (int64, error)
	CountUncountedItems(stockCountID uuid.UUID) (int64, error)

	FindCashCount(id uuid.UUID) (*model.CashCount, error)
	UpdateCashCount(count *model.CashCount) error
}

type closingRepo struct {
	db *gorm.DB
}

func NewClosingRepo(db *gorm.DB) ClosingRepository {
	return &closingRepo{db}
}

func (r *closingRepo) CreateInTx(tx *gorm.DB, closing *model.DailyClosing) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(closing).Error
}

func (r *closingRepo) FindByID(orgID, id uuid.UUID) (*model.DailyClosing, error) {
	var closing model.DailyClosing
	err := r.db.Preload("StockCounts").Preload("StockCounts.Zone").
		Preload("StockCounts.Items").Preload("StockCounts.Items.Product").
		Preload("CashCounts").
		First(&closing, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &closing, nil
}

func (r *closingRepo) FindByDate(tx *gorm.DB, orgID uuid.UUID, date string) (*model.DailyClosing, error) {
	if tx == nil {
		tx = r.db
	}
	var closing model.DailyClosing
	err := tx.First(&closing, "organization_id = ? AND closing_date = ?", orgID, date).Error
	if err != nil {
		return nil, err
	}
	return &closing, nil
}

func (r *closingRepo) FindAll(orgID uuid.UUID, status string, limit int) ([]model.DailyClosing, error) {
	var closings []model.DailyClosing
	query := r.db.Where("organization_id = ?", orgID).Order("closing_date DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 30
	}
	err := query.Limit(limit).Find(&closings).Error
	return closings, err
}

func (r *closingRepo) Update(closing *model.DailyClosing) error {
	return r.db.Omit("StockCounts", "CashCounts").Save(closing).Error
}

func (r *closingRepo) FindStockCount(id uuid.UUID) (*model.StockCount, error) {
	var count model.StockCount
	err := r.db.Preload("Zone").Preload("Items").Preload("Items.Product").
		First(&count, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &count, nil
}

func (r *closingRepo) UpdateStockCount(count *model.StockCount) error {
	return r.db.Omit("Items", "Zone").Save(count).Error
}

func (r *closingRepo) FindStockCountItem(id uuid.UUID) (*model.StockCountItem, error) {
	var item model.StockCountItem
	if err := r.db.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *closingRepo) UpdateStockCountItem(item *model.StockCountItem, expectedVersion int) (int64, error) {
	result := r.db.Model(&model.StockCountItem{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]interface{}{
			"actual_kg":        item.ActualKg,
			"is_counted":       item.IsCounted,
			"counted_at":       item.CountedAt,
			"counted_by":       item.CountedBy,
			"variance_kg":      item.VarianceKg,
			"variance_percent": item.VariancePercent,
			"variance_reason":  item.VarianceReason,
			"variance_notes":   item.VarianceNotes,
			"version":          expectedVersion + 1,
		})
	return result.RowsAffected, result.Error
}

func (r *closingRepo) CountUncountedItems(stockCountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.StockCountItem{}).
		Where("stock_count_id = ? AND is_counted = ?", stockCountID, false).
		Count(&count).Error
	return count, err
}

func (r *closingRepo) FindCashCount(id uuid.UUID) (*model.CashCount, error) {
	var count model.CashCount
	if err := r.db.First(&count, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &count, nil
}

func (r *closingRepo) UpdateCashCount(count *model.CashCount) error {
	return r.db.Save(count).Error
}
