package repository

import (
	"time"

	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ZoneStock is a per-zone aggregate used by reconciliation snapshots.
type ZoneStock struct {
	ProductID  uuid.UUID
	QuantityKg float64
}

// ProductStock is the POS-facing aggregate across lots of one product.
type ProductStock struct {
	ProductID  uuid.UUID `json:"product_id"`
	QuantityKg float64   `json:"quantity_kg"`
	TotalCost  float64   `json:"total_cost"`
}

type StockRepository interface {
	Create(lot *model.StockLot) error
	FindByID(orgID, id uuid.UUID) (*model.StockLot, error)
	FindAll(orgID uuid.UUID, zoneID, productID *uuid.UUID) ([]model.StockLot, error)
	Update(lot *model.StockLot) error

	// FindSellableLots returns open lots of a product in a zone ordered
	// earliest expiry first, then oldest first. Runs inside tx so the
	// caller can lock them.
	FindSellableLots(tx *gorm.DB, orgID, productID, zoneID uuid.UUID) ([]model.StockLot, error)
	AggregateByZone(tx *gorm.DB, orgID, zoneID uuid.UUID) ([]ZoneStock, error)
	AggregateByProduct(orgID uuid.UUID) ([]ProductStock, error)
	FindExpired(orgID uuid.UUID, asOf time.Time) ([]model.StockLot, error)

	RecordMovement(tx *gorm.DB, movement *model.StockMovement) error
	FindMovements(orgID uuid.UUID, lotID *uuid.UUID, limit int) ([]model.StockMovement, error)
	MovementSeries(orgID uuid.UUID, from, to time.Time) ([]MovementSeriesPoint, error)
}

// MovementSeriesPoint feeds the dashboard stock movement chart.
type MovementSeriesPoint struct {
	Date       string  `json:"date"`
	ProducedKg float64 `json:"produced_kg"`
	SoldKg     float64 `json:"sold_kg"`
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) Create(lot *model.StockLot) error {
	lot.RecalcTotalCost()
	return r.db.Create(lot).Error
}

func (r *stockRepo) FindByID(orgID, id uuid.UUID) (*model.StockLot, error) {
	var lot model.StockLot
	err := r.db.Preload("Product").Preload("Zone").
		First(&lot, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *stockRepo) FindAll(orgID uuid.UUID, zoneID, productID *uuid.UUID) ([]model.StockLot, error) {
	var lots []model.StockLot
	query := r.db.Preload("Product").Preload("Zone").
		Where("organization_id = ? AND quantity_kg > 0", orgID)
	if zoneID != nil {
		query = query.Where("zone_id = ?", *zoneID)
	}
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	}
	err := query.Order("created_at ASC").Find(&lots).Error
	return lots, err
}

func (r *stockRepo) Update(lot *model.StockLot) error {
	lot.RecalcTotalCost()
	return r.db.Save(lot).Error
}

func (r *stockRepo) FindSellableLots(tx *gorm.DB, orgID, productID, zoneID uuid.UUID) ([]model.StockLot, error) {
	if tx == nil {
		tx = r.db
	}
	var lots []model.StockLot
	err := tx.Set("gorm:query_option", "FOR UPDATE").
		Where("organization_id = ? AND product_id = ? AND zone_id = ? AND quantity_kg > 0", orgID, productID, zoneID).
		Order("expires_at ASC NULLS LAST, created_at ASC").
		Find(&lots).Error
	return lots, err
}

func (r *stockRepo) AggregateByZone(tx *gorm.DB, orgID, zoneID uuid.UUID) ([]ZoneStock, error) {
	if tx == nil {
		tx = r.db
	}
	var results []ZoneStock
	rows, err := tx.Model(&model.StockLot{}).
		Select("product_id, COALESCE(SUM(quantity_kg), 0) as quantity_kg").
		Where("organization_id = ? AND zone_id = ? AND quantity_kg > 0", orgID, zoneID).
		Group("product_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var zs ZoneStock
		if err := rows.Scan(&zs.ProductID, &zs.QuantityKg); err != nil {
			return nil, err
		}
		results = append(results, zs)
	}
	return results, nil
}

func (r *stockRepo) AggregateByProduct(orgID uuid.UUID) ([]ProductStock, error) {
	var results []ProductStock
	rows, err := r.db.Model(&model.StockLot{}).
		Select("product_id, COALESCE(SUM(quantity_kg), 0), COALESCE(SUM(total_cost), 0)").
		Where("organization_id = ? AND quantity_kg > 0", orgID).
		Group("product_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProductStock
		if err := rows.Scan(&ps.ProductID, &ps.QuantityKg, &ps.TotalCost); err != nil {
			return nil, err
		}
		results = append(results, ps)
	}
	return results, nil
}

func (r *stockRepo) FindExpired(orgID uuid.UUID, asOf time.Time) ([]model.StockLot, error) {
	var lots []model.StockLot
	err := r.db.Preload("Product").Preload("Zone").
		Where("organization_id = ? AND quantity_kg > 0 AND expires_at IS NOT NULL AND expires_at < ?", orgID, asOf).
		Find(&lots).Error
	return lots, err
}

func (r *stockRepo) RecordMovement(tx *gorm.DB, movement *model.StockMovement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(movement).Error
}

func (r *stockRepo) FindMovements(orgID uuid.UUID, lotID *uuid.UUID, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	query := r.db.Where("organization_id = ?", orgID).Order("created_at DESC")
	if lotID != nil {
		query = query.Where("stock_lot_id = ?", *lotID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&movements).Error
	return movements, err
}

func (r *stockRepo) MovementSeries(orgID uuid.UUID, from, to time.Time) ([]MovementSeriesPoint, error) {
	var results []MovementSeriesPoint

	rows, err := r.db.Model(&model.StockMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'production' THEN quantity_kg ELSE 0 END), 0) as produced_kg,
			COALESCE(SUM(CASE WHEN type = 'sale' THEN -quantity_kg ELSE 0 END), 0) as sold_kg
		`).
		Where("organization_id = ? AND created_at BETWEEN ? AND ?", orgID, from, to).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var point MovementSeriesPoint
		if err := rows.Scan(&point.Date, &point.ProducedKg, &point.SoldKg); err != nil {
			return nil, err
		}
		results = append(results, point)
	}
	return results, nil
}
