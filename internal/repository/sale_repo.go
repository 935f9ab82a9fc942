package repository

import (
	"time"

	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethodTotal aggregates payments for the sales summary report.
type PaymentMethodTotal struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"` // in base currency
	Count  int     `json:"count"`
}

// ProductRevenue aggregates sale items for the top products report.
type ProductRevenue struct {
	ProductID uuid.UUID `json:"product_id"`
	WeightKg  float64   `json:"weight_kg"`
	Revenue   float64   `json:"revenue"`
}

type SaleRepository interface {
	CreateInTx(tx *gorm.DB, sale *model.Sale) error
	FindByID(orgID, id uuid.UUID) (*model.Sale, error)
	FindAll(orgID uuid.UUID, date, status string, limit int) ([]model.Sale, error)
	FindCompletedByDateRange(orgID uuid.UUID, from, to string) ([]model.Sale, error)
	Update(sale *model.Sale) error

	PaymentTotalsByMethod(orgID uuid.UUID, from, to string) ([]PaymentMethodTotal, error)
	// CashSalesForDay totals completed cash tenders in one currency for the
	// reconciliation snapshot.
	CashSalesForDay(tx *gorm.DB, orgID uuid.UUID, date, currencyCode string) (float64, error)
	RevenueByProduct(orgID uuid.UUID, from, to string) ([]ProductRevenue, error)

	CreateHeldSale(held *model.HeldSale) error
	FindHeldSales(orgID uuid.UUID) ([]model.HeldSale, error)
	FindHeldSaleByID(orgID, id uuid.UUID) (*model.HeldSale, error)
	// RecallHeldSale flips held -> recalled only when the caller is in the
	// sale's organization and holds the current version; returns the number
	// of rows updated.
	RecallHeldSale(orgID, id uuid.UUID, version int, recalledBy uuid.UUID) (int64, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) CreateInTx(tx *gorm.DB, sale *model.Sale) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(sale).Error
}

func (r *saleRepo) FindByID(orgID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.Preload("Items").Preload("Items.Product").Preload("Payments").Preload("Zone").
		First(&sale, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) FindAll(orgID uuid.UUID, date, status string, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	query := r.db.Preload("Zone").
		Where("organization_id = ?", orgID).
		Order("sold_at DESC")
	if date != "" {
		query = query.Where("sale_date = ?", date)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 50
	}
	err := query.Limit(limit).Find(&sales).Error
	return sales, err
}

func (r *saleRepo) FindCompletedByDateRange(orgID uuid.UUID, from, to string) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.Where("organization_id = ? AND status = ? AND sale_date BETWEEN ? AND ?",
		orgID, model.SaleCompleted, from, to).
		Order("sale_date ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) Update(sale *model.Sale) error {
	return r.db.Save(sale).Error
}

func (r *saleRepo) PaymentTotalsByMethod(orgID uuid.UUID, from, to string) ([]PaymentMethodTotal, error) {
	var results []PaymentMethodTotal
	rows, err := r.db.Model(&model.SalePayment{}).
		Select("sale_payments.payment_method, COALESCE(SUM(sale_payments.amount_base), 0), COUNT(*)").
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.organization_id = ? AND sales.status = ? AND sales.sale_date BETWEEN ? AND ?",
			orgID, model.SaleCompleted, from, to).
		Group("sale_payments.payment_method").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pm PaymentMethodTotal
		if err := rows.Scan(&pm.Method, &pm.Amount, &pm.Count); err != nil {
			return nil, err
		}
		results = append(results, pm)
	}
	return results, nil
}

func (r *saleRepo) CashSalesForDay(tx *gorm.DB, orgID uuid.UUID, date, currencyCode string) (float64, error) {
	if tx == nil {
		tx = r.db
	}
	var total float64
	err := tx.Model(&model.SalePayment{}).
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.organization_id = ? AND sales.status = ? AND sales.sale_date = ?", orgID, model.SaleCompleted, date).
		Where("sale_payments.payment_method = ? AND sale_payments.currency_code = ?", "cash", currencyCode).
		Select("COALESCE(SUM(sale_payments.amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *saleRepo) RevenueByProduct(orgID uuid.UUID, from, to string) ([]ProductRevenue, error) {
	var results []ProductRevenue
	rows, err := r.db.Model(&model.SaleItem{}).
		Select("sale_items.product_id, COALESCE(SUM(sale_items.quantity_kg), 0), COALESCE(SUM(sale_items.line_total), 0)").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.organization_id = ? AND sales.status = ? AND sales.sale_date BETWEEN ? AND ?",
			orgID, model.SaleCompleted, from, to).
		Group("sale_items.product_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr ProductRevenue
		if err := rows.Scan(&pr.ProductID, &pr.WeightKg, &pr.Revenue); err != nil {
			return nil, err
		}
		results = append(results, pr)
	}
	return results, nil
}

func (r *saleRepo) CreateHeldSale(held *model.HeldSale) error {
	return r.db.Create(held).Error
}

func (r *saleRepo) FindHeldSales(orgID uuid.UUID) ([]model.HeldSale, error) {
	var held []model.HeldSale
	err := r.db.Where("organization_id = ? AND status = ?", orgID, model.HeldSaleHeld).
		Order("created_at DESC").
		Find(&held).Error
	return held, err
}

func (r *saleRepo) FindHeldSaleByID(orgID, id uuid.UUID) (*model.HeldSale, error) {
	var held model.HeldSale
	err := r.db.First(&held, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &held, nil
}

func (r *saleRepo) RecallHeldSale(orgID, id uuid.UUID, version int, recalledBy uuid.UUID) (int64, error) {
	now := time.Now()
	result := r.db.Model(&model.HeldSale{}).
		Where("id = ? AND organization_id = ? AND version = ? AND status = ?", id, orgID, version, model.HeldSaleHeld).
		Updates(map[string]interface{}{
			"status":      model.HeldSaleRecalled,
			"recalled_at": now,
			"recalled_by": recalledBy,
			"version":     version + 1,
		})
	return result.RowsAffected, result.Error
}
