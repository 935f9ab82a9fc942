package repository

import (
	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll(orgID uuid.UUID) ([]model.Product, error)
	FindByID(orgID, id uuid.UUID) (*model.Product, error)
	FindByIDInTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Product, error)
	FindBySKU(orgID uuid.UUID, sku string) (*model.Product, error)
	Update(product *model.Product) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll(orgID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.Where("organization_id = ?", orgID).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(orgID, id uuid.UUID) (*model.Product, error) {
	return r.FindByIDInTx(r.db, orgID, id)
}

// FindByIDInTx reads through the caller's transaction so product lookups made
// while a sale holds row locks never wait on a fresh pool connection.
func (r *productRepo) FindByIDInTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.First(&product, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(orgID uuid.UUID, sku string) (*model.Product, error) {
	var product model.Product
	err := r.db.First(&product, "sku = ? AND organization_id = ?", sku, orgID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

type ZoneRepository interface {
	Create(zone *model.Zone) error
	FindAll(orgID uuid.UUID) ([]model.Zone, error)
	FindActive(orgID uuid.UUID) ([]model.Zone, error)
	FindActiveInTx(tx *gorm.DB, orgID uuid.UUID) ([]model.Zone, error)
	FindByID(orgID, id uuid.UUID) (*model.Zone, error)
	FindDefaultReceiving(orgID uuid.UUID) (*model.Zone, error)
	FindDefaultReceivingInTx(tx *gorm.DB, orgID uuid.UUID) (*model.Zone, error)
	Update(zone *model.Zone) error
}

type zoneRepo struct {
	db *gorm.DB
}

func NewZoneRepo(db *gorm.DB) ZoneRepository {
	return &zoneRepo{db}
}

func (r *zoneRepo) Create(zone *model.Zone) error {
	return r.db.Create(zone).Error
}

func (r *zoneRepo) FindAll(orgID uuid.UUID) ([]model.Zone, error) {
	var zones []model.Zone
	err := r.db.Where("organization_id = ?", orgID).Order("name ASC").Find(&zones).Error
	return zones, err
}

func (r *zoneRepo) FindActive(orgID uuid.UUID) ([]model.Zone, error) {
	return r.FindActiveInTx(r.db, orgID)
}

func (r *zoneRepo) FindActiveInTx(tx *gorm.DB, orgID uuid.UUID) ([]model.Zone, error) {
	var zones []model.Zone
	err := tx.Where("organization_id = ? AND is_active = ?", orgID, true).Order("name ASC").Find(&zones).Error
	return zones, err
}

func (r *zoneRepo) FindByID(orgID, id uuid.UUID) (*model.Zone, error) {
	var zone model.Zone
	err := r.db.First(&zone, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *zoneRepo) FindDefaultReceiving(orgID uuid.UUID) (*model.Zone, error) {
	return r.FindDefaultReceivingInTx(r.db, orgID)
}

func (r *zoneRepo) FindDefaultReceivingInTx(tx *gorm.DB, orgID uuid.UUID) (*model.Zone, error) {
	var zone model.Zone
	err := tx.First(&zone, "organization_id = ? AND is_default_receiving = ?", orgID, true).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *zoneRepo) Update(zone *model.Zone) error {
	return r.db.Save(zone).Error
}

type SupplierRepository interface {
	Create(supplier *model.Supplier) error
	FindAll(orgID uuid.UUID) ([]model.Supplier, error)
	FindByID(orgID, id uuid.UUID) (*model.Supplier, error)
	Update(supplier *model.Supplier) error
}

type supplierRepo struct {
	db *gorm.DB
}

func NewSupplierRepo(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db}
}

func (r *supplierRepo) Create(supplier *model.Supplier) error {
	return r.db.Create(supplier).Error
}

func (r *supplierRepo) FindAll(orgID uuid.UUID) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.Where("organization_id = ?", orgID).Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) FindByID(orgID, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.First(&supplier, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepo) Update(supplier *model.Supplier) error {
	return r.db.Save(supplier).Error
}

type GradeRepository interface {
	Create(grade *model.Grade) error
	FindAll(orgID uuid.UUID) ([]model.Grade, error)
	FindByID(orgID, id uuid.UUID) (*model.Grade, error)
}

type gradeRepo struct {
	db *gorm.DB
}

func NewGradeRepo(db *gorm.DB) GradeRepository {
	return &gradeRepo{db}
}

func (r *gradeRepo) Create(grade *model.Grade) error {
	return r.db.Create(grade).Error
}

func (r *gradeRepo) FindAll(orgID uuid.UUID) ([]model.Grade, error) {
	var grades []model.Grade
	err := r.db.Where("organization_id = ?", orgID).Order("code ASC").Find(&grades).Error
	return grades, err
}

func (r *gradeRepo) FindByID(orgID, id uuid.UUID) (*model.Grade, error) {
	var grade model.Grade
	err := r.db.First(&grade, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

type CurrencyRepository interface {
	Create(currency *model.Currency) error
	FindActive(orgID uuid.UUID) ([]model.Currency, error)
	FindActiveInTx(tx *gorm.DB, orgID uuid.UUID) ([]model.Currency, error)
	FindByCode(orgID uuid.UUID, code string) (*model.Currency, error)
	Update(currency *model.Currency) error
}

type currencyRepo struct {
	db *gorm.DB
}

func NewCurrencyRepo(db *gorm.DB) CurrencyRepository {
	return &currencyRepo{db}
}

func (r *currencyRepo) Create(currency *model.Currency) error {
	return r.db.Create(currency).Error
}

func (r *currencyRepo) FindActive(orgID uuid.UUID) ([]model.Currency, error) {
	return r.FindActiveInTx(r.db, orgID)
}

func (r *currencyRepo) FindActiveInTx(tx *gorm.DB, orgID uuid.UUID) ([]model.Currency, error) {
	var currencies []model.Currency
	err := tx.Where("organization_id = ? AND is_active = ?", orgID, true).Order("code ASC").Find(&currencies).Error
	return currencies, err
}

func (r *currencyRepo) FindByCode(orgID uuid.UUID, code string) (*model.Currency, error) {
	var currency model.Currency
	err := r.db.First(&currency, "organization_id = ? AND code = ?", orgID, code).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func (r *currencyRepo) Update(currency *model.Currency) error {
	return r.db.Save(currency).Error
}
