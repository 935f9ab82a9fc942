package repository

import (
	"fmt"
	"time"

	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CarcassRepository interface {
	Create(carcass *model.Carcass) error
	FindAll(orgID uuid.UUID, status string) ([]model.Carcass, error)
	FindByID(orgID, id uuid.UUID) (*model.Carcass, error)
	FindByDateRange(orgID uuid.UUID, from, to time.Time) ([]model.Carcass, error)
	Update(carcass *model.Carcass) error
	NextNumber(orgID uuid.UUID, at time.Time) (string, error)
}

type carcassRepo struct {
	db *gorm.DB
}

func NewCarcassRepo(db *gorm.DB) CarcassRepository {
	return &carcassRepo{db}
}

func (r *carcassRepo) Create(carcass *model.Carcass) error {
	return r.db.Create(carcass).Error
}

func (r *carcassRepo) FindAll(orgID uuid.UUID, status string) ([]model.Carcass, error) {
	var carcasses []model.Carcass
	query := r.db.Preload("Supplier").Preload("Grade").
		Where("organization_id = ?", orgID).
		Order("received_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&carcasses).Error
	return carcasses, err
}

func (r *carcassRepo) FindByID(orgID, id uuid.UUID) (*model.Carcass, error) {
	var carcass model.Carcass
	err := r.db.Preload("Supplier").Preload("Grade").
		First(&carcass, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &carcass, nil
}

func (r *carcassRepo) FindByDateRange(orgID uuid.UUID, from, to time.Time) ([]model.Carcass, error) {
	var carcasses []model.Carcass
	err := r.db.Preload("Supplier").
		Where("organization_id = ? AND received_at BETWEEN ? AND ?", orgID, from, to).
		Order("received_at DESC").
		Find(&carcasses).Error
	return carcasses, err
}

func (r *carcassRepo) Update(carcass *model.Carcass) error {
	return r.db.Save(carcass).Error
}

// NextNumber issues CAR-YYYYMMDD-NNN document numbers. The count is taken per
// day per organization; the unique index on carcass_number backstops races.
func (r *carcassRepo) NextNumber(orgID uuid.UUID, at time.Time) (string, error) {
	day := at.Format("20060102")
	var count int64
	err := r.db.Model(&model.Carcass{}).Unscoped().
		Where("organization_id = ? AND carcass_number LIKE ?", orgID, "CAR-"+day+"-%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CAR-%s-%03d", day, count+1), nil
}
