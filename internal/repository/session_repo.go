package repository

import (
	"go-meatflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(session *model.CuttingSession) error
	FindByID(orgID, id uuid.UUID) (*model.CuttingSession, error)
	FindAll(orgID uuid.UUID, status string) ([]model.CuttingSession, error)
	Update(session *model.CuttingSession) error

	AddCut(cut *model.Cut) error
	FindCut(id uuid.UUID) (*model.Cut, error)
	DeleteCut(id uuid.UUID) error
	// SumCutWeights recomputes output from the ground truth rather than
	// incrementing, so concurrent removals cannot drift the total.
	SumCutWeights(tx *gorm.DB, sessionID uuid.UUID) (float64, error)
	UpdateOutput(tx *gorm.DB, sessionID uuid.UUID, totalOutputKg float64) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db}
}

func (r *sessionRepo) Create(session *model.CuttingSession) error {
	return r.db.Create(session).Error
}

func (r *sessionRepo) FindByID(orgID, id uuid.UUID) (*model.CuttingSession, error) {
	var session model.CuttingSession
	err := r.db.Preload("Carcass").Preload("Carcass.Supplier").
		Preload("Cuts").Preload("Cuts.Product").Preload("Cuts.Grade").
		First(&session, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindAll(orgID uuid.UUID, status string) ([]model.CuttingSession, error) {
	var sessions []model.CuttingSession
	query := r.db.Preload("Carcass").
		Where("organization_id = ?", orgID).
		Order("started_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Update(session *model.CuttingSession) error {
	return r.db.Save(session).Error
}

func (r *sessionRepo) AddCut(cut *model.Cut) error {
	return r.db.Create(cut).Error
}

func (r *sessionRepo) FindCut(id uuid.UUID) (*model.Cut, error) {
	var cut model.Cut
	if err := r.db.Preload("Product").First(&cut, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cut, nil
}

func (r *sessionRepo) DeleteCut(id uuid.UUID) error {
	return r.db.Delete(&model.Cut{}, "id = ?", id).Error
}

func (r *sessionRepo) SumCutWeights(tx *gorm.DB, sessionID uuid.UUID) (float64, error) {
	if tx == nil {
		tx = r.db
	}
	var total float64
	err := tx.Model(&model.Cut{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(SUM(weight_kg), 0)").
		Scan(&total).Error
	return total, err
}

func (r *sessionRepo) UpdateOutput(tx *gorm.DB, sessionID uuid.UUID, totalOutputKg float64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&model.CuttingSession{}).
		Where("id = ?", sessionID).
		Update("total_output_kg", totalOutputKg).Error
}
