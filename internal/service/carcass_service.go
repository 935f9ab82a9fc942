package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/costing"
	"go-meatflow/internal/metrics"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/internal/ws"
	"go-meatflow/pkg/validator"
)

type CarcassService interface {
	ReceiveCarcass(req *ReceiveCarcassRequest, actor Actor) (*model.Carcass, error)
	GetCarcasses(orgID uuid.UUID, status string) ([]model.Carcass, error)
	GetCarcassByID(orgID, id uuid.UUID) (*model.Carcass, error)
	UpdateCarcassNotes(orgID, id uuid.UUID, notes string, actor Actor) (*model.Carcass, error)
}

type ReceiveCarcassRequest struct {
	SupplierID        *uuid.UUID `json:"supplier_id"`
	GradeID           *uuid.UUID `json:"grade_id"`
	WeightKg          float64    `json:"weight_kg" validate:"required,gt=0"`
	CostTotal         float64    `json:"cost_total" validate:"gte=0"`
	DestinationZoneID *uuid.UUID `json:"destination_zone_id"`
	Notes             string     `json:"notes"`
}

type carcassService struct {
	carcassRepo  repository.CarcassRepository
	zoneRepo     repository.ZoneRepository
	supplierRepo repository.SupplierRepository
	wsHub        *ws.Hub
	log          *zap.Logger
}

func NewCarcassService(carcassRepo repository.CarcassRepository, zoneRepo repository.ZoneRepository, supplierRepo repository.SupplierRepository, hub *ws.Hub, log *zap.Logger) CarcassService {
	return &carcassService{
		carcassRepo:  carcassRepo,
		zoneRepo:     zoneRepo,
		supplierRepo: supplierRepo,
		wsHub:        hub,
		log:          log.Named("carcass"),
	}
}

func (s *carcassService) ReceiveCarcass(req *ReceiveCarcassRequest, actor Actor) (*model.Carcass, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	// 2. Validate supplier when given
	if req.SupplierID != nil {
		if _, err := s.supplierRepo.FindByID(actor.OrganizationID, *req.SupplierID); err != nil {
			return nil, apperr.Validation("supplier not found")
		}
	}

	// 3. Resolve destination zone (default receiving zone when omitted)
	destZoneID := req.DestinationZoneID
	if destZoneID == nil {
		zone, err := s.zoneRepo.FindDefaultReceiving(actor.OrganizationID)
		if err != nil {
			return nil, apperr.Validation("no destination zone given and no default receiving zone configured")
		}
		destZoneID = &zone.ID
	} else {
		if _, err := s.zoneRepo.FindByID(actor.OrganizationID, *destZoneID); err != nil {
			return nil, apperr.Validation("destination zone not found")
		}
	}

	// 4. Allocate document number
	now := time.Now()
	number, err := s.carcassRepo.NextNumber(actor.OrganizationID, now)
	if err != nil {
		return nil, err
	}

	// 5. Persist with the derived unit cost
	carcass := &model.Carcass{
		CarcassNumber:     number,
		SupplierID:        req.SupplierID,
		GradeID:           req.GradeID,
		ReceivedAt:        now,
		ReceivedBy:        actor.Name,
		WeightKg:          req.WeightKg,
		CostTotal:         req.CostTotal,
		CostPerKg:         costing.CostPerKg(req.CostTotal, req.WeightKg),
		Status:            model.CarcassPending,
		DestinationZoneID: destZoneID,
		Notes:             req.Notes,
	}
	carcass.OrganizationID = actor.OrganizationID
	carcass.CreatedBy = actor.UserID.String()
	carcass.UpdatedBy = actor.UserID.String()

	if err := s.carcassRepo.Create(carcass); err != nil {
		return nil, err
	}

	metrics.CarcassesReceived.Inc()
	s.log.Info("carcass received",
		zap.String("carcass_number", carcass.CarcassNumber),
		zap.Float64("weight_kg", carcass.WeightKg),
		zap.Float64("cost_per_kg", carcass.CostPerKg))

	// 6. Broadcast to connected clients
	go func() {
		payload := map[string]interface{}{
			"type":   "carcass_update",
			"action": "carcass_received",
			"carcass": map[string]interface{}{
				"id":             carcass.ID,
				"carcass_number": carcass.CarcassNumber,
				"weight_kg":      carcass.WeightKg,
				"cost_per_kg":    carcass.CostPerKg,
				"status":         carcass.Status,
			},
			"user": map[string]interface{}{
				"id":    actor.UserID.String(),
				"name":  actor.Name,
				"email": actor.Email,
			},
			"message": fmt.Sprintf("%s received carcass %s (%.2f kg)", actor.Name, carcass.CarcassNumber, carcass.WeightKg),
		}
		msg, _ := json.Marshal(payload)
		s.wsHub.Broadcast <- msg
	}()

	return carcass, nil
}

func (s *carcassService) GetCarcasses(orgID uuid.UUID, status string) ([]model.Carcass, error) {
	return s.carcassRepo.FindAll(orgID, status)
}

func (s *carcassService) GetCarcassByID(orgID, id uuid.UUID) (*model.Carcass, error) {
	carcass, err := s.carcassRepo.FindByID(orgID, id)
	if err != nil {
		return nil, apperr.NotFound("carcass not found")
	}
	return carcass, nil
}

func (s *carcassService) UpdateCarcassNotes(orgID, id uuid.UUID, notes string, actor Actor) (*model.Carcass, error) {
	carcass, err := s.carcassRepo.FindByID(orgID, id)
	if err != nil {
		return nil, apperr.NotFound("carcass not found")
	}
	carcass.Notes = notes
	carcass.UpdatedBy = actor.UserID.String()
	if err := s.carcassRepo.Update(carcass); err != nil {
		return nil, err
	}
	return carcass, nil
}
