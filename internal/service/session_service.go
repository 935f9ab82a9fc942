package service

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/costing"
	"go-meatflow/internal/metrics"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/internal/ws"
	"go-meatflow/pkg/validator"
)

// unaccountedToleranceKg is how much input weight may go missing between
// cuts and recorded waste before completion carries a warning.
const unaccountedToleranceKg = 0.5

type SessionService interface {
	StartSession(req *StartSessionRequest, actor Actor) (*model.CuttingSession, error)
	GetSessions(orgID uuid.UUID, status string) ([]model.CuttingSession, error)
	GetSessionByID(orgID, id uuid.UUID) (*model.CuttingSession, error)

	AddCut(orgID, sessionID uuid.UUID, req *AddCutRequest, actor Actor) (*model.Cut, error)
	RemoveCut(orgID, sessionID, cutID uuid.UUID, actor Actor) error
	RecordWaste(orgID, sessionID uuid.UUID, wasteKg float64, actor Actor) (*model.CuttingSession, error)

	PauseSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error)
	ResumeSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error)
	CancelSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error)
	CompleteSession(orgID, sessionID uuid.UUID, req *CompleteSessionRequest, actor Actor) (*CompleteSessionResult, error)
}

type StartSessionRequest struct {
	CarcassID         *uuid.UUID `json:"carcass_id"`
	DestinationZoneID *uuid.UUID `json:"destination_zone_id"`
	InputWeightKg     float64    `json:"input_weight_kg" validate:"gte=0"` // ad hoc sessions only
	Notes             string     `json:"notes"`
}

type AddCutRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"uuid_required"`
	WeightKg  float64    `json:"weight_kg" validate:"required,gt=0"`
	Quantity  int        `json:"quantity" validate:"gte=0"`
	GradeID   *uuid.UUID `json:"grade_id"`
	Notes     string     `json:"notes"`
}

type CompleteSessionRequest struct {
	FinalWasteKg *float64 `json:"final_waste_kg" validate:"omitempty,gte=0"`
	Notes        string   `json:"notes"`
}

// CompleteSessionResult carries the completed session plus non-fatal
// observations (an unaccounted-weight gap does not block completion).
type CompleteSessionResult struct {
	Session  *model.CuttingSession `json:"session"`
	Warnings []string              `json:"warnings,omitempty"`
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	carcassRepo repository.CarcassRepository
	productRepo repository.ProductRepository
	zoneRepo    repository.ZoneRepository
	stockRepo   repository.StockRepository
	db          *gorm.DB
	wsHub       *ws.Hub
	log         *zap.Logger
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	carcassRepo repository.CarcassRepository,
	productRepo repository.ProductRepository,
	zoneRepo repository.ZoneRepository,
	stockRepo repository.StockRepository,
	db *gorm.DB,
	hub *ws.Hub,
	log *zap.Logger,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		carcassRepo: carcassRepo,
		productRepo: productRepo,
		zoneRepo:    zoneRepo,
		stockRepo:   stockRepo,
		db:          db,
		wsHub:       hub,
		log:         log.Named("session"),
	}
}

func (s *sessionService) StartSession(req *StartSessionRequest, actor Actor) (*model.CuttingSession, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	now := time.Now()
	session := &model.CuttingSession{
		Status:            model.SessionActive,
		StartedAt:         now,
		StartedBy:         actor.Name,
		InputWeightKg:     req.InputWeightKg,
		DestinationZoneID: req.DestinationZoneID,
		Notes:             req.Notes,
	}
	session.OrganizationID = actor.OrganizationID
	session.CreatedBy = actor.UserID.String()
	session.UpdatedBy = actor.UserID.String()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 2. Claim the carcass if the session cuts one
		if req.CarcassID != nil {
			var carcass model.Carcass
			if err := tx.Set("gorm:query_option", "FOR UPDATE").
				Where("organization_id = ?", actor.OrganizationID).
				First(&carcass, "id = ?", *req.CarcassID).Error; err != nil {
				return apperr.NotFound("carcass not found")
			}
			if carcass.Status != model.CarcassPending {
				return apperr.InvalidState("carcass %s is %s, only pending carcasses can start a session", carcass.CarcassNumber, carcass.Status)
			}

			session.CarcassID = &carcass.ID
			session.InputWeightKg = carcass.WeightKg
			if session.DestinationZoneID == nil {
				session.DestinationZoneID = carcass.DestinationZoneID
			}

			carcass.Status = model.CarcassProcessing
			carcass.UpdatedBy = actor.UserID.String()
			if err := tx.Save(&carcass).Error; err != nil {
				return err
			}
		}

		// 3. Allocate document number inside the same transaction
		number, err := s.nextNumberInTx(tx, actor.OrganizationID, now)
		if err != nil {
			return err
		}
		session.SessionNumber = number

		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cutting session started",
		zap.String("session_number", session.SessionNumber),
		zap.Float64("input_weight_kg", session.InputWeightKg))

	return session, nil
}

// nextNumberInTx counts within the caller's transaction so a concurrent
// start cannot hand out the same number.
func (s *sessionService) nextNumberInTx(tx *gorm.DB, orgID uuid.UUID, at time.Time) (string, error) {
	prefix := "CUT-" + at.Format("20060102")
	var count int64
	if err := tx.Model(&model.CuttingSession{}).
		Unscoped().
		Where("organization_id = ? AND session_number LIKE ?", orgID, prefix+"-%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", prefix, count+1), nil
}

func (s *sessionService) GetSessions(orgID uuid.UUID, status string) ([]model.CuttingSession, error) {
	return s.sessionRepo.FindAll(orgID, status)
}

func (s *sessionService) GetSessionByID(orgID, id uuid.UUID) (*model.CuttingSession, error) {
	session, err := s.sessionRepo.FindByID(orgID, id)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}
	return session, nil
}

func (s *sessionService) AddCut(orgID, sessionID uuid.UUID, req *AddCutRequest, actor Actor) (*model.Cut, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	// 2. Session must be active
	session, err := s.sessionRepo.FindByID(orgID, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}
	if session.Status != model.SessionActive {
		return nil, apperr.InvalidState("cuts can only be added to an active session, session is %s", session.Status)
	}

	// 3. Product must exist in this organization
	if _, err := s.productRepo.FindByID(orgID, req.ProductID); err != nil {
		return nil, apperr.Validation("product not found")
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	cut := &model.Cut{
		SessionID: sessionID,
		ProductID: req.ProductID,
		WeightKg:  req.WeightKg,
		Quantity:  quantity,
		GradeID:   req.GradeID,
		Notes:     req.Notes,
	}
	cut.CreatedBy = actor.UserID.String()
	cut.UpdatedBy = actor.UserID.String()

	// 4. Insert cut and recompute the session output from the cut rows
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cut).Error; err != nil {
			return err
		}
		total, err := s.sessionRepo.SumCutWeights(tx, sessionID)
		if err != nil {
			return err
		}
		return s.sessionRepo.UpdateOutput(tx, sessionID, total)
	})
	if err != nil {
		return nil, err
	}

	return cut, nil
}

func (s *sessionService) RemoveCut(orgID, sessionID, cutID uuid.UUID, actor Actor) error {
	session, err := s.sessionRepo.FindByID(orgID, sessionID)
	if err != nil {
		return apperr.NotFound("session not found")
	}
	if session.Status != model.SessionActive {
		return apperr.InvalidState("cuts can only be removed from an active session, session is %s", session.Status)
	}

	cut, err := s.sessionRepo.FindCut(cutID)
	if err != nil || cut.SessionID != sessionID {
		return apperr.NotFound("cut not found in this session")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Cut{}, "id = ?", cutID).Error; err != nil {
			return err
		}
		total, err := s.sessionRepo.SumCutWeights(tx, sessionID)
		if err != nil {
			return err
		}
		return s.sessionRepo.UpdateOutput(tx, sessionID, total)
	})
}

func (s *sessionService) RecordWaste(orgID, sessionID uuid.UUID, wasteKg float64, actor Actor) (*model.CuttingSession, error) {
	if wasteKg < 0 {
		return nil, apperr.Validation("waste_kg must not be negative")
	}

	session, err := s.sessionRepo.FindByID(orgID, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}
	if session.Status.Terminal() {
		return nil, apperr.InvalidState("waste cannot be recorded on a %s session", session.Status)
	}

	// Waste is a correction, not an accumulator: the latest figure replaces
	// the previous one.
	session.WasteKg = wasteKg
	session.UpdatedBy = actor.UserID.String()
	if err := s.sessionRepo.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) PauseSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error) {
	return s.transition(orgID, sessionID, actor, model.SessionActive, model.SessionPaused)
}

func (s *sessionService) ResumeSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error) {
	return s.transition(orgID, sessionID, actor, model.SessionPaused, model.SessionActive)
}

func (s *sessionService) transition(orgID, sessionID uuid.UUID, actor Actor, from, to model.SessionStatus) (*model.CuttingSession, error) {
	session, err := s.sessionRepo.FindByID(orgID, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}
	if session.Status != from {
		return nil, apperr.InvalidState("session is %s, expected %s", session.Status, from)
	}
	session.Status = to
	session.UpdatedBy = actor.UserID.String()
	if err := s.sessionRepo.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) CancelSession(orgID, sessionID uuid.UUID, actor Actor) (*model.CuttingSession, error) {
	session, err := s.sessionRepo.FindByID(orgID, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}
	if session.Status.Terminal() {
		return nil, apperr.InvalidState("session is already %s", session.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		session.Status = model.SessionCancelled
		session.EndedAt = &now
		session.UpdatedBy = actor.UserID.String()
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		// Release the carcass so another session can pick it up
		if session.CarcassID != nil {
			return tx.Model(&model.Carcass{}).
				Where("id = ?", *session.CarcassID).
				Updates(map[string]interface{}{
					"status":     model.CarcassPending,
					"updated_by": actor.UserID.String(),
				}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// cutGroup keys stock lot aggregation: one lot per product and grade.
type cutGroup struct {
	productID uuid.UUID
	gradeID   uuid.UUID // uuid.Nil when ungraded
}

func (s *sessionService) CompleteSession(orgID, sessionID uuid.UUID, req *CompleteSessionRequest, actor Actor) (*CompleteSessionResult, error) {
	if req == nil {
		req = &CompleteSessionRequest{}
	}
	if req.FinalWasteKg != nil && *req.FinalWasteKg < 0 {
		return nil, apperr.Validation("final_waste_kg must not be negative")
	}

	var completed *model.CuttingSession
	var warnings []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock the session row for the whole posting
		var session model.CuttingSession
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("organization_id = ?", orgID).
			First(&session, "id = ?", sessionID).Error; err != nil {
			return apperr.NotFound("session not found")
		}
		if session.Status.Terminal() {
			return apperr.InvalidState("session is already %s", session.Status)
		}

		// 2. Final figures: output is always re-derived from the cut rows
		totalOutput, err := s.sessionRepo.SumCutWeights(tx, sessionID)
		if err != nil {
			return err
		}
		if req.FinalWasteKg != nil {
			session.WasteKg = *req.FinalWasteKg
		}

		var cuts []model.Cut
		if err := tx.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&cuts).Error; err != nil {
			return err
		}

		// 3. Resolve cost basis and destination zone
		var carcass *model.Carcass
		costPerKg := 0.0
		if session.CarcassID != nil {
			carcass = &model.Carcass{}
			if err := tx.Set("gorm:query_option", "FOR UPDATE").
				First(carcass, "id = ?", *session.CarcassID).Error; err != nil {
				return apperr.NotFound("carcass not found")
			}
			costPerKg = carcass.CostPerKg
		}

		destZoneID := session.DestinationZoneID
		if destZoneID == nil && len(cuts) > 0 {
			zone, err := s.zoneRepo.FindDefaultReceivingInTx(tx, orgID)
			if err != nil {
				return apperr.Validation("no destination zone on session and no default receiving zone configured")
			}
			destZoneID = &zone.ID
		}

		// 4. Aggregate cuts into one stock lot per (product, grade)
		groups := make(map[cutGroup]*model.StockLot)
		var order []cutGroup
		for _, cut := range cuts {
			key := cutGroup{productID: cut.ProductID}
			if cut.GradeID != nil {
				key.gradeID = *cut.GradeID
			}
			lot, ok := groups[key]
			if !ok {
				lot = &model.StockLot{
					ProductID:  cut.ProductID,
					ZoneID:     *destZoneID,
					GradeID:    cut.GradeID,
					CostPerKg:  costPerKg,
					BatchCode:  session.SessionNumber,
					SourceType: model.StockFromSession,
					SourceID:   &session.ID,
				}
				lot.OrganizationID = orgID
				lot.CreatedBy = actor.UserID.String()
				lot.UpdatedBy = actor.UserID.String()
				groups[key] = lot
				order = append(order, key)
			}
			lot.QuantityKg += cut.WeightKg
			lot.QuantityUnits += cut.Quantity
		}

		// 5. Post lots and production movements
		for _, key := range order {
			lot := groups[key]
			lot.RecalcTotalCost()
			if err := tx.Create(lot).Error; err != nil {
				return err
			}
			movement := &model.StockMovement{
				StockLotID:    lot.ID,
				Type:          model.MovementProduction,
				QuantityKg:    lot.QuantityKg,
				ToZoneID:      destZoneID,
				ReferenceType: "session",
				ReferenceID:   &session.ID,
				PerformedBy:   actor.Name,
			}
			movement.OrganizationID = orgID
			movement.CreatedBy = actor.UserID.String()
			movement.UpdatedBy = actor.UserID.String()
			if err := s.stockRepo.RecordMovement(tx, movement); err != nil {
				return err
			}
		}

		// 6. Close the session
		now := time.Now()
		session.Status = model.SessionCompleted
		session.TotalOutputKg = totalOutput
		session.EndedAt = &now
		session.CompletedBy = actor.Name
		if req.Notes != "" {
			session.Notes = req.Notes
		}
		session.UpdatedBy = actor.UserID.String()
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		// 7. Roll results up to the carcass
		if carcass != nil {
			carcass.Status = model.CarcassCompleted
			carcass.TotalOutputKg = totalOutput
			carcass.WasteKg = session.WasteKg
			carcass.YieldPercentage = costing.YieldPercent(totalOutput, session.WasteKg, carcass.WeightKg)
			carcass.UpdatedBy = actor.UserID.String()
			if err := tx.Save(carcass).Error; err != nil {
				return err
			}
		}

		// 8. Flag unexplained weight loss without blocking completion
		unaccounted := costing.UnaccountedKg(session.InputWeightKg, totalOutput, session.WasteKg)
		if session.InputWeightKg > 0 && math.Abs(unaccounted) > unaccountedToleranceKg {
			warnings = append(warnings, fmt.Sprintf("%.2f kg of input weight is unaccounted for (input %.2f, output %.2f, waste %.2f)",
				unaccounted, session.InputWeightKg, totalOutput, session.WasteKg))
		}

		completed = &session
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsCompleted.Inc()
	s.log.Info("cutting session completed",
		zap.String("session_number", completed.SessionNumber),
		zap.Float64("total_output_kg", completed.TotalOutputKg),
		zap.Float64("waste_kg", completed.WasteKg),
		zap.Int("warnings", len(warnings)))

	go func() {
		payload := map[string]interface{}{
			"type":   "stock_update",
			"action": "session_completed",
			"session": map[string]interface{}{
				"id":              completed.ID,
				"session_number":  completed.SessionNumber,
				"total_output_kg": completed.TotalOutputKg,
				"waste_kg":        completed.WasteKg,
			},
			"user": map[string]interface{}{
				"id":    actor.UserID.String(),
				"name":  actor.Name,
				"email": actor.Email,
			},
			"message": fmt.Sprintf("%s completed session %s (%.2f kg produced)", actor.Name, completed.SessionNumber, completed.TotalOutputKg),
		}
		msg, _ := json.Marshal(payload)
		s.wsHub.Broadcast <- msg
	}()

	return &CompleteSessionResult{Session: completed, Warnings: warnings}, nil
}
