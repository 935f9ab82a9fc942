package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/cache"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/pkg/validator"
)

type StockService interface {
	GetLots(orgID uuid.UUID, zoneID, productID *uuid.UUID) ([]model.StockLot, error)
	GetStockByProduct(orgID uuid.UUID) ([]repository.ProductStock, error)
	GetMovements(orgID uuid.UUID, lotID *uuid.UUID, limit int) ([]model.StockMovement, error)

	TransferStock(req *TransferRequest, actor Actor) (*model.StockLot, error)
	AdjustStock(req *AdjustmentRequest, actor Actor) (*model.StockLot, error)
	// SweepExpired zeroes every lot past its expiry date, writing adjustment
	// movements. Returns the number of lots expired.
	SweepExpired(asOf time.Time) (int, error)
}

type TransferRequest struct {
	LotID      uuid.UUID `json:"lot_id" validate:"uuid_required"`
	ToZoneID   uuid.UUID `json:"to_zone_id" validate:"uuid_required"`
	QuantityKg float64   `json:"quantity_kg" validate:"required,gt=0"`
	Notes      string    `json:"notes"`
}

type AdjustmentRequest struct {
	LotID         uuid.UUID `json:"lot_id" validate:"uuid_required"`
	NewQuantityKg float64   `json:"new_quantity_kg" validate:"gte=0"`
	Reason        string    `json:"reason" validate:"required"`
}

type stockService struct {
	stockRepo   repository.StockRepository
	zoneRepo    repository.ZoneRepository
	db          *gorm.DB
	reportCache cache.ReportCache
	log         *zap.Logger
}

func NewStockService(stockRepo repository.StockRepository, zoneRepo repository.ZoneRepository, db *gorm.DB, reportCache cache.ReportCache, log *zap.Logger) StockService {
	return &stockService{
		stockRepo:   stockRepo,
		zoneRepo:    zoneRepo,
		db:          db,
		reportCache: reportCache,
		log:         log.Named("stock"),
	}
}

func (s *stockService) GetLots(orgID uuid.UUID, zoneID, productID *uuid.UUID) ([]model.StockLot, error) {
	return s.stockRepo.FindAll(orgID, zoneID, productID)
}

func (s *stockService) GetStockByProduct(orgID uuid.UUID) ([]repository.ProductStock, error) {
	return s.stockRepo.AggregateByProduct(orgID)
}

func (s *stockService) GetMovements(orgID uuid.UUID, lotID *uuid.UUID, limit int) ([]model.StockMovement, error) {
	return s.stockRepo.FindMovements(orgID, lotID, limit)
}

func (s *stockService) TransferStock(req *TransferRequest, actor Actor) (*model.StockLot, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	destZone, err := s.zoneRepo.FindByID(actor.OrganizationID, req.ToZoneID)
	if err != nil {
		return nil, apperr.Validation("destination zone not found")
	}
	if !destZone.IsActive {
		return nil, apperr.Validation("destination zone %s is inactive", destZone.Code)
	}

	var created *model.StockLot
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 2. Lock and check the source lot
		var source model.StockLot
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("organization_id = ?", actor.OrganizationID).
			First(&source, "id = ?", req.LotID).Error; err != nil {
			return apperr.NotFound("stock lot not found")
		}
		if source.ZoneID == req.ToZoneID {
			return apperr.Validation("source and destination zones are the same")
		}
		if source.QuantityKg+moneyEpsilon < req.QuantityKg {
			return apperr.InsufficientStock("lot holds %.2f kg, cannot transfer %.2f kg", source.QuantityKg, req.QuantityKg)
		}

		// 3. Split the quantity into a new lot in the destination zone
		source.QuantityKg -= req.QuantityKg
		source.RecalcTotalCost()
		source.UpdatedBy = actor.UserID.String()
		if err := tx.Save(&source).Error; err != nil {
			return err
		}

		dest := &model.StockLot{
			ProductID:  source.ProductID,
			ZoneID:     req.ToZoneID,
			GradeID:    source.GradeID,
			QuantityKg: req.QuantityKg,
			CostPerKg:  source.CostPerKg,
			BatchCode:  source.BatchCode,
			SourceType: model.StockFromTransfer,
			SourceID:   &source.ID,
			ExpiresAt:  source.ExpiresAt,
		}
		dest.OrganizationID = actor.OrganizationID
		dest.CreatedBy = actor.UserID.String()
		dest.UpdatedBy = actor.UserID.String()
		dest.RecalcTotalCost()
		if err := tx.Create(dest).Error; err != nil {
			return err
		}

		// 4. Ledger entries for both sides of the move
		out := &model.StockMovement{
			StockLotID:  source.ID,
			Type:        model.MovementTransfer,
			QuantityKg:  -req.QuantityKg,
			FromZoneID:  &source.ZoneID,
			ToZoneID:    &req.ToZoneID,
			Reason:      req.Notes,
			PerformedBy: actor.Name,
		}
		out.OrganizationID = actor.OrganizationID
		out.CreatedBy = actor.UserID.String()
		out.UpdatedBy = actor.UserID.String()
		if err := s.stockRepo.RecordMovement(tx, out); err != nil {
			return err
		}

		in := &model.StockMovement{
			StockLotID:  dest.ID,
			Type:        model.MovementTransfer,
			QuantityKg:  req.QuantityKg,
			FromZoneID:  &source.ZoneID,
			ToZoneID:    &req.ToZoneID,
			Reason:      req.Notes,
			PerformedBy: actor.Name,
		}
		in.OrganizationID = actor.OrganizationID
		in.CreatedBy = actor.UserID.String()
		in.UpdatedBy = actor.UserID.String()
		if err := s.stockRepo.RecordMovement(tx, in); err != nil {
			return err
		}

		created = dest
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.reportCache.InvalidateOrg(context.Background(), actor.OrganizationID.String())
	return created, nil
}

func (s *stockService) AdjustStock(req *AdjustmentRequest, actor Actor) (*model.StockLot, error) {
	// 1. Validate request; an adjustment is meaningless without a reason
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	var adjusted *model.StockLot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lot model.StockLot
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("organization_id = ?", actor.OrganizationID).
			First(&lot, "id = ?", req.LotID).Error; err != nil {
			return apperr.NotFound("stock lot not found")
		}

		delta := req.NewQuantityKg - lot.QuantityKg
		lot.QuantityKg = req.NewQuantityKg
		lot.RecalcTotalCost()
		lot.UpdatedBy = actor.UserID.String()
		if err := tx.Save(&lot).Error; err != nil {
			return err
		}

		movement := &model.StockMovement{
			StockLotID:  lot.ID,
			Type:        model.MovementAdjustment,
			QuantityKg:  delta,
			Reason:      req.Reason,
			PerformedBy: actor.Name,
		}
		movement.OrganizationID = actor.OrganizationID
		movement.CreatedBy = actor.UserID.String()
		movement.UpdatedBy = actor.UserID.String()
		if err := s.stockRepo.RecordMovement(tx, movement); err != nil {
			return err
		}

		adjusted = &lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.reportCache.InvalidateOrg(context.Background(), actor.OrganizationID.String())
	return adjusted, nil
}

func (s *stockService) SweepExpired(asOf time.Time) (int, error) {
	expired := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lots []model.StockLot
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("quantity_kg > 0 AND expires_at IS NOT NULL AND expires_at <= ?", asOf).
			Find(&lots).Error; err != nil {
			return err
		}

		for i := range lots {
			lot := &lots[i]
			removed := lot.QuantityKg
			lot.QuantityKg = 0
			lot.RecalcTotalCost()
			if err := tx.Save(lot).Error; err != nil {
				return err
			}

			movement := &model.StockMovement{
				StockLotID:  lot.ID,
				Type:        model.MovementAdjustment,
				QuantityKg:  -removed,
				Reason:      "expired",
				PerformedBy: "scheduler",
			}
			movement.OrganizationID = lot.OrganizationID
			if err := s.stockRepo.RecordMovement(tx, movement); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		s.log.Info("expired stock swept", zap.Int("lots", expired))
	}
	return expired, nil
}
