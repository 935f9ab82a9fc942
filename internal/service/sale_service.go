package service

import (
	"context"
	"encoding/json"
	"fmt"
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
	"go-meatflow/internal/ws"
	"go-meatflow/pkg/validator"
)

// moneyEpsilon absorbs float rounding when comparing currency amounts.
const moneyEpsilon = 0.005

type SaleService interface {
	CreateSale(req *CreateSaleRequest, actor Actor) (*model.Sale, error)
	GetSales(orgID uuid.UUID, date, status string, limit int) ([]model.Sale, error)
	GetSaleByID(orgID, id uuid.UUID) (*model.Sale, error)
	ProcessPayment(orgID, saleID uuid.UUID, req *PaymentRequest, actor Actor) (*model.Sale, error)
	VoidSale(orgID, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error)

	HoldSale(req *HoldSaleRequest, actor Actor) (*model.HeldSale, error)
	GetHeldSales(orgID uuid.UUID) ([]model.HeldSale, error)
	RecallHeldSale(orgID, heldID uuid.UUID, version int, actor Actor) (*model.HeldSale, error)
}

type CreateSaleRequest struct {
	ZoneID         uuid.UUID         `json:"zone_id" validate:"uuid_required"`
	Items          []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount float64           `json:"discount_amount" validate:"gte=0"`
	CustomerName   string            `json:"customer_name"`
	CustomerPhone  string            `json:"customer_phone"`
	Notes          string            `json:"notes"`
}

type SaleLineRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"uuid_required"`
	QuantityKg   float64   `json:"quantity_kg" validate:"required,gt=0"`
	UnitPrice    *float64  `json:"unit_price" validate:"omitempty,gte=0"` // defaults to the product price
	LineDiscount float64   `json:"line_discount" validate:"gte=0"`
}

type PaymentRequest struct {
	PaymentMethod string   `json:"payment_method" validate:"required"`
	CurrencyCode  string   `json:"currency_code" validate:"required"`
	Amount        float64  `json:"amount" validate:"required,gt=0"`
	Tendered      *float64 `json:"tendered" validate:"omitempty,gt=0"`
	Reference     string   `json:"reference"`
}

type HoldSaleRequest struct {
	ZoneID        uuid.UUID             `json:"zone_id" validate:"uuid_required"`
	Items         []model.HeldCartItem  `json:"items" validate:"required,min=1"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Notes         string                `json:"notes"`
}

type saleService struct {
	saleRepo     repository.SaleRepository
	stockRepo    repository.StockRepository
	productRepo  repository.ProductRepository
	zoneRepo     repository.ZoneRepository
	currencyRepo repository.CurrencyRepository
	db           *gorm.DB
	wsHub        *ws.Hub
	reportCache  cache.ReportCache
	log          *zap.Logger
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	zoneRepo repository.ZoneRepository,
	currencyRepo repository.CurrencyRepository,
	db *gorm.DB,
	hub *ws.Hub,
	reportCache cache.ReportCache,
	log *zap.Logger,
) SaleService {
	return &saleService{
		saleRepo:     saleRepo,
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		zoneRepo:     zoneRepo,
		currencyRepo: currencyRepo,
		db:           db,
		wsHub:        hub,
		reportCache:  reportCache,
		log:          log.Named("sale"),
	}
}

func (s *saleService) CreateSale(req *CreateSaleRequest, actor Actor) (*model.Sale, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	zone, err := s.zoneRepo.FindByID(actor.OrganizationID, req.ZoneID)
	if err != nil {
		return nil, apperr.Validation("zone not found")
	}
	if !zone.IsActive {
		return nil, apperr.Validation("zone %s is inactive", zone.Code)
	}

	now := time.Now()
	sale := &model.Sale{
		SaleDate:       now.Format("2006-01-02"),
		SoldAt:         now,
		CashierID:      actor.UserID,
		ZoneID:         req.ZoneID,
		DiscountAmount: req.DiscountAmount,
		PaymentStatus:  model.PaymentUnpaid,
		Status:         model.SaleCompleted,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Notes:          req.Notes,
	}
	sale.OrganizationID = actor.OrganizationID
	sale.CreatedBy = actor.UserID.String()
	sale.UpdatedBy = actor.UserID.String()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 2. Allocate the sale number inside the transaction
		number, err := s.nextNumberInTx(tx, actor.OrganizationID, now)
		if err != nil {
			return err
		}
		sale.SaleNumber = number
		if err := tx.Omit("Items", "Payments", "Zone").Create(sale).Error; err != nil {
			return err
		}

		// 3. Price, cost and decrement stock per line
		for i := range req.Items {
			line := req.Items[i]
			product, err := s.productRepo.FindByIDInTx(tx, actor.OrganizationID, line.ProductID)
			if err != nil {
				return apperr.Validation("product not found")
			}
			if !product.IsActive || !product.CanBeSold {
				return apperr.Validation("product %s cannot be sold", product.SKU)
			}

			unitPrice := product.PricePerKg
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}

			unitCost, firstLotID, err := s.consumeStock(tx, actor, sale, product, req.ZoneID, line.QuantityKg)
			if err != nil {
				return err
			}

			lineSubtotal := line.QuantityKg * unitPrice
			lineTotal := costing.LineTotal(line.QuantityKg, unitPrice, line.LineDiscount)
			taxAmount := lineTotal * product.TaxRatePercent / 100

			item := &model.SaleItem{
				SaleID:         sale.ID,
				ProductID:      product.ID,
				StockLotID:     firstLotID,
				QuantityKg:     line.QuantityKg,
				UnitPrice:      unitPrice,
				LineSubtotal:   lineSubtotal,
				LineDiscount:   line.LineDiscount,
				LineTotal:      lineTotal,
				TaxRatePercent: product.TaxRatePercent,
				TaxAmount:      taxAmount,
				UnitCost:       unitCost,
			}
			item.CreatedBy = actor.UserID.String()
			item.UpdatedBy = actor.UserID.String()
			if err := tx.Create(item).Error; err != nil {
				return err
			}

			sale.Subtotal += lineTotal
			sale.TaxAmount += taxAmount
			sale.TotalWeightKg += line.QuantityKg
			sale.TotalCost += line.QuantityKg * unitCost
			sale.Items = append(sale.Items, *item)
		}

		// 4. Roll up sale totals
		sale.TotalAmount = sale.Subtotal - sale.DiscountAmount + sale.TaxAmount
		if sale.TotalAmount < 0 {
			return apperr.Validation("discount exceeds sale subtotal")
		}
		sale.MarginAmount = sale.TotalAmount - sale.TaxAmount - sale.TotalCost
		sale.MarginPercent = costing.MarginPercent(sale.MarginAmount, sale.TotalAmount-sale.TaxAmount)
		if err := tx.Omit("Items", "Payments", "Zone").Save(sale).Error; err != nil {
			return err
		}

		// 5. Attribute revenue back to the source carcasses
		return s.applyCarcassRevenue(tx, sale, actor, 1)
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesCompleted.Inc()
	metrics.StockSoldKg.Add(sale.TotalWeightKg)
	_ = s.reportCache.InvalidateOrg(context.Background(), actor.OrganizationID.String())
	s.log.Info("sale completed",
		zap.String("sale_number", sale.SaleNumber),
		zap.Float64("total_amount", sale.TotalAmount),
		zap.Float64("total_weight_kg", sale.TotalWeightKg))

	go func() {
		payload := map[string]interface{}{
			"type":   "sale_update",
			"action": "sale_completed",
			"sale": map[string]interface{}{
				"id":              sale.ID,
				"sale_number":     sale.SaleNumber,
				"total_amount":    sale.TotalAmount,
				"total_weight_kg": sale.TotalWeightKg,
			},
			"user": map[string]interface{}{
				"id":    actor.UserID.String(),
				"name":  actor.Name,
				"email": actor.Email,
			},
			"message": fmt.Sprintf("%s completed sale %s", actor.Name, sale.SaleNumber),
		}
		msg, _ := json.Marshal(payload)
		s.wsHub.Broadcast <- msg
	}()

	return sale, nil
}

// consumeStock decrements lots of one product in a zone, earliest expiry
// first, and writes a sale movement per lot touched. Returns the weighted
// unit cost of what was taken and the first lot consumed.
func (s *saleService) consumeStock(tx *gorm.DB, actor Actor, sale *model.Sale, product *model.Product, zoneID uuid.UUID, quantityKg float64) (float64, *uuid.UUID, error) {
	lots, err := s.stockRepo.FindSellableLots(tx, actor.OrganizationID, product.ID, zoneID)
	if err != nil {
		return 0, nil, err
	}

	available := 0.0
	for _, lot := range lots {
		available += lot.QuantityKg
	}
	if available+moneyEpsilon < quantityKg {
		return 0, nil, apperr.InsufficientStock("insufficient stock for %s: requested %.2f kg, available %.2f kg", product.SKU, quantityKg, available)
	}

	remaining := quantityKg
	costAccum := 0.0
	var firstLotID *uuid.UUID
	for i := range lots {
		if remaining <= moneyEpsilon {
			break
		}
		lot := &lots[i]
		take := lot.QuantityKg
		if take > remaining {
			take = remaining
		}

		lot.QuantityKg -= take
		lot.RecalcTotalCost()
		lot.UpdatedBy = actor.UserID.String()
		if err := tx.Save(lot).Error; err != nil {
			return 0, nil, err
		}

		movement := &model.StockMovement{
			StockLotID:    lot.ID,
			Type:          model.MovementSale,
			QuantityKg:    -take,
			FromZoneID:    &zoneID,
			ReferenceType: "sale",
			ReferenceID:   &sale.ID,
			PerformedBy:   actor.Name,
		}
		movement.OrganizationID = actor.OrganizationID
		movement.CreatedBy = actor.UserID.String()
		movement.UpdatedBy = actor.UserID.String()
		if err := s.stockRepo.RecordMovement(tx, movement); err != nil {
			return 0, nil, err
		}

		costAccum += take * lot.CostPerKg
		if firstLotID == nil {
			id := lot.ID
			firstLotID = &id
		}
		remaining -= take
	}

	return costing.CostPerKg(costAccum, quantityKg), firstLotID, nil
}

// applyCarcassRevenue walks the sale's movements back to their source
// carcasses and adjusts their revenue rollup. direction is +1 for a sale,
// -1 for a void, so both operations share one attribution formula.
func (s *saleService) applyCarcassRevenue(tx *gorm.DB, sale *model.Sale, actor Actor, direction float64) error {
	var movements []model.StockMovement
	if err := tx.Where("reference_type = ? AND reference_id = ? AND type = ?", "sale", sale.ID, model.MovementSale).
		Find(&movements).Error; err != nil {
		return err
	}
	if len(movements) == 0 {
		return nil
	}

	// Effective revenue per kg of each product in this sale.
	type productShare struct{ revenue, qty float64 }
	shares := make(map[uuid.UUID]*productShare)
	for _, item := range sale.Items {
		ps, ok := shares[item.ProductID]
		if !ok {
			ps = &productShare{}
			shares[item.ProductID] = ps
		}
		ps.revenue += item.LineTotal
		ps.qty += item.QuantityKg
	}

	type rollup struct{ revenue, cost float64 }
	rollups := make(map[uuid.UUID]*rollup)
	for _, m := range movements {
		var lot model.StockLot
		if err := tx.First(&lot, "id = ?", m.StockLotID).Error; err != nil {
			return err
		}
		if lot.SourceType != model.StockFromSession || lot.SourceID == nil {
			continue
		}
		var session model.CuttingSession
		if err := tx.First(&session, "id = ?", *lot.SourceID).Error; err != nil {
			continue
		}
		if session.CarcassID == nil {
			continue
		}

		consumed := -m.QuantityKg
		ps := shares[lot.ProductID]
		if ps == nil || ps.qty == 0 {
			continue
		}
		r, ok := rollups[*session.CarcassID]
		if !ok {
			r = &rollup{}
			rollups[*session.CarcassID] = r
		}
		r.revenue += consumed * (ps.revenue / ps.qty)
		r.cost += consumed * lot.CostPerKg
	}

	for carcassID, r := range rollups {
		var carcass model.Carcass
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			First(&carcass, "id = ?", carcassID).Error; err != nil {
			return err
		}
		carcass.TotalRevenue += direction * r.revenue
		carcass.Margin += direction * (r.revenue - r.cost)
		carcass.MarginPercent = costing.MarginPercent(carcass.Margin, carcass.TotalRevenue)
		carcass.UpdatedBy = actor.UserID.String()
		if err := tx.Save(&carcass).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *saleService) nextNumberInTx(tx *gorm.DB, orgID uuid.UUID, at time.Time) (string, error) {
	prefix := "SAL-" + at.Format("20060102")
	var count int64
	if err := tx.Model(&model.Sale{}).
		Unscoped().
		Where("organization_id = ? AND sale_number LIKE ?", orgID, prefix+"-%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, count+1), nil
}

func (s *saleService) GetSales(orgID uuid.UUID, date, status string, limit int) ([]model.Sale, error) {
	return s.saleRepo.FindAll(orgID, date, status, limit)
}

func (s *saleService) GetSaleByID(orgID, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(orgID, id)
	if err != nil {
		return nil, apperr.NotFound("sale not found")
	}
	return sale, nil
}

func (s *saleService) ProcessPayment(orgID, saleID uuid.UUID, req *PaymentRequest, actor Actor) (*model.Sale, error) {
	// 1. Validate request
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	// 2. Resolve exchange rate for the tender currency
	currency, err := s.currencyRepo.FindByCode(orgID, req.CurrencyCode)
	if err != nil {
		return nil, apperr.Validation("currency %s is not configured", req.CurrencyCode)
	}
	if !currency.IsActive {
		return nil, apperr.Validation("currency %s is inactive", req.CurrencyCode)
	}

	amountBase := req.Amount / currency.ExchangeRate

	payment := &model.SalePayment{
		SaleID:        saleID,
		PaymentMethod: req.PaymentMethod,
		CurrencyCode:  req.CurrencyCode,
		Amount:        req.Amount,
		ExchangeRate:  currency.ExchangeRate,
		AmountBase:    amountBase,
		Reference:     req.Reference,
	}
	payment.CreatedBy = actor.UserID.String()
	payment.UpdatedBy = actor.UserID.String()

	if req.Tendered != nil {
		if *req.Tendered < req.Amount {
			return nil, apperr.Validation("tendered amount is less than the payment amount")
		}
		change := *req.Tendered - req.Amount
		payment.Tendered = req.Tendered
		payment.ChangeAmount = &change
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 3. Lock the sale row so concurrent tenders serialize; the
		// outstanding check must run against the locked copy.
		var sale model.Sale
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			First(&sale, "id = ? AND organization_id = ?", saleID, orgID).Error; err != nil {
			return apperr.NotFound("sale not found")
		}
		if sale.Status == model.SaleVoided {
			return apperr.InvalidState("cannot take payment against a voided sale")
		}
		if sale.PaymentStatus == model.PaymentPaid {
			return apperr.InvalidState("sale %s is already fully paid", sale.SaleNumber)
		}

		// 4. A tender may never overshoot what is still owed; change is
		// handled through tendered, not through amount.
		outstanding := sale.TotalAmount - sale.AmountPaid
		if amountBase > outstanding+moneyEpsilon {
			return apperr.Validation("payment of %.2f exceeds outstanding balance of %.2f", amountBase, outstanding)
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		sale.AmountPaid += amountBase
		if payment.ChangeAmount != nil {
			sale.ChangeGiven += *payment.ChangeAmount / currency.ExchangeRate
		}
		if sale.AmountPaid+moneyEpsilon >= sale.TotalAmount {
			sale.PaymentStatus = model.PaymentPaid
		} else {
			sale.PaymentStatus = model.PaymentPartial
		}
		sale.UpdatedBy = actor.UserID.String()
		return tx.Omit("Items", "Payments", "Zone").Save(&sale).Error
	})
	if err != nil {
		return nil, err
	}

	return s.saleRepo.FindByID(orgID, saleID)
}

func (s *saleService) VoidSale(orgID, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error) {
	if reason == "" {
		return nil, apperr.Validation("void reason is required")
	}

	var voided *model.Sale
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sale model.Sale
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Preload("Items").
			Where("organization_id = ?", orgID).
			First(&sale, "id = ?", saleID).Error; err != nil {
			return apperr.NotFound("sale not found")
		}
		if sale.Status == model.SaleVoided {
			return apperr.InvalidState("sale %s is already voided", sale.SaleNumber)
		}

		// 1. Reverse the carcass revenue attribution before restoring stock
		if err := s.applyCarcassRevenue(tx, &sale, actor, -1); err != nil {
			return err
		}

		// 2. Put every consumed quantity back on the lot it came from
		var movements []model.StockMovement
		if err := tx.Where("reference_type = ? AND reference_id = ? AND type = ?", "sale", sale.ID, model.MovementSale).
			Find(&movements).Error; err != nil {
			return err
		}
		for _, m := range movements {
			var lot model.StockLot
			if err := tx.Set("gorm:query_option", "FOR UPDATE").
				First(&lot, "id = ?", m.StockLotID).Error; err != nil {
				return err
			}
			restored := -m.QuantityKg
			lot.QuantityKg += restored
			lot.RecalcTotalCost()
			lot.UpdatedBy = actor.UserID.String()
			if err := tx.Save(&lot).Error; err != nil {
				return err
			}

			reversal := &model.StockMovement{
				StockLotID:    lot.ID,
				Type:          model.MovementVoid,
				QuantityKg:    restored,
				ToZoneID:      m.FromZoneID,
				Reason:        reason,
				ReferenceType: "sale",
				ReferenceID:   &sale.ID,
				PerformedBy:   actor.Name,
			}
			reversal.OrganizationID = orgID
			reversal.CreatedBy = actor.UserID.String()
			reversal.UpdatedBy = actor.UserID.String()
			if err := s.stockRepo.RecordMovement(tx, reversal); err != nil {
				return err
			}
		}

		// 3. Mark the sale voided; the row itself is never deleted
		now := time.Now()
		sale.Status = model.SaleVoided
		sale.VoidedAt = &now
		sale.VoidedBy = actor.Name
		sale.VoidReason = reason
		sale.UpdatedBy = actor.UserID.String()
		if err := tx.Omit("Items", "Payments", "Zone").Save(&sale).Error; err != nil {
			return err
		}

		voided = &sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesVoided.Inc()
	_ = s.reportCache.InvalidateOrg(context.Background(), orgID.String())
	s.log.Info("sale voided",
		zap.String("sale_number", voided.SaleNumber),
		zap.String("reason", reason))

	return voided, nil
}

func (s *saleService) HoldSale(req *HoldSaleRequest, actor Actor) (*model.HeldSale, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	subtotal := 0.0
	totalWeight := 0.0
	for _, item := range req.Items {
		if item.QuantityKg <= 0 {
			return nil, apperr.Validation("held items must have a positive quantity")
		}
		subtotal += item.QuantityKg * item.UnitPrice
		totalWeight += item.QuantityKg
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, apperr.Validation("cart items could not be serialized")
	}

	held := &model.HeldSale{
		ZoneID:        req.ZoneID,
		HeldBy:        actor.UserID,
		Items:         string(itemsJSON),
		Subtotal:      subtotal,
		TotalWeightKg: totalWeight,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Status:        model.HeldSaleHeld,
	}
	held.OrganizationID = actor.OrganizationID
	held.CreatedBy = actor.UserID.String()
	held.UpdatedBy = actor.UserID.String()

	if err := s.saleRepo.CreateHeldSale(held); err != nil {
		return nil, err
	}
	return held, nil
}

func (s *saleService) GetHeldSales(orgID uuid.UUID) ([]model.HeldSale, error) {
	return s.saleRepo.FindHeldSales(orgID)
}

func (s *saleService) RecallHeldSale(orgID, heldID uuid.UUID, version int, actor Actor) (*model.HeldSale, error) {
	rows, err := s.saleRepo.RecallHeldSale(orgID, heldID, version, actor.UserID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		held, err := s.saleRepo.FindHeldSaleByID(orgID, heldID)
		if err != nil {
			return nil, apperr.NotFound("held sale not found")
		}
		if held.Status != model.HeldSaleHeld {
			return nil, apperr.InvalidState("held sale was already recalled")
		}
		return nil, apperr.Conflict("held sale changed since it was loaded, refresh and retry")
	}
	return s.saleRepo.FindHeldSaleByID(orgID, heldID)
}
