package service

import (
	"github.com/google/uuid"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/pkg/validator"
)

// CatalogService manages the org-scoped reference data the trading flows
// depend on. Uniqueness of SKUs and currency codes is enforced here, scoped
// to the organization.
type CatalogService interface {
	CreateProduct(req *model.Product, actor Actor) error
	UpdateProduct(id uuid.UUID, req *model.Product, actor Actor) (*model.Product, error)
	GetProducts(orgID uuid.UUID) ([]model.Product, error)

	CreateZone(req *model.Zone, actor Actor) error
	UpdateZone(id uuid.UUID, req *model.Zone, actor Actor) (*model.Zone, error)
	GetZones(orgID uuid.UUID) ([]model.Zone, error)

	CreateSupplier(req *model.Supplier, actor Actor) error
	GetSuppliers(orgID uuid.UUID) ([]model.Supplier, error)

	CreateGrade(req *model.Grade, actor Actor) error
	GetGrades(orgID uuid.UUID) ([]model.Grade, error)

	CreateCurrency(req *model.Currency, actor Actor) error
	UpdateCurrency(code string, req *UpdateCurrencyRequest, actor Actor) (*model.Currency, error)
	GetCurrencies(orgID uuid.UUID) ([]model.Currency, error)
}

type UpdateCurrencyRequest struct {
	ExchangeRate *float64 `json:"exchange_rate" validate:"omitempty,gt=0"`
	OpeningFloat *float64 `json:"opening_float" validate:"omitempty,gte=0"`
	IsActive     *bool    `json:"is_active"`
}

type catalogService struct {
	productRepo  repository.ProductRepository
	zoneRepo     repository.ZoneRepository
	supplierRepo repository.SupplierRepository
	gradeRepo    repository.GradeRepository
	currencyRepo repository.CurrencyRepository
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	zoneRepo repository.ZoneRepository,
	supplierRepo repository.SupplierRepository,
	gradeRepo repository.GradeRepository,
	currencyRepo repository.CurrencyRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		zoneRepo:     zoneRepo,
		supplierRepo: supplierRepo,
		gradeRepo:    gradeRepo,
		currencyRepo: currencyRepo,
	}
}

func validateReq(req interface{}) error {
	if err := validator.ValidateStruct(req); err != nil {
		return apperr.Validation("%s", err)
	}
	return nil
}

func (s *catalogService) CreateProduct(req *model.Product, actor Actor) error {
	if err := validateReq(req); err != nil {
		return err
	}

	existing, _ := s.productRepo.FindBySKU(actor.OrganizationID, req.SKU)
	if existing != nil && existing.ID != uuid.Nil {
		return apperr.Conflict("SKU %s already exists", req.SKU)
	}

	if req.TaxRatePercent == 0 {
		req.TaxRatePercent = 15
	}
	req.OrganizationID = actor.OrganizationID
	req.IsActive = true
	req.CreatedBy = actor.UserID.String()
	req.UpdatedBy = actor.UserID.String()
	userID := actor.UserID.String()
	req.CreatedByUserID = &userID
	req.UpdatedByUserID = &userID

	return s.productRepo.Create(req)
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product, actor Actor) (*model.Product, error) {
	if err := validateReq(req); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, apperr.NotFound("product not found")
	}

	if req.SKU != existing.SKU {
		dup, _ := s.productRepo.FindBySKU(actor.OrganizationID, req.SKU)
		if dup != nil && dup.ID != id {
			return nil, apperr.Conflict("SKU %s already exists", req.SKU)
		}
	}

	existing.SKU = req.SKU
	existing.Name = req.Name
	existing.Category = req.Category
	existing.PricePerKg = req.PricePerKg
	existing.TaxRatePercent = req.TaxRatePercent
	existing.MinimumStockKg = req.MinimumStockKg
	existing.CanBeSold = req.CanBeSold
	existing.IsActive = req.IsActive
	existing.UpdatedBy = actor.UserID.String()
	userID := actor.UserID.String()
	existing.UpdatedByUserID = &userID

	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) GetProducts(orgID uuid.UUID) ([]model.Product, error) {
	return s.productRepo.FindAll(orgID)
}

func (s *catalogService) CreateZone(req *model.Zone, actor Actor) error {
	if err := validateReq(req); err != nil {
		return err
	}

	req.OrganizationID = actor.OrganizationID
	req.IsActive = true
	req.CreatedBy = actor.UserID.String()
	req.UpdatedBy = actor.UserID.String()
	return s.zoneRepo.Create(req)
}

func (s *catalogService) UpdateZone(id uuid.UUID, req *model.Zone, actor Actor) (*model.Zone, error) {
	if err := validateReq(req); err != nil {
		return nil, err
	}

	existing, err := s.zoneRepo.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, apperr.NotFound("zone not found")
	}

	existing.Name = req.Name
	existing.Code = req.Code
	existing.ZoneType = req.ZoneType
	existing.IsDefaultReceiving = req.IsDefaultReceiving
	existing.IsPOSZone = req.IsPOSZone
	existing.IsActive = req.IsActive
	existing.UpdatedBy = actor.UserID.String()

	if err := s.zoneRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) GetZones(orgID uuid.UUID) ([]model.Zone, error) {
	return s.zoneRepo.FindAll(orgID)
}

func (s *catalogService) CreateSupplier(req *model.Supplier, actor Actor) error {
	if err := validateReq(req); err != nil {
		return err
	}

	req.OrganizationID = actor.OrganizationID
	req.IsActive = true
	req.CreatedBy = actor.UserID.String()
	req.UpdatedBy = actor.UserID.String()
	return s.supplierRepo.Create(req)
}

func (s *catalogService) GetSuppliers(orgID uuid.UUID) ([]model.Supplier, error) {
	return s.supplierRepo.FindAll(orgID)
}

func (s *catalogService) CreateGrade(req *model.Grade, actor Actor) error {
	if err := validateReq(req); err != nil {
		return err
	}

	req.OrganizationID = actor.OrganizationID
	req.IsActive = true
	req.CreatedBy = actor.UserID.String()
	req.UpdatedBy = actor.UserID.String()
	return s.gradeRepo.Create(req)
}

func (s *catalogService) GetGrades(orgID uuid.UUID) ([]model.Grade, error) {
	return s.gradeRepo.FindAll(orgID)
}

func (s *catalogService) CreateCurrency(req *model.Currency, actor Actor) error {
	if err := validateReq(req); err != nil {
		return err
	}
	if req.ExchangeRate <= 0 {
		return apperr.Validation("exchange_rate must be positive")
	}

	existing, _ := s.currencyRepo.FindByCode(actor.OrganizationID, req.Code)
	if existing != nil && existing.ID != uuid.Nil {
		return apperr.Conflict("currency %s already exists", req.Code)
	}

	req.OrganizationID = actor.OrganizationID
	req.IsActive = true
	req.CreatedBy = actor.UserID.String()
	req.UpdatedBy = actor.UserID.String()
	return s.currencyRepo.Create(req)
}

func (s *catalogService) UpdateCurrency(code string, req *UpdateCurrencyRequest, actor Actor) (*model.Currency, error) {
	if err := validateReq(req); err != nil {
		return nil, err
	}

	currency, err := s.currencyRepo.FindByCode(actor.OrganizationID, code)
	if err != nil {
		return nil, apperr.NotFound("currency %s not found", code)
	}

	if req.ExchangeRate != nil {
		currency.ExchangeRate = *req.ExchangeRate
	}
	if req.OpeningFloat != nil {
		currency.OpeningFloat = *req.OpeningFloat
	}
	if req.IsActive != nil {
		currency.IsActive = *req.IsActive
	}
	currency.UpdatedBy = actor.UserID.String()

	if err := s.currencyRepo.Update(currency); err != nil {
		return nil, err
	}
	return currency, nil
}

func (s *catalogService) GetCurrencies(orgID uuid.UUID) ([]model.Currency, error) {
	return s.currencyRepo.FindActive(orgID)
}
