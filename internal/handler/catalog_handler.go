package handler

import (
	"go-meatflow/internal/model"
	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// GetProducts lists the org's products
// GET /api/v1/products
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.catalogService.GetProducts(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch products"})
	}
	return c.JSON(products)
}

// CreateProduct adds a product
// POST /api/v1/products
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req model.Product
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalogService.CreateProduct(&req, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": req})
}

// UpdateProduct edits a product
// PUT /api/v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req model.Product
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.catalogService.UpdateProduct(id, &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

// GetZones lists storage and sale zones
// GET /api/v1/zones
func (h *CatalogHandler) GetZones(c *fiber.Ctx) error {
	zones, err := h.catalogService.GetZones(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch zones"})
	}
	return c.JSON(zones)
}

// CreateZone adds a zone
// POST /api/v1/zones
func (h *CatalogHandler) CreateZone(c *fiber.Ctx) error {
	var req model.Zone
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalogService.CreateZone(&req, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Zone created", "data": req})
}

// UpdateZone edits a zone
// PUT /api/v1/zones/:id
func (h *CatalogHandler) UpdateZone(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req model.Zone
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	zone, err := h.catalogService.UpdateZone(id, &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Zone updated", "data": zone})
}

// GetSuppliers lists suppliers
// GET /api/v1/suppliers
func (h *CatalogHandler) GetSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.catalogService.GetSuppliers(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch suppliers"})
	}
	return c.JSON(suppliers)
}

// CreateSupplier adds a supplier
// POST /api/v1/suppliers
func (h *CatalogHandler) CreateSupplier(c *fiber.Ctx) error {
	var req model.Supplier
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalogService.CreateSupplier(&req, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Supplier created", "data": req})
}

// GetGrades lists quality grades
// GET /api/v1/grades
func (h *CatalogHandler) GetGrades(c *fiber.Ctx) error {
	grades, err := h.catalogService.GetGrades(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch grades"})
	}
	return c.JSON(grades)
}

// CreateGrade adds a quality grade
// POST /api/v1/grades
func (h *CatalogHandler) CreateGrade(c *fiber.Ctx) error {
	var req model.Grade
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalogService.CreateGrade(&req, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Grade created", "data": req})
}

// GetCurrencies lists active currencies with rates
// GET /api/v1/currencies
func (h *CatalogHandler) GetCurrencies(c *fiber.Ctx) error {
	currencies, err := h.catalogService.GetCurrencies(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch currencies"})
	}
	return c.JSON(currencies)
}

// CreateCurrency adds a tender currency
// POST /api/v1/currencies
func (h *CatalogHandler) CreateCurrency(c *fiber.Ctx) error {
	var req model.Currency
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalogService.CreateCurrency(&req, actorFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Currency created", "data": req})
}

// UpdateCurrency edits a currency's rate or float
// PUT /api/v1/currencies/:code
func (h *CatalogHandler) UpdateCurrency(c *fiber.Ctx) error {
	var req service.UpdateCurrencyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	currency, err := h.catalogService.UpdateCurrency(c.Params("code"), &req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Currency updated", "data": currency})
}
