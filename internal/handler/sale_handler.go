package handler

import (
	"strconv"

	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// CreateSale completes a checkout and decrements stock
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	sale, err := h.saleService.CreateSale(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Sale completed",
		"data":    sale,
	})
}

// GetSales lists sales, filtered by ?date= and ?status=
// GET /api/v1/sales
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	sales, err := h.saleService.GetSales(actorFromCtx(c).OrganizationID, c.Query("date"), c.Query("status"), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch sales"})
	}
	return c.JSON(sales)
}

// GetSale returns one sale with items and payments
// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	sale, err := h.saleService.GetSaleByID(actorFromCtx(c).OrganizationID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sale)
}

// ProcessPayment records a tender against a sale
// POST /api/v1/sales/:id/payments
func (h *SaleHandler) ProcessPayment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req service.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	sale, err := h.saleService.ProcessPayment(actor.OrganizationID, id, &req, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Payment recorded",
		"data":    sale,
	})
}

// VoidSale reverses a completed sale, restoring its stock
// POST /api/v1/sales/:id/void
func (h *SaleHandler) VoidSale(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	sale, err := h.saleService.VoidSale(actor.OrganizationID, id, req.Reason, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Sale voided",
		"data":    sale,
	})
}

// HoldSale parks the current cart
// POST /api/v1/sales/hold
func (h *SaleHandler) HoldSale(c *fiber.Ctx) error {
	var req service.HoldSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	held, err := h.saleService.HoldSale(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Sale held",
		"data":    held,
	})
}

// GetHeldSales lists parked carts
// GET /api/v1/sales/held
func (h *SaleHandler) GetHeldSales(c *fiber.Ctx) error {
	held, err := h.saleService.GetHeldSales(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch held sales"})
	}
	return c.JSON(held)
}

// RecallHeldSale restores a parked cart to the POS
// POST /api/v1/sales/held/:id/recall
func (h *SaleHandler) RecallHeldSale(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Version int `json:"version"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	held, err := h.saleService.RecallHeldSale(actor.OrganizationID, id, req.Version, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Sale recalled",
		"data":    held,
	})
}
