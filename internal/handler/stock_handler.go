package handler

import (
	"strconv"

	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func optionalIDQuery(c *fiber.Ctx, name string) *uuid.UUID {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// GetLots lists stock lots, filtered by ?zone_id= and ?product_id=
// GET /api/v1/stock/lots
func (h *StockHandler) GetLots(c *fiber.Ctx) error {
	lots, err := h.stockService.GetLots(actorFromCtx(c).OrganizationID, optionalIDQuery(c, "zone_id"), optionalIDQuery(c, "product_id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stock"})
	}
	return c.JSON(lots)
}

// GetStockByProduct returns the per-product aggregate the POS shows
// GET /api/v1/stock/by-product
func (h *StockHandler) GetStockByProduct(c *fiber.Ctx) error {
	rows, err := h.stockService.GetStockByProduct(actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stock"})
	}
	return c.JSON(rows)
}

// GetMovements lists the movement ledger, filtered by ?lot_id=
// GET /api/v1/stock/movements
func (h *StockHandler) GetMovements(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	movements, err := h.stockService.GetMovements(actorFromCtx(c).OrganizationID, optionalIDQuery(c, "lot_id"), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch movements"})
	}
	return c.JSON(movements)
}

// TransferStock moves quantity from one zone to another
// POST /api/v1/stock/transfers
func (h *StockHandler) TransferStock(c *fiber.Ctx) error {
	var req service.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	lot, err := h.stockService.TransferStock(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Stock transferred",
		"data":    lot,
	})
}

// AdjustStock corrects a lot's quantity with a mandatory reason
// POST /api/v1/stock/adjustments
func (h *StockHandler) AdjustStock(c *fiber.Ctx) error {
	var req service.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	lot, err := h.stockService.AdjustStock(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Stock adjusted",
		"data":    lot,
	})
}
