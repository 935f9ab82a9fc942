package handler

import (
	"strconv"

	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ClosingHandler struct {
	closingService service.ClosingService
}

func NewClosingHandler(closingService service.ClosingService) *ClosingHandler {
	return &ClosingHandler{closingService: closingService}
}

// StartClosing opens the reconciliation for a date
// POST /api/v1/closings
func (h *ClosingHandler) StartClosing(c *fiber.Ctx) error {
	var req service.StartClosingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	closing, err := h.closingService.StartClosing(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Closing started",
		"data":    closing,
	})
}

// GetClosings lists closings, optionally filtered by ?status=
// GET /api/v1/closings
func (h *ClosingHandler) GetClosings(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "30"))
	closings, err := h.closingService.GetClosings(actorFromCtx(c).OrganizationID, c.Query("status"), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch closings"})
	}
	return c.JSON(closings)
}

// GetClosing returns one closing with its counts
// GET /api/v1/closings/:id
func (h *ClosingHandler) GetClosing(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	closing, err := h.closingService.GetClosingByID(actorFromCtx(c).OrganizationID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(closing)
}

// RecordStockCountItem files one product's physical count
// PUT /api/v1/closings/count-items/:id
func (h *ClosingHandler) RecordStockCountItem(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req service.RecordCountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	item, err := h.closingService.RecordStockCountItem(actor.OrganizationID, id, &req, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(item)
}

// CompleteStockCount closes a zone's count once every item is in
// POST /api/v1/closings/stock-counts/:id/complete
func (h *ClosingHandler) CompleteStockCount(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	actor := actorFromCtx(c)
	count, err := h.closingService.CompleteStockCount(actor.OrganizationID, id, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(count)
}

// RecordCashCount files a till count for one currency
// PUT /api/v1/closings/cash-counts/:id
func (h *ClosingHandler) RecordCashCount(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req service.RecordCashCountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	cash, err := h.closingService.RecordCashCount(actor.OrganizationID, id, &req, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cash)
}

// CompleteClosing finalizes the day
// POST /api/v1/closings/:id/complete
func (h *ClosingHandler) CompleteClosing(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	closing, err := h.closingService.CompleteClosing(actor.OrganizationID, id, req.Notes, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Closing completed",
		"data":    closing,
	})
}
