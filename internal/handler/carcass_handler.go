package handler

import (
	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CarcassHandler struct {
	carcassService service.CarcassService
}

func NewCarcassHandler(carcassService service.CarcassService) *CarcassHandler {
	return &CarcassHandler{carcassService: carcassService}
}

// ReceiveCarcass books a carcass into the system
// POST /api/v1/carcasses
func (h *CarcassHandler) ReceiveCarcass(c *fiber.Ctx) error {
	var req service.ReceiveCarcassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	carcass, err := h.carcassService.ReceiveCarcass(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Carcass received",
		"data":    carcass,
	})
}

// GetCarcasses lists carcasses, optionally filtered by ?status=
// GET /api/v1/carcasses
func (h *CarcassHandler) GetCarcasses(c *fiber.Ctx) error {
	carcasses, err := h.carcassService.GetCarcasses(actorFromCtx(c).OrganizationID, c.Query("status"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch carcasses"})
	}
	return c.JSON(carcasses)
}

// GetCarcass returns one carcass
// GET /api/v1/carcasses/:id
func (h *CarcassHandler) GetCarcass(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	carcass, err := h.carcassService.GetCarcassByID(actorFromCtx(c).OrganizationID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(carcass)
}

// UpdateCarcassNotes updates the free-text notes on a carcass
// PUT /api/v1/carcasses/:id/notes
func (h *CarcassHandler) UpdateCarcassNotes(c *fiber.Ctx) error {
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
	carcass, err := h.carcassService.UpdateCarcassNotes(actor.OrganizationID, id, req.Notes, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(carcass)
}
