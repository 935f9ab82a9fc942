package handler

import (
	"go-meatflow/internal/model"
	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession opens a cutting session
// POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req service.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	session, err := h.sessionService.StartSession(&req, actorFromCtx(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Session started",
		"data":    session,
	})
}

// GetSessions lists sessions, optionally filtered by ?status=
// GET /api/v1/sessions
func (h *SessionHandler) GetSessions(c *fiber.Ctx) error {
	sessions, err := h.sessionService.GetSessions(actorFromCtx(c).OrganizationID, c.Query("status"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch sessions"})
	}
	return c.JSON(sessions)
}

// GetSession returns one session with its cuts
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	session, err := h.sessionService.GetSessionByID(actorFromCtx(c).OrganizationID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// AddCut records a weighed cut against an active session
// POST /api/v1/sessions/:id/cuts
func (h *SessionHandler) AddCut(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req service.AddCutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	cut, err := h.sessionService.AddCut(actor.OrganizationID, id, &req, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Cut recorded",
		"data":    cut,
	})
}

// RemoveCut deletes a mistakenly entered cut
// DELETE /api/v1/sessions/:id/cuts/:cutId
func (h *SessionHandler) RemoveCut(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}
	cutID, err := parseIDParam(c, "cutId")
	if err != nil {
		return fail(c, err)
	}

	actor := actorFromCtx(c)
	if err := h.sessionService.RemoveCut(actor.OrganizationID, id, cutID, actor); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cut removed"})
}

// RecordWaste overwrites the session's waste figure
// PUT /api/v1/sessions/:id/waste
func (h *SessionHandler) RecordWaste(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		WasteKg float64 `json:"waste_kg"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	session, err := h.sessionService.RecordWaste(actor.OrganizationID, id, req.WasteKg, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// PauseSession suspends an active session
// POST /api/v1/sessions/:id/pause
func (h *SessionHandler) PauseSession(c *fiber.Ctx) error {
	return h.lifecycle(c, h.sessionService.PauseSession)
}

// ResumeSession reactivates a paused session
// POST /api/v1/sessions/:id/resume
func (h *SessionHandler) ResumeSession(c *fiber.Ctx) error {
	return h.lifecycle(c, h.sessionService.ResumeSession)
}

// CancelSession abandons a session and releases its carcass
// POST /api/v1/sessions/:id/cancel
func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	return h.lifecycle(c, h.sessionService.CancelSession)
}

func (h *SessionHandler) lifecycle(c *fiber.Ctx, op func(orgID, sessionID uuid.UUID, actor service.Actor) (*model.CuttingSession, error)) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	actor := actorFromCtx(c)
	session, err := op(actor.OrganizationID, id, actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// CompleteSession finalizes a session and posts its output to stock
// POST /api/v1/sessions/:id/complete
func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req service.CompleteSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFromCtx(c)
	result, err := h.sessionService.CompleteSession(actor.OrganizationID, id, &req, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Session completed",
		"data":     result.Session,
		"warnings": result.Warnings,
	})
}
