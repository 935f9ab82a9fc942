package handler

import (
	"strconv"
	"time"

	"go-meatflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// dateRange reads ?from= and ?to= (YYYY-MM-DD), defaulting to the last week.
func dateRange(c *fiber.Ctx) (string, string) {
	to := c.Query("to", time.Now().Format("2006-01-02"))
	from := c.Query("from", time.Now().AddDate(0, 0, -7).Format("2006-01-02"))
	return from, to
}

// GetSalesSummary returns revenue totals for a date range
// GET /api/v1/reports/sales
func (h *ReportHandler) GetSalesSummary(c *fiber.Ctx) error {
	from, to := dateRange(c)
	report, err := h.reportService.SalesSummary(c.Context(), actorFromCtx(c).OrganizationID, from, to)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build sales summary"})
	}
	return c.JSON(report)
}

// GetStockValuation returns what is on hand and what it cost
// GET /api/v1/reports/stock-valuation
func (h *ReportHandler) GetStockValuation(c *fiber.Ctx) error {
	report, err := h.reportService.StockValuation(c.Context(), actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build stock valuation"})
	}
	return c.JSON(report)
}

// GetYieldReport returns per-carcass yield and margin
// GET /api/v1/reports/yield
func (h *ReportHandler) GetYieldReport(c *fiber.Ctx) error {
	fromStr, toStr := dateRange(c)
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
	}

	report, err := h.reportService.CarcassYieldReport(c.Context(), actorFromCtx(c).OrganizationID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build yield report"})
	}
	return c.JSON(report)
}

// GetTopProducts returns the best sellers by revenue
// GET /api/v1/reports/top-products
func (h *ReportHandler) GetTopProducts(c *fiber.Ctx) error {
	from, to := dateRange(c)
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	rows, err := h.reportService.TopProducts(c.Context(), actorFromCtx(c).OrganizationID, from, to, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build top products"})
	}
	return c.JSON(rows)
}

// GetDashboardStats returns the landing-page numbers
// GET /api/v1/dashboard/stats
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.reportService.DashboardStats(c.Context(), actorFromCtx(c).OrganizationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build dashboard stats"})
	}
	return c.JSON(stats)
}

// GetStockMovement returns the produced/sold series for the chart
// GET /api/v1/dashboard/stock-movement
func (h *ReportHandler) GetStockMovement(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "7"))
	series, err := h.reportService.MovementSeries(actorFromCtx(c).OrganizationID, days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to build movement series"})
	}
	return c.JSON(series)
}
