package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vendora/socialpulse/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(service service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: service}
}

func (h *AnalyticsHandler) PostAnalytics(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	postID := c.QueryInt("id", 0)
	if postID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	summary, err := h.s.PostSummary(c.Context(), vendorID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *AnalyticsHandler) AccountAnalytics(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	accountID := c.QueryInt("id", 0)
	if accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	to := time.Now()
	from := to.AddDate(0, 0, -c.QueryInt("days", 30))

	records, err := h.s.AccountSeries(c.Context(), vendorID, int64(accountID), from, to)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

// WebhookIntake accepts platform push notifications. It always answers
// 200 fast; processing happens out of band.
func (h *AnalyticsHandler) WebhookIntake(c *fiber.Ctx) error {
	platformName := c.Params("platform")

	if err := h.s.RecordWebhookEvent(c.Context(), platformName,
		c.Query("topic", "unknown"), c.Body()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to record event",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
