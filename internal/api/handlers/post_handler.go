package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vendora/socialpulse/internal/lifecycle"
	"github.com/vendora/socialpulse/internal/service"
	"github.com/vendora/socialpulse/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		AccountID:   c.FormValue("account_id"),
		ContentType: c.FormValue("content_type"),
		Caption:     c.FormValue("caption"),
		Hashtags:    c.FormValue("hashtags"),
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files selected",
		})
	}

	postID, err := h.s.CreatePost(c.Context(), vendorID, pc, files)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"status":  "draft",
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledAt, err := h.s.Schedule(c.Context(), vendorID, &req)
	if err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id":      req.PostID,
		"scheduled_at": scheduledAt.Format(time.RFC3339),
		"status":       "scheduled",
	})
}

func (h *PostHandler) BulkSchedulePosts(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)

	var req transfer.BulkScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	results, err := h.s.BulkSchedule(c.Context(), vendorID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(results)
}

func scheduleError(c *fiber.Ctx, err error) error {
	var verr *lifecycle.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "Post failed validation",
			"problems": verr.Problems,
		})
	}
	if errors.Is(err, lifecycle.ErrInvalidTransition) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if errors.Is(err, lifecycle.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post doesn't exist",
		})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Unschedule(c.Context(), vendorID, int64(postID)); err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"status":  "draft",
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Cancel(c.Context(), vendorID, int64(postID)); err != nil {
		return scheduleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"status":  "cancelled",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), vendorID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), vendorID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), vendorID, int64(postID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ProposeTimes(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	platformName := c.Query("platform")
	if platformName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platform is required",
		})
	}

	slots, err := h.s.ProposeTimes(c.Context(), vendorID, platformName,
		c.Query("content_type", "feed"), c.Query("timezone"), c.QueryInt("limit", 5))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to propose times",
		})
	}

	return c.Status(fiber.StatusOK).JSON(slots)
}

func (h *PostHandler) ScheduleConflicts(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)

	from := time.Now()
	to := from.AddDate(0, 0, c.QueryInt("days", 7))

	conflicts, err := h.s.Conflicts(c.Context(), vendorID, from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to detect conflicts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(conflicts)
}
