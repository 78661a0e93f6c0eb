package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vendora/socialpulse/internal/service"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)

	var req service.ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	accountID, err := h.s.Connect(c.Context(), vendorID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
	})
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	accountID := c.QueryInt("id", 0)

	if accountID != 0 {
		account, err := h.s.AccountInfo(c.Context(), int64(accountID), vendorID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get account",
			})
		}
		return c.Status(fiber.StatusOK).JSON(account)
	}

	accounts, err := h.s.List(c.Context(), vendorID, c.Query("platform"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) TestConnection(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	accountID := c.QueryInt("id", 0)

	ok, err := h.s.TestConnection(c.Context(), vendorID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected": ok,
	})
}

func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	vendorID := GetVendorID(c)
	accountID := c.QueryInt("id", 0)

	if err := h.s.Disconnect(c.Context(), vendorID, int64(accountID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
