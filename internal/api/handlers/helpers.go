package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func GetVendorID(c *fiber.Ctx) int64 {
	vendorID, _ := strconv.Atoi(c.Locals("vendor_id").(string))
	return int64(vendorID)
}
