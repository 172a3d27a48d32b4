package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"biosonar/internal/models"
)

// Version is reported by the health endpoints and the CLI.
const Version = "1.0.0"

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: err.Error(),
		Code:    code,
	})
}
