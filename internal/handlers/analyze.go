package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"biosonar/internal/models"
	"biosonar/internal/services"
)

type AnalyzeHandler struct {
	analysis *services.AnalysisService
	timeout  time.Duration
}

func NewAnalyzeHandler(analysis *services.AnalysisService) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		timeout:  60 * time.Second,
	}
}

// Analyze handles GET /analyze?symbols=AAPL,BTC/USD
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	if !c.Context().QueryArgs().Has("symbols") {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Symbols are required",
			Message: "Comma separated tickers, e.g. AAPL,BTC/USD",
			Code:    fiber.StatusBadRequest,
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	return c.JSON(h.analysis.Analyze(ctx, c.Query("symbols")))
}
