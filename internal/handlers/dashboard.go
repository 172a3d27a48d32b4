package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"

	"biosonar/internal/dashboard"
	"biosonar/internal/models"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type DashboardHandler struct {
	dashboard *dashboard.Dashboard
	loc       *time.Location
}

func NewDashboardHandler(d *dashboard.Dashboard, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardHandler{
		dashboard: d,
		loc:       loc,
	}
}

// Page handles GET /. The first display starts the initial analysis.
func (h *DashboardHandler) Page(c *fiber.Ctx) error {
	h.dashboard.Mount()

	view := dashboard.Render(h.dashboard.Snapshot(), h.loc)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// Submit handles POST /analyze from the page form.
func (h *DashboardHandler) Submit(c *fiber.Ctx) error {
	if args := c.Request().PostArgs(); args.Has("symbols") {
		h.dashboard.SetSymbols(string(args.Peek("symbols")))
	}
	h.dashboard.Trigger()

	return c.Redirect("/", fiber.StatusSeeOther)
}

type stateResponse struct {
	dashboard.State
	Policy string          `json:"policy"`
	View   dashboard.View `json:"view"`
}

// State handles GET /api/state
func (h *DashboardHandler) State(c *fiber.Ctx) error {
	s := h.dashboard.Snapshot()
	return c.JSON(stateResponse{
		State:  s,
		Policy: h.dashboard.Policy().String(),
		View:   dashboard.Render(s, h.loc),
	})
}

type symbolsRequest struct {
	Symbols *string `json:"symbols"`
}

// SetSymbols handles PUT /api/symbols. It only edits the text.
func (h *DashboardHandler) SetSymbols(c *fiber.Ctx) error {
	var req symbolsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    fiber.StatusBadRequest,
		})
	}
	if req.Symbols == nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Symbols are required",
			Message: `Expected {"symbols": "..."}`,
			Code:    fiber.StatusBadRequest,
		})
	}

	h.dashboard.SetSymbols(*req.Symbols)
	return c.JSON(fiber.Map{"symbols": *req.Symbols})
}

// Trigger handles POST /api/analyze
func (h *DashboardHandler) Trigger(c *fiber.Ctx) error {
	seq := h.dashboard.Trigger()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"seq": seq})
}
