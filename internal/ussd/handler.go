package ussd

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the per-keystroke dialog endpoint.
type Handler struct {
	router *Router
	logger *slog.Logger
}

// NewHandler constructs the USSD HTTP handler.
func NewHandler(router *Router, logger *slog.Logger) *Handler {
	return &Handler{router: router, logger: logger}
}

// Gateways deliver either urlencoded forms or JSON; both carry the phone and
// the full cumulative text.
type dialRequest struct {
	SessionID   string `json:"sessionId" form:"sessionId"`
	ServiceCode string `json:"serviceCode" form:"serviceCode"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Phone       string `json:"phone" form:"phone"`
	Text        string `json:"text" form:"text"`
}

// Dial handles one keystroke. Business-logic failures still answer with HTTP
// 200: the CON/END marker carries the outcome, not the status code.
func (h *Handler) Dial(c *fiber.Ctx) error {
	var req dialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	phone := NormalizePhone(req.PhoneNumber)
	if phone == "" {
		phone = NormalizePhone(req.Phone)
	}
	if phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone number is required")
	}

	response := h.router.Handle(c.UserContext(), phone, req.Text)

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(response)
}
