package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gkash/gkash_ussd/internal/middleware"
	"github.com/gkash/gkash_ussd/internal/mpesa"
)

const callbackDedupeTTL = 24 * time.Hour

// RegisterPaymentRoutes wires the standalone collection-request API and the
// provider's asynchronous result callback.
func RegisterPaymentRoutes(app *fiber.App, d Deps, gateway mpesa.Gateway) {
	app.Post("/api/mpesa/stkpush", func(c *fiber.Ctx) error {
		var req struct {
			Phone            string `json:"phone"`
			Amount           int64  `json:"amount"`
			AccountID        string `json:"accountId"`
			AccountReference string `json:"accountReference"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Phone == "" || req.Amount <= 0 || req.AccountID == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "phone, amount, and accountId are required",
			})
		}

		reference := req.AccountReference
		if reference == "" {
			reference = req.AccountID
		}

		result, err := gateway.RequestCollection(c.UserContext(), mpesa.CollectionInput{
			Phone:       req.Phone,
			Amount:      req.Amount,
			Reference:   reference,
			Description: "Deposit to " + req.AccountID,
		})
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Failed to initiate STK Push",
				"error":   err.Error(),
			})
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":   true,
			"message":   "STK Push initiated. Check your phone for payment prompt.",
			"reference": result.Reference,
			"status":    result.Status,
		})
	})

	// Settlement results arrive here asynchronously. Reconciliation against
	// the ledger is handled out of band; the provider only needs the fixed
	// acknowledgement.
	app.Post("/mpesa/callback",
		middleware.CallbackDedupe(d.Cache, callbackDedupeTTL, d.Logger),
		func(c *fiber.Ctx) error {
			var envelope mpesa.CallbackEnvelope
			if err := c.BodyParser(&envelope); err != nil {
				d.Logger.Warn("malformed payment callback", "error", err)
				return c.Status(http.StatusOK).JSON(mpesa.Accepted())
			}

			cb := envelope.Body.STKCallback
			attrs := []any{
				"checkout_request_id", cb.CheckoutRequestID,
				"result_code", cb.ResultCode,
				"result_desc", cb.ResultDesc,
			}
			if amount, ok := cb.CallbackMetadata.Value("Amount"); ok {
				attrs = append(attrs, "amount", amount)
			}
			if receipt, ok := cb.CallbackMetadata.Value("MpesaReceiptNumber"); ok {
				attrs = append(attrs, "receipt", receipt)
			}

			if cb.ResultCode == 0 {
				d.Logger.Info("payment confirmed", attrs...)
			} else {
				d.Logger.Info("payment failed", attrs...)
			}

			return c.Status(http.StatusOK).JSON(mpesa.Accepted())
		})
}
