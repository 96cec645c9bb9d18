package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gkash/gkash_ussd/internal/identity"
	"github.com/gkash/gkash_ussd/internal/ledger"
	"github.com/gkash/gkash_ussd/internal/ussd"
)

// RegisterDebugRoutes wires the operator seed endpoint, which provisions a
// user and account directly, bypassing the dialog. Dev tooling and a test
// fixture hook; not part of production dialog semantics.
func RegisterDebugRoutes(app *fiber.App, d Deps, users *identity.Service, store ledger.Store) {
	app.Post("/debug/seed-user", func(c *fiber.Ctx) error {
		var req struct {
			Phone   string `json:"phone"`
			Name    string `json:"name"`
			PIN     string `json:"pin"`
			FundKey string `json:"fundKey"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Phone == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "phone required",
			})
		}

		phone := ussd.NormalizePhone(req.Phone)
		if _, err := users.FindByPhone(c.UserContext(), phone); err == nil {
			return c.Status(http.StatusOK).JSON(fiber.Map{
				"success": false,
				"message": "user exists",
				"phone":   phone,
			})
		}

		name := req.Name
		if name == "" {
			name = "Test"
		}
		pin := req.PIN
		if pin == "" {
			pin = "1234"
		}
		fundKey := req.FundKey
		if fundKey == "" {
			fundKey = "1"
		}
		fund, ok := ussd.FundName(fundKey)
		if !ok {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "unknown fund key",
			})
		}

		accountID, err := ussd.GenerateAccountID(c.UserContext(), store)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		account := ledger.Account{
			ID:        accountID,
			Phone:     phone,
			FundKey:   fundKey,
			Fund:      fund,
			Name:      fmt.Sprintf("%s's %s", name, fund),
			CreatedAt: time.Now().UTC(),
		}
		if err := store.CreateAccount(c.UserContext(), account); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if err := store.Append(c.UserContext(), accountID, ledger.Transaction{
			Type:      ledger.TxSeed,
			CreatedAt: account.CreatedAt,
		}); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		pinHash, err := identity.HashPIN(pin)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if _, err := users.Register(c.UserContext(), identity.RegisterInput{
			Phone:      phone,
			Name:       name,
			NationalID: "00000000",
			PINHash:    pinHash,
			AccountID:  accountID,
			FundKey:    fundKey,
		}); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		d.Logger.Info("seeded user", "phone", phone, "account", accountID)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"phone":   phone,
			"account": fiber.Map{
				"id":   account.ID,
				"fund": account.Fund,
				"name": account.Name,
			},
		})
	})
}
