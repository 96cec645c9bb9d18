package ussd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gkash/gkash_ussd/internal/ledger"
)

// handleManage lists the user's accounts with one extra "create new" entry.
// Selecting an existing account makes it the default; selecting the extra
// entry re-enters the create-account dialog with the remaining tokens.
func (r *Router) handleManage(ctx context.Context, phone string, tokens []string) string {
	accounts, err := r.store.AccountsByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("list accounts", "phone", phone, "error", err)
		return End(msgGenericError)
	}

	if len(tokens) == 1 {
		return manageMenu(accounts)
	}

	sel, err := strconv.Atoi(tokens[1])
	if err != nil || sel < 1 {
		return Continue("Invalid choice. Try again.")
	}

	// The create-new entry sits after the account list; with no accounts it
	// is the only entry.
	if (len(accounts) == 0 && sel == 1) || sel == len(accounts)+1 {
		return r.handleCreateAccount(ctx, phone, tokens[1:])
	}

	if len(tokens) == 2 && sel <= len(accounts) {
		account := accounts[sel-1]
		if err := r.users.SetDefaultAccount(ctx, phone, account.ID); err != nil {
			r.logger.Error("set default account", "phone", phone, "error", err)
			return End(msgGenericError)
		}
		return End(fmt.Sprintf("Switched default account to %s (%s)", account.Name, account.ID))
	}

	return End("Invalid selection.")
}

func manageMenu(accounts []ledger.Account) string {
	if len(accounts) == 0 {
		return Continue("You have no accounts.", "1. Create account")
	}
	lines := make([]string, 0, len(accounts)+2)
	lines = append(lines, "Manage accounts:")
	for i, account := range accounts {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, account.Name, account.ID))
	}
	lines = append(lines, fmt.Sprintf("%d. Create new account", len(accounts)+1))
	return Continue(lines...)
}
