package ussd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gkash/gkash_ussd/internal/identity"
)

const recentTransactionCount = 3

// handleTrack reports an account's balance plus its most recent journal
// entries after the usual selection and PIN steps.
func (r *Router) handleTrack(ctx context.Context, phone string, tokens []string) string {
	accounts, err := r.store.AccountsByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("list accounts", "phone", phone, "error", err)
		return End(msgGenericError)
	}
	if len(accounts) == 0 {
		return End(msgNoAccounts)
	}

	const prompt = "Select account to track"
	if len(accounts) > 1 && len(tokens) == 1 {
		return selectAccountPrompt(accounts, prompt)
	}
	account, ok, offset := Resolve(accounts, tokens)
	if !ok {
		return selectAccountPrompt(accounts, prompt)
	}

	if len(tokens) == offset {
		return Continue("Enter your PIN")
	}
	if len(tokens) != offset+1 {
		return End(msgInvalidRequest)
	}

	user, err := r.users.FindByPhone(ctx, phone)
	if errors.Is(err, identity.ErrUserNotFound) {
		return End(msgNoUser)
	}
	if err != nil {
		r.logger.Error("lookup user", "phone", phone, "error", err)
		return End(msgGenericError)
	}
	if err := r.users.VerifyPIN(user, tokens[offset]); err != nil {
		return End(msgInvalidPIN)
	}

	lines := []string{
		fmt.Sprintf("Account: %s", account.Name),
		fmt.Sprintf("Fund: %s", account.Fund),
		fmt.Sprintf("Balance: %s", r.kes(account.Balance)),
	}

	entries, err := r.store.Recent(ctx, account.ID, recentTransactionCount)
	if err != nil {
		r.logger.Warn("load recent transactions", "account", account.ID, "error", err)
	}
	if len(entries) > 0 {
		lines = append(lines, "Recent:")
		for i, tx := range entries {
			line := fmt.Sprintf("%d. %s", i+1, tx.Type)
			if tx.Amount > 0 {
				line += " " + r.kes(tx.Amount)
			}
			lines = append(lines, line)
		}
	}

	return End(lines...)
}
