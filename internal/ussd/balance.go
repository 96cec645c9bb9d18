package ussd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gkash/gkash_ussd/internal/identity"
)

// handleCheckBalance walks account selection and PIN check, then reports the
// balance in a terminal response.
func (r *Router) handleCheckBalance(ctx context.Context, phone string, tokens []string) string {
	accounts, err := r.store.AccountsByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("list accounts", "phone", phone, "error", err)
		return End(msgGenericError)
	}
	if len(accounts) == 0 {
		return End(msgNoAccounts)
	}

	const prompt = "Select account to view balance"
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

	return End(fmt.Sprintf("Current Balance: %s", r.kes(account.Balance)))
}
