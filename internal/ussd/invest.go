package ussd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gkash/gkash_ussd/internal/identity"
	"github.com/gkash/gkash_ussd/internal/ledger"
	"github.com/gkash/gkash_ussd/internal/mpesa"
)

// handleInvest walks the deposit dialog: optional account selection, amount,
// PIN, then a collection request and ledger credit.
func (r *Router) handleInvest(ctx context.Context, phone string, tokens []string) string {
	accounts, err := r.store.AccountsByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("list accounts", "phone", phone, "error", err)
		return End(msgGenericError)
	}
	if len(accounts) == 0 {
		return End(msgNoAccounts)
	}

	const prompt = "Select account to invest into"
	if len(accounts) > 1 && len(tokens) == 1 {
		return selectAccountPrompt(accounts, prompt)
	}
	account, ok, offset := Resolve(accounts, tokens)
	if !ok {
		return selectAccountPrompt(accounts, prompt)
	}

	if len(tokens) == offset {
		return Continue(fmt.Sprintf("Enter amount to invest (%s)", r.cfg.Currency))
	}
	amount, valid := parseAmount(tokens[offset])
	if !valid {
		return Continue(fmt.Sprintf("Invalid amount. Enter a positive number (%s)", r.cfg.Currency))
	}
	if len(tokens) == offset+1 {
		return Continue("Enter your PIN")
	}
	if len(tokens) != offset+2 {
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
	if err := r.users.VerifyPIN(user, tokens[offset+1]); err != nil {
		return End(msgInvalidPIN)
	}

	// A provider outage degrades to a direct ledger credit rather than
	// blocking the user.
	payCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
	defer cancel()
	result, err := r.gateway.RequestCollection(payCtx, mpesa.CollectionInput{
		Phone:       phone,
		Amount:      amount,
		Reference:   account.ID,
		Description: fmt.Sprintf("%s Investment - %s", r.cfg.AppName, account.Name),
	})
	if err != nil {
		r.logger.Warn("collection request failed, crediting directly",
			"phone", phone, "account", account.ID, "error", err)
	} else {
		r.logger.Info("collection requested",
			"account", account.ID, "provider_ref", result.Reference)
	}

	balance, err := r.store.Credit(ctx, account.ID, amount)
	if err != nil {
		r.logger.Error("credit account", "account", account.ID, "error", err)
		return End(msgGenericError)
	}
	if err := r.store.Append(ctx, account.ID, ledger.Transaction{
		Type:      ledger.TxDeposit,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		r.logger.Warn("journal deposit", "account", account.ID, "error", err)
	}

	r.notify(phone, fmt.Sprintf("Investment of %s successful. New balance: %s",
		r.kes(amount), r.kes(balance)))

	return End(
		fmt.Sprintf("Investment of %s into %s successful.", r.kes(amount), account.Name),
		fmt.Sprintf("New balance: %s", r.kes(balance)),
	)
}
