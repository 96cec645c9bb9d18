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

// handleWithdraw mirrors the invest dialog but debits, and additionally
// refuses to take the balance below zero.
func (r *Router) handleWithdraw(ctx context.Context, phone string, tokens []string) string {
	accounts, err := r.store.AccountsByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("list accounts", "phone", phone, "error", err)
		return End(msgGenericError)
	}
	if len(accounts) == 0 {
		return End(msgNoAccounts)
	}

	const prompt = "Select account to withdraw from"
	if len(accounts) > 1 && len(tokens) == 1 {
		return selectAccountPrompt(accounts, prompt)
	}
	account, ok, offset := Resolve(accounts, tokens)
	if !ok {
		return selectAccountPrompt(accounts, prompt)
	}

	if len(tokens) == offset {
		return Continue(fmt.Sprintf("Enter amount to withdraw (%s)", r.cfg.Currency))
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

	if amount > account.Balance {
		return End(fmt.Sprintf("Insufficient balance. Available: %s", r.kes(account.Balance)))
	}

	// Same degradation policy as invest: a failed disbursement request does
	// not block the withdrawal, it is retried out of band.
	payCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
	defer cancel()
	result, err := r.gateway.RequestDisbursement(payCtx, mpesa.DisbursementInput{
		Phone:   phone,
		Amount:  amount,
		Remarks: fmt.Sprintf("%s Withdrawal - %s", r.cfg.AppName, account.Name),
	})
	if err != nil {
		r.logger.Warn("disbursement request failed, debiting directly",
			"phone", phone, "account", account.ID, "error", err)
	} else {
		r.logger.Info("disbursement requested",
			"account", account.ID, "provider_ref", result.Reference)
	}

	balance, err := r.store.Debit(ctx, account.ID, amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return End(fmt.Sprintf("Insufficient balance. Available: %s", r.kes(balance)))
	}
	if err != nil {
		r.logger.Error("debit account", "account", account.ID, "error", err)
		return End(msgGenericError)
	}
	if err := r.store.Append(ctx, account.ID, ledger.Transaction{
		Type:      ledger.TxWithdraw,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		r.logger.Warn("journal withdrawal", "account", account.ID, "error", err)
	}

	r.notify(phone, fmt.Sprintf("Withdrawal of %s initiated. New balance: %s",
		r.kes(amount), r.kes(balance)))

	return End(
		fmt.Sprintf("Withdrawal of %s from %s initiated.", r.kes(amount), account.Name),
		fmt.Sprintf("New balance: %s", r.kes(balance)),
	)
}
