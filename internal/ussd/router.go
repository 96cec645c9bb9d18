package ussd

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gkash/gkash_ussd/internal/config"
	"github.com/gkash/gkash_ussd/internal/identity"
	"github.com/gkash/gkash_ussd/internal/ledger"
	"github.com/gkash/gkash_ussd/internal/mpesa"
	"github.com/gkash/gkash_ussd/internal/otp"
	"github.com/gkash/gkash_ussd/internal/sms"
)

// Shared dialog messages.
const (
	msgInvalidRequest = "Invalid request."
	msgGenericError   = "An error occurred. Please try again later."
	msgInvalidPIN     = "Invalid PIN"
	msgNoAccounts     = "No accounts found. Please create an account first."
	msgNoUser         = "No account found for this number. Please create an account first."
	msgSessionError   = "Session error. Please start over."
)

// Router drives the USSD dialog. Every flow is a pure function of the token
// sequence, the phone identity, and the injected stores; no step state is
// held between requests.
type Router struct {
	cfg           config.Config
	users         *identity.Service
	store         ledger.Store
	verifications otp.Store
	sender        sms.Sender
	gateway       mpesa.Gateway
	logger        *slog.Logger
}

// NewRouter wires the dialog engine with its collaborators.
func NewRouter(cfg config.Config, users *identity.Service, store ledger.Store,
	verifications otp.Store, sender sms.Sender, gateway mpesa.Gateway, logger *slog.Logger) *Router {
	return &Router{
		cfg:           cfg,
		users:         users,
		store:         store,
		verifications: verifications,
		sender:        sender,
		gateway:       gateway,
		logger:        logger,
	}
}

// Handle processes one keystroke's worth of dialog and returns the rendered
// response. Dialog-semantics failures never escape as errors: anything
// unexpected converts to a generic terminal response at this boundary.
func (r *Router) Handle(ctx context.Context, phone, text string) (response string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("ussd handler panic", "phone", phone, "panic", rec)
			response = End(msgGenericError)
		}
	}()

	tokens := ParseText(text, r.cfg.ServiceCode)
	if len(tokens) == 0 {
		return r.welcomeMenu()
	}

	switch tokens[0] {
	case "1":
		return r.handleCreateAccount(ctx, phone, tokens)
	case "2":
		return r.handleInvest(ctx, phone, tokens)
	case "3":
		return r.handleWithdraw(ctx, phone, tokens)
	case "4":
		return r.handleCheckBalance(ctx, phone, tokens)
	case "5":
		return r.handleTrack(ctx, phone, tokens)
	case "6":
		return r.handleManage(ctx, phone, tokens)
	default:
		return End("Invalid choice. Please try again.")
	}
}

func (r *Router) welcomeMenu() string {
	return Continue(
		fmt.Sprintf("Welcome to %s, Learn.Invest.Grow", r.cfg.AppName),
		"1. Create account",
		"2. Invest",
		"3. Withdraw",
		"4. Check balance",
		"5. Track account",
		"6. Manage accounts",
	)
}

// notify launches a detached best-effort SMS. Failures are captured in the
// log only; they never feed back into the response already sent.
func (r *Router) notify(phone, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ProviderTimeout)
		defer cancel()
		if _, err := r.sender.Send(ctx, phone, body); err != nil {
			r.logger.Warn("notification send failed", "phone", phone, "error", err)
		}
	}()
}

// createAccount provisions a ledger account for the phone and journals its
// creation. Attaching the account to the user record is the caller's job.
func (r *Router) createAccount(ctx context.Context, phone, fundKey, name string) (ledger.Account, error) {
	fund, ok := FundName(fundKey)
	if !ok {
		return ledger.Account{}, fmt.Errorf("unknown fund key %q", fundKey)
	}

	id, err := GenerateAccountID(ctx, r.store)
	if err != nil {
		return ledger.Account{}, err
	}

	account := ledger.Account{
		ID:        id,
		Phone:     phone,
		FundKey:   fundKey,
		Fund:      fund,
		Name:      name,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateAccount(ctx, account); err != nil {
		return ledger.Account{}, err
	}
	if err := r.store.Append(ctx, id, ledger.Transaction{
		Type:      ledger.TxAccountCreated,
		CreatedAt: account.CreatedAt,
	}); err != nil {
		return ledger.Account{}, err
	}
	return account, nil
}

func (r *Router) kes(amount int64) string {
	return FormatAmount(r.cfg.Currency, amount)
}

func selectAccountPrompt(accounts []ledger.Account, prompt string) string {
	lines := make([]string, 0, len(accounts)+1)
	lines = append(lines, prompt)
	for i, account := range accounts {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, account.Name, account.ID))
	}
	return Continue(lines...)
}

// parseAmount accepts whole-shilling amounts only. Anything non-numeric,
// non-finite, fractional, or non-positive is a recoverable input error.
func parseAmount(token string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	n := int64(f)
	if float64(n) != f {
		return 0, false
	}
	return n, true
}
