package ussd

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gkash/gkash_ussd/internal/identity"
	"github.com/gkash/gkash_ussd/internal/otp"
)

var (
	pinPattern        = regexp.MustCompile(`^\d{4}$`)
	nationalIDPattern = regexp.MustCompile(`^\d{6,}$`)
)

// registerStep is the explicit dialog position for the new-user registration
// flow, derived once from the token count. The final step accepts any deeper
// token count because code retries keep appending tokens.
type registerStep int

const (
	regStepFundMenu registerStep = iota
	regStepFund
	regStepName
	regStepNationalID
	regStepPIN
	regStepCode
)

func newUserStep(tokenCount int) registerStep {
	switch tokenCount {
	case 1:
		return regStepFundMenu
	case 2:
		return regStepFund
	case 3:
		return regStepName
	case 4:
		return regStepNationalID
	case 5:
		return regStepPIN
	default:
		return regStepCode
	}
}

// handleCreateAccount dispatches to the new-user registration dialog (with
// phone verification) or the shorter add-account dialog for existing users
// (PIN re-authentication only).
func (r *Router) handleCreateAccount(ctx context.Context, phone string, tokens []string) string {
	user, err := r.users.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		return r.addAccountForExisting(ctx, user, tokens)
	case errors.Is(err, identity.ErrUserNotFound):
		return r.registerNewUser(ctx, phone, tokens)
	default:
		r.logger.Error("lookup user", "phone", phone, "error", err)
		return End(msgGenericError)
	}
}

func (r *Router) registerNewUser(ctx context.Context, phone string, tokens []string) string {
	step := newUserStep(len(tokens))

	// Steps after the fund choice re-check it: a token sequence can only
	// reach them through a valid choice, so a mismatch means a mangled
	// session.
	if step > regStepFund {
		if _, ok := FundName(tokens[1]); !ok {
			return End(msgSessionError)
		}
	}

	switch step {
	case regStepFundMenu:
		return fundMenu("")

	case regStepFund:
		if _, ok := FundName(tokens[1]); !ok {
			return fundMenu("Invalid choice. Try again.")
		}
		return Continue("Enter your full name")

	case regStepName:
		if len(strings.TrimSpace(tokens[2])) < 2 {
			return Continue("Name too short. Enter full name:")
		}
		return Continue("Enter your ID number (digits only)")

	case regStepNationalID:
		if !nationalIDPattern.MatchString(tokens[3]) {
			return Continue("Invalid ID. Enter at least 6 digits:")
		}
		return Continue("Create a 4-digit PIN")

	case regStepPIN:
		return r.sendVerification(ctx, phone, tokens)

	case regStepCode:
		return r.verifyAndRegister(ctx, phone, tokens)
	}

	return End(msgInvalidRequest)
}

// sendVerification parks the collected registration data and dispatches a
// one-time code. A send failure is fatal to the flow: without a delivered
// code there is nothing to compare against.
func (r *Router) sendVerification(ctx context.Context, phone string, tokens []string) string {
	fundKey, name, nationalID, pin := tokens[1], strings.TrimSpace(tokens[2]), tokens[3], tokens[4]
	if !pinPattern.MatchString(pin) {
		return Continue("Invalid PIN. Enter 4 digits:")
	}

	pinHash, err := identity.HashPIN(pin)
	if err != nil {
		r.logger.Error("hash pin", "phone", phone, "error", err)
		return End(msgGenericError)
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
	defer cancel()
	code, providerRef, err := r.sender.SendCode(sendCtx, phone, name, r.cfg.OTPLength)
	if err != nil {
		r.logger.Error("send verification code", "phone", phone, "error", err)
		return End("Error sending OTP. Please try again.")
	}

	pending := otp.Pending{
		Code:      code,
		ExpiresAt: time.Now().Add(r.cfg.OTPTTL),
		Registration: otp.Registration{
			FundKey:    fundKey,
			Name:       name,
			NationalID: nationalID,
			PINHash:    pinHash,
		},
	}
	if err := r.verifications.Put(ctx, phone, pending); err != nil {
		r.logger.Error("store pending verification", "phone", phone, "error", err)
		return End(msgGenericError)
	}

	r.logger.Info("verification code sent", "phone", phone, "provider_ref", providerRef)
	return Continue("Enter OTP sent to your phone")
}

// verifyAndRegister consumes the pending verification and, on a match,
// creates the user with their first account. The code is always the last
// token so bounded retries keep landing on this step.
func (r *Router) verifyAndRegister(ctx context.Context, phone string, tokens []string) string {
	code := tokens[len(tokens)-1]

	pending, err := r.verifications.Get(ctx, phone)
	switch {
	case errors.Is(err, otp.ErrNotFound):
		return End("OTP session expired. Please start over.")
	case errors.Is(err, otp.ErrExpired):
		return End("OTP expired. Please start over.")
	case err != nil:
		r.logger.Error("load pending verification", "phone", phone, "error", err)
		return End(msgGenericError)
	}

	if code != pending.Code {
		pending.Attempts++
		if pending.Attempts >= r.cfg.OTPMaxAttempts {
			if err := r.verifications.Delete(ctx, phone); err != nil {
				r.logger.Warn("delete exhausted verification", "phone", phone, "error", err)
			}
			return End("Too many invalid codes. Please start over.")
		}
		if err := r.verifications.Update(ctx, phone, pending); err != nil {
			r.logger.Warn("record verification attempt", "phone", phone, "error", err)
		}
		return Continue("Invalid OTP. Try again:")
	}

	reg := pending.Registration
	fund, _ := FundName(reg.FundKey)

	account, err := r.createAccount(ctx, phone, reg.FundKey, fmt.Sprintf("%s's %s", reg.Name, fund))
	if err != nil {
		r.logger.Error("create first account", "phone", phone, "error", err)
		return End("Error creating account. Try again.")
	}

	if _, err := r.users.Register(ctx, identity.RegisterInput{
		Phone:      phone,
		Name:       reg.Name,
		NationalID: reg.NationalID,
		PINHash:    reg.PINHash,
		AccountID:  account.ID,
		FundKey:    reg.FundKey,
	}); err != nil {
		r.logger.Error("register user", "phone", phone, "error", err)
		return End("Error creating account. Try again.")
	}

	if err := r.verifications.Delete(ctx, phone); err != nil {
		r.logger.Warn("delete consumed verification", "phone", phone, "error", err)
	}

	r.notify(phone, fmt.Sprintf("Welcome to %s %s! Your %s account is ready. Account No: %s",
		r.cfg.AppName, reg.Name, fund, account.ID))

	return End(
		"Registration successful!",
		fmt.Sprintf("Your %s has been created.", fund),
		fmt.Sprintf("Account No: %s", account.ID),
	)
}

// addAccountForExisting is the shorter dialog for users who already hold an
// account: fund choice, then PIN re-authentication. No phone verification.
func (r *Router) addAccountForExisting(ctx context.Context, user identity.User, tokens []string) string {
	switch len(tokens) {
	case 1:
		return fundMenu("")

	case 2:
		if _, ok := FundName(tokens[1]); !ok {
			return fundMenu("Invalid choice. Try again.")
		}
		return Continue("Enter your PIN")

	case 3:
		fund, ok := FundName(tokens[1])
		if !ok {
			return End(msgSessionError)
		}
		pin := tokens[2]
		if !pinPattern.MatchString(pin) {
			return Continue("Invalid PIN. Enter 4 digits:")
		}
		if err := r.users.VerifyPIN(user, pin); err != nil {
			return End(msgInvalidPIN)
		}

		name := fmt.Sprintf("%s's %s %d", user.Name, fund, len(user.Accounts)+1)
		account, err := r.createAccount(ctx, user.Phone, tokens[1], name)
		if err != nil {
			r.logger.Error("create additional account", "phone", user.Phone, "error", err)
			return End("Error creating account. Try again.")
		}
		if err := r.users.AttachAccount(ctx, user.Phone, account.ID, tokens[1]); err != nil {
			r.logger.Error("attach account", "phone", user.Phone, "error", err)
			return End("Error creating account. Try again.")
		}

		r.notify(user.Phone, fmt.Sprintf("New %s account created: %s", fund, account.ID))
		return End(
			fmt.Sprintf("New %s account created successfully!", fund),
			fmt.Sprintf("Account No: %s", account.ID),
		)
	}

	return End(msgInvalidRequest)
}
