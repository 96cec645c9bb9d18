package sms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gkash/gkash_ussd/internal/otp"
)

// Sender delivers outbound messages and one-time codes. SendCode returns the
// generated code to the caller so it can be stored for later comparison.
type Sender interface {
	Send(ctx context.Context, to, body string) (providerRef string, err error)
	SendCode(ctx context.Context, to, holderName string, length int) (code, providerRef string, err error)
}

// FormatMSISDN normalizes Kenyan phone inputs to the 254XXXXXXXXX form the
// messaging provider expects.
func FormatMSISDN(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	switch {
	case cleaned == "":
		return "", fmt.Errorf("invalid phone number %q", phone)
	case strings.HasPrefix(cleaned, "254") && len(cleaned) == 12:
		return cleaned, nil
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		return "254" + cleaned[1:], nil
	case len(cleaned) == 9:
		return "254" + cleaned, nil
	default:
		return cleaned, nil
	}
}

func codeMessage(holderName, code string, ttl time.Duration) string {
	name := holderName
	if name == "" {
		name = "Customer"
	}
	return fmt.Sprintf("Hello %s, your verification code is %s. It expires in %d seconds. Do not share it.",
		name, code, int(ttl.Seconds()))
}

// LoggerSender is a stub implementation that writes messages to the logger.
// Used in development and tests, where no provider credentials exist.
type LoggerSender struct {
	logger  *slog.Logger
	codeTTL time.Duration
}

// NewLoggerSender constructs a logging sender stub.
func NewLoggerSender(logger *slog.Logger, codeTTL time.Duration) *LoggerSender {
	return &LoggerSender{logger: logger, codeTTL: codeTTL}
}

// Send writes the message to the structured logger.
func (s *LoggerSender) Send(_ context.Context, to, body string) (string, error) {
	ref := uuid.NewString()
	if s.logger != nil {
		s.logger.Info("sms", "to", to, "body", body, "provider_ref", ref)
	}
	return ref, nil
}

// SendCode generates a code and logs the delivery instead of sending it.
func (s *LoggerSender) SendCode(ctx context.Context, to, holderName string, length int) (string, string, error) {
	code, err := otp.GenerateCode(length)
	if err != nil {
		return "", "", err
	}
	ref, err := s.Send(ctx, to, codeMessage(holderName, code, s.codeTTL))
	if err != nil {
		return "", "", err
	}
	return code, ref, nil
}
