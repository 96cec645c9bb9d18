package ussd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gkash/gkash_ussd/internal/ledger"
)

// Account identifiers are human-presentable: "GK" plus eight random digits,
// unique across the whole store.
const accountIDPrefix = "GK"

var leadingZeroPhone = regexp.MustCompile(`^0\d+$`)

// GenerateAccountID produces a fresh account identifier, retrying on the
// unlikely collision with an existing account.
func GenerateAccountID(ctx context.Context, store ledger.Store) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		digits := make([]byte, 8)
		for i, b := range buf {
			digits[i] = '0' + b%10
		}
		// Keep the first digit non-zero so IDs stay fixed-width when read aloud.
		if digits[0] == '0' {
			digits[0] = '1'
		}
		id := accountIDPrefix + string(digits)

		_, err := store.Account(ctx, id)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique account id")
}

// NormalizePhone canonicalizes Kenyan phone inputs to +254 form. Inputs
// already carrying another country prefix pass through untouched.
func NormalizePhone(phone string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	switch {
	case cleaned == "":
		return ""
	case leadingZeroPhone.MatchString(cleaned):
		return "+254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "254") && !strings.HasPrefix(cleaned, "+"):
		return "+" + cleaned
	default:
		return cleaned
	}
}
