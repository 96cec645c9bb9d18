package ussd

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Response markers understood by the USSD gateway. A continuation keeps the
// session open for more input; a terminal ends it.
const (
	continueMarker = "CON "
	endMarker      = "END "
)

// Continue renders a continuation response: more input is expected.
func Continue(lines ...string) string {
	return continueMarker + strings.Join(lines, "\n")
}

// End renders a terminal response: the session ends after this message.
func End(lines ...string) string {
	return endMarker + strings.Join(lines, "\n")
}

// IsTerminal reports whether a rendered response ends the session.
func IsTerminal(response string) bool {
	return strings.HasPrefix(response, endMarker)
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a currency amount with thousand separators, e.g.
// "KES 1,500".
func FormatAmount(currency string, amount int64) string {
	return currency + " " + amountPrinter.Sprintf("%d", amount)
}
