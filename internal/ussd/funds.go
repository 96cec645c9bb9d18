package ussd

// The four investment products an account can be associated with, keyed by
// the menu digit the user dials.
var funds = map[string]string{
	"1": "Money Market Fund",
	"2": "Fixed Income Fund",
	"3": "Balanced Fund",
	"4": "Stock Market",
}

// FundName resolves a fund menu key to its display name.
func FundName(key string) (string, bool) {
	name, ok := funds[key]
	return name, ok
}

func fundMenu(prefix string) string {
	lines := make([]string, 0, 6)
	if prefix != "" {
		lines = append(lines, prefix)
	}
	lines = append(lines,
		"Select fund type:",
		"1. Money Market Fund",
		"2. Fixed Income Fund",
		"3. Balanced Fund",
		"4. Stock Market",
	)
	return Continue(lines...)
}
