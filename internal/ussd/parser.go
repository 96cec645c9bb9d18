package ussd

import "strings"

// ParseText turns the raw cumulative dialog text into an ordered token
// sequence. The gateway resends the whole input since session start on every
// keystroke, so the token sequence is the only session state there is.
//
// A leading service-code prefix (the tokens dialed to reach the service) is
// stripped when it matches exactly. Whitespace-only input, or input equal to
// the prefix, normalizes to an empty sequence: the welcome state, not an
// error.
func ParseText(text string, serviceCode []string) []string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}

	tokens := strings.Split(cleaned, "*")
	if len(serviceCode) > 0 && len(tokens) >= len(serviceCode) {
		matched := true
		for i, want := range serviceCode {
			if tokens[i] != want {
				matched = false
				break
			}
		}
		if matched {
			tokens = tokens[len(serviceCode):]
		}
	}

	if len(tokens) == 0 || (len(tokens) == 1 && tokens[0] == "") {
		return nil
	}
	return tokens
}
