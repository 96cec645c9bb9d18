package ussd

import (
	"strconv"

	"github.com/gkash/gkash_ussd/internal/ledger"
)

// Resolve determines which of the phone's accounts an operation targets and
// how many leading tokens the selection consumed.
//
// With zero accounts there is nothing to resolve. With exactly one, it is
// auto-selected and no extra token is consumed (offset 1). With more than
// one, tokens[1] must be a 1-based index into the creation-ordered account
// list (offset 2); a missing, non-numeric, or out-of-range selection resolves
// to nothing so the caller re-renders the selection prompt.
//
// Every later token index in a flow is computed relative to the returned
// offset, which is what keeps single- and multi-account dialogs aligned.
func Resolve(accounts []ledger.Account, tokens []string) (ledger.Account, bool, int) {
	if len(accounts) == 0 {
		return ledger.Account{}, false, 1
	}
	if len(accounts) == 1 {
		return accounts[0], true, 1
	}
	if len(tokens) < 2 {
		return ledger.Account{}, false, 1
	}
	idx, err := strconv.Atoi(tokens[1])
	if err != nil || idx < 1 || idx > len(accounts) {
		return ledger.Account{}, false, 1
	}
	return accounts[idx-1], true, 2
}
