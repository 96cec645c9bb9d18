package identity

import "time"

// User is an identity bound to a phone number. A phone owns at most one User;
// the User in turn owns one or more ledger accounts.
type User struct {
	Phone            string
	Name             string
	NationalID       string
	PINHash          []byte
	DefaultAccountID string
	// Accounts maps owned account identifiers to the fund key chosen at
	// creation time.
	Accounts  map[string]string
	CreatedAt time.Time
}
