package mpesa

import (
	"context"

	"github.com/google/uuid"
)

// Gateway represents a connector to the mobile-money payment provider.
type Gateway interface {
	// RequestCollection asks the provider to pull funds from the user's
	// wallet (STK push).
	RequestCollection(ctx context.Context, input CollectionInput) (Result, error)
	// RequestDisbursement asks the provider to push funds to the user's
	// wallet (B2C).
	RequestDisbursement(ctx context.Context, input DisbursementInput) (Result, error)
}

// CollectionInput captures a deposit (pull) request.
type CollectionInput struct {
	Phone       string
	Amount      int64
	Reference   string
	Description string
}

// DisbursementInput captures a payout (push) request.
type DisbursementInput struct {
	Phone   string
	Amount  int64
	Remarks string
}

// Result captures the provider's synchronous acknowledgement. Final settlement
// arrives later on the asynchronous callback.
type Result struct {
	Reference string
	Status    string
}

// StaticGateway simulates a provider that accepts every request. Used in
// development and tests.
type StaticGateway struct{}

// RequestCollection approves the collection with a synthetic reference.
func (StaticGateway) RequestCollection(_ context.Context, _ CollectionInput) (Result, error) {
	return Result{Reference: uuid.NewString(), Status: "accepted"}, nil
}

// RequestDisbursement approves the disbursement with a synthetic reference.
func (StaticGateway) RequestDisbursement(_ context.Context, _ DisbursementInput) (Result, error) {
	return Result{Reference: uuid.NewString(), Status: "accepted"}, nil
}
