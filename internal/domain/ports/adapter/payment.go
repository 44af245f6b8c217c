package adapter

import "context"

// StatusCode is the bank's raw numeric order state, opaque to the core.
type StatusCode int

// CanonicalStatus is the four-way reduction of gateway-specific codes that the
// reconciler operates on.
type CanonicalStatus string

const (
	CanonicalSucceeded CanonicalStatus = "succeeded"
	CanonicalPending   CanonicalStatus = "pending"
	CanonicalFailed    CanonicalStatus = "failed"
	CanonicalCanceled  CanonicalStatus = "canceled"
)

// Registration is the bank's answer to a successful order registration.
type Registration struct {
	ExternalID string // bank-side order id
	PaymentURL string // hosted checkout page to redirect the client to
}

// PaymentGateway is the hex port for the acquiring bank. The reconciler and the
// order use case never talk to the bank's REST API directly.
type PaymentGateway interface {
	Name() string

	// RegisterOrder creates the order on the bank side. Network and gateway
	// errors wrap domain.ErrGatewayUnavailable; the caller must mark the local
	// order failed so nothing is left silently stuck in pending.
	RegisterOrder(ctx context.Context, orderNumber string, amount int64, description, email string, meta map[string]string) (Registration, error)

	// FetchStatus queries the bank for the raw order state.
	FetchStatus(ctx context.Context, externalID string) (StatusCode, error)

	// MapStatus reduces a raw code to a canonical status. Pure and total:
	// unknown codes map to CanonicalPending, never to a terminal state.
	MapStatus(code StatusCode) CanonicalStatus
}
