package payment

import "context"

// ChargeRequest describes a new charge to create on a gateway.
type ChargeRequest struct {
	Method      string
	AmountCents int64
	CustomerRef string
}

// ChargeResult is the gateway's answer. RawStatus is in the gateway's own
// vocabulary and goes through Normalize before anything consumes it.
type ChargeResult struct {
	ChargeID  string
	RawStatus string
}

// Charger is the narrow contract to a payment gateway. Wire protocols live
// outside this module; implementations are expected to bound their own
// timeouts via ctx.
type Charger interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
