package payment

import (
	"context"

	"github.com/google/uuid"
)

// pendingRawStatus is each gateway's own code for a freshly opened charge.
var pendingRawStatus = map[string]string{
	GatewayPagarme:     "waiting_payment",
	GatewayMercadoPago: "pending",
	GatewayAsaas:       "PENDING",
	GatewayPagSeguro:   "1",
}

// SandboxCharger opens charges without calling a real gateway. It answers
// in the gateway's raw status vocabulary so the reconciliation path stays
// identical to production.
type SandboxCharger struct {
	gateway string
}

func NewSandboxCharger(gateway string) *SandboxCharger {
	return &SandboxCharger{gateway: gateway}
}

func (c *SandboxCharger) CreateCharge(_ context.Context, _ ChargeRequest) (ChargeResult, error) {
	return ChargeResult{
		ChargeID:  "sandbox-" + uuid.NewString(),
		RawStatus: pendingRawStatus[c.gateway],
	}, nil
}

// SandboxChargers builds one sandbox client per known gateway.
func SandboxChargers() map[string]Charger {
	chargers := make(map[string]Charger, len(pendingRawStatus))
	for gateway := range pendingRawStatus {
		chargers[gateway] = NewSandboxCharger(gateway)
	}
	return chargers
}
