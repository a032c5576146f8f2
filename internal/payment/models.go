// Package payment routes charges through the active gateway and reconciles
// asynchronous gateway callbacks into the internal payment status.
package payment

import "time"

// Gateway is one configured payment provider. Exactly one row is active at
// any time; switching only changes where new charges go. Historical payments
// keep their original gateway attribution permanently.
type Gateway struct {
	Name        string
	DisplayName string
	IsActive    bool
	UpdatedAt   time.Time
}

// Supported gateway names. Each has its own callback vocabulary in the
// reconciliation tables.
const (
	GatewayPagarme     = "pagarme"
	GatewayMercadoPago = "mercadopago"
	GatewayAsaas       = "asaas"
	GatewayPagSeguro   = "pagseguro"
)
