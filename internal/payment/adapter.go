package payment

import (
	"strings"

	"carteirinha/internal/onboarding"
)

// Per-gateway reconciliation tables. Each gateway speaks its own vocabulary;
// the tables are fixed lookups, not heuristics. Unknown codes map to
// processing so an unrecognized callback can never grant eligibility.

var pagarmeStatuses = map[string]onboarding.PaymentStatus{
	"waiting":         onboarding.PaymentPending,
	"waiting_payment": onboarding.PaymentPending,
	"processing":      onboarding.PaymentProcessing,
	"analyzing":       onboarding.PaymentProcessing,
	"paid":            onboarding.PaymentApproved,
	"unpaid":          onboarding.PaymentRejected,
	"canceled":        onboarding.PaymentRejected,
	"refused":         onboarding.PaymentRejected,
	"refunded":        onboarding.PaymentRefunded,
	"chargedback":     onboarding.PaymentRefunded,
}

var mercadoPagoStatuses = map[string]onboarding.PaymentStatus{
	"pending":      onboarding.PaymentPending,
	"in_process":   onboarding.PaymentProcessing,
	"in_mediation": onboarding.PaymentProcessing,
	"authorized":   onboarding.PaymentProcessing,
	"approved":     onboarding.PaymentApproved,
	"rejected":     onboarding.PaymentRejected,
	"cancelled":    onboarding.PaymentRejected,
	"refunded":     onboarding.PaymentRefunded,
	"charged_back": onboarding.PaymentRefunded,
}

var asaasStatuses = map[string]onboarding.PaymentStatus{
	"PENDING":                      onboarding.PaymentPending,
	"AWAITING_RISK_ANALYSIS":       onboarding.PaymentProcessing,
	"RECEIVED":                     onboarding.PaymentApproved,
	"CONFIRMED":                    onboarding.PaymentApproved,
	"OVERDUE":                      onboarding.PaymentRejected,
	"REFUND_REQUESTED":             onboarding.PaymentProcessing,
	"REFUNDED":                     onboarding.PaymentRefunded,
	"CHARGEBACK_REQUESTED":         onboarding.PaymentProcessing,
	"CHARGEBACK_DISPUTE":           onboarding.PaymentProcessing,
	"AWAITING_CHARGEBACK_REVERSAL": onboarding.PaymentProcessing,
}

// PagSeguro reports numeric transaction codes.
var pagSeguroStatuses = map[string]onboarding.PaymentStatus{
	"1": onboarding.PaymentPending,    // aguardando pagamento
	"2": onboarding.PaymentProcessing, // em análise
	"3": onboarding.PaymentApproved,   // paga
	"4": onboarding.PaymentApproved,   // disponível
	"5": onboarding.PaymentProcessing, // em disputa
	"6": onboarding.PaymentRefunded,   // devolvida
	"7": onboarding.PaymentRejected,   // cancelada
}

var gatewayTables = map[string]map[string]onboarding.PaymentStatus{
	GatewayPagarme:     pagarmeStatuses,
	GatewayMercadoPago: mercadoPagoStatuses,
	GatewayAsaas:       asaasStatuses,
	GatewayPagSeguro:   pagSeguroStatuses,
}

// Normalize maps a raw gateway status into the internal vocabulary. Unknown
// gateways and unknown codes both degrade to processing, never approved.
func Normalize(gatewayName, rawStatus string) onboarding.PaymentStatus {
	table, ok := gatewayTables[strings.ToLower(gatewayName)]
	if !ok {
		return onboarding.PaymentProcessing
	}
	status, ok := table[rawStatus]
	if !ok {
		return onboarding.PaymentProcessing
	}
	return status
}

// KnownGateway reports whether a reconciliation table exists for the name.
func KnownGateway(gatewayName string) bool {
	_, ok := gatewayTables[strings.ToLower(gatewayName)]
	return ok
}
