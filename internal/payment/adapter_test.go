package payment

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"carteirinha/internal/onboarding"
)

type AdapterSuite struct {
	suite.Suite
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterSuite))
}

func (s *AdapterSuite) TestNormalize() {
	s.Run("pagarme vocabulary", func() {
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayPagarme, "paid"))
		s.Equal(onboarding.PaymentPending, Normalize(GatewayPagarme, "waiting"))
		s.Equal(onboarding.PaymentPending, Normalize(GatewayPagarme, "waiting_payment"))
		s.Equal(onboarding.PaymentRejected, Normalize(GatewayPagarme, "refused"))
		s.Equal(onboarding.PaymentRefunded, Normalize(GatewayPagarme, "chargedback"))
	})

	s.Run("mercadopago vocabulary", func() {
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayMercadoPago, "approved"))
		s.Equal(onboarding.PaymentProcessing, Normalize(GatewayMercadoPago, "in_process"))
		s.Equal(onboarding.PaymentRefunded, Normalize(GatewayMercadoPago, "charged_back"))
	})

	s.Run("asaas uses uppercase codes", func() {
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayAsaas, "RECEIVED"))
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayAsaas, "CONFIRMED"))
		// Lowercase is not the asaas vocabulary and must not approve.
		s.Equal(onboarding.PaymentProcessing, Normalize(GatewayAsaas, "received"))
	})

	s.Run("pagseguro uses numeric codes", func() {
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayPagSeguro, "3"))
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayPagSeguro, "4"))
		s.Equal(onboarding.PaymentRejected, Normalize(GatewayPagSeguro, "7"))
	})

	s.Run("same raw word means different things per gateway", func() {
		// "paid" approves on pagarme but is unknown to mercadopago.
		s.Equal(onboarding.PaymentApproved, Normalize(GatewayPagarme, "paid"))
		s.Equal(onboarding.PaymentProcessing, Normalize(GatewayMercadoPago, "paid"))
	})

	s.Run("unknown status degrades to processing, never approved", func() {
		s.Equal(onboarding.PaymentProcessing, Normalize(GatewayPagarme, "definitely_new_status"))
		s.Equal(onboarding.PaymentProcessing, Normalize(GatewayPagSeguro, "99"))
	})

	s.Run("unknown gateway degrades to processing", func() {
		s.Equal(onboarding.PaymentProcessing, Normalize("stripe", "succeeded"))
	})

	s.Run("gateway name is case-insensitive", func() {
		s.Equal(onboarding.PaymentApproved, Normalize("Pagarme", "paid"))
	})
}

// A fresh sandbox charge must reconcile to pending on every gateway, not
// fall through the unknown-code default.
func (s *AdapterSuite) TestSandboxPendingStatusRoundTrip() {
	for gateway, raw := range pendingRawStatus {
		s.Equal(onboarding.PaymentPending, Normalize(gateway, raw),
			"gateway %s fresh-charge status %q", gateway, raw)
	}
}

func (s *AdapterSuite) TestKnownGateway() {
	s.True(KnownGateway(GatewayPagarme))
	s.True(KnownGateway(GatewayMercadoPago))
	s.True(KnownGateway(GatewayAsaas))
	s.True(KnownGateway(GatewayPagSeguro))
	s.False(KnownGateway("stripe"))
	s.False(KnownGateway(""))
}
