package onboarding

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type GuardSuite struct {
	suite.Suite
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) TestCanonicalRouteCoversEveryState() {
	states := []State{
		StateManualReviewPending,
		StateCompleteProfile,
		StateChoosePlan,
		StatePayment,
		StateUploadDocuments,
		StateReviewData,
		StateCompleted,
	}
	for _, state := range states {
		s.NotEmpty(CanonicalRoute(state), "state %s has no route", state)
	}
}

func (s *GuardSuite) TestGuard() {
	// Empty snapshot resolves to complete_profile.
	snap := Snapshot{}

	s.Run("allows the canonical route", func() {
		decision := Guard(RouteCompleteProfile, snap)
		s.Equal(GuardAllow, decision.Action)
		s.Equal(RouteCompleteProfile, decision.Target)
	})

	s.Run("redirects a deep link past the current step", func() {
		decision := Guard(RouteCompleted, snap)
		s.Equal(GuardRedirect, decision.Action)
		s.Equal(RouteCompleteProfile, decision.Target)
	})

	s.Run("redirects a stale earlier route forward", func() {
		complete := Snapshot{
			Profile: &Profile{
				ProfileCompleted: true,
				TermsAccepted:    true,
				FaceValidated:    true,
			},
			Payments: []Payment{{Status: PaymentApproved}},
			Documents: []Document{
				{Type: DocumentIdentity, Status: DocumentApproved},
				{Type: DocumentAddressProof, Status: DocumentApproved},
				{Type: DocumentEnrollmentProof, Status: DocumentApproved},
				{Type: DocumentPhoto, Status: DocumentApproved},
			},
		}
		decision := Guard(RoutePayment, complete)
		s.Equal(GuardRedirect, decision.Action)
		s.Equal(RouteReviewData, decision.Target)
	})

	s.Run("redirects unknown routes to the canonical one", func() {
		decision := Guard(Route("/onboarding/nope"), snap)
		s.Equal(GuardRedirect, decision.Action)
		s.Equal(RouteCompleteProfile, decision.Target)
	})
}
