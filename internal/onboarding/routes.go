package onboarding

// Route identifies the canonical UI destination for a resolved state.
type Route string

const (
	RouteManualReview    Route = "/onboarding/manual-review"
	RouteCompleteProfile Route = "/onboarding/profile"
	RouteChoosePlan      Route = "/onboarding/plan"
	RoutePayment         Route = "/onboarding/payment"
	RouteUploadDocuments Route = "/onboarding/documents"
	RouteReviewData      Route = "/onboarding/review"
	RouteCompleted       Route = "/onboarding/card"
)

var stateRoutes = map[State]Route{
	StateManualReviewPending: RouteManualReview,
	StateCompleteProfile:     RouteCompleteProfile,
	StateChoosePlan:          RouteChoosePlan,
	StatePayment:             RoutePayment,
	StateUploadDocuments:     RouteUploadDocuments,
	StateReviewData:          RouteReviewData,
	StateCompleted:           RouteCompleted,
}

// CanonicalRoute maps a resolved state to its single correct destination.
func CanonicalRoute(state State) Route {
	return stateRoutes[state]
}

// GuardAction tells the UI shell what to do with a requested route.
type GuardAction string

const (
	// GuardAllow lets the requested route render unmodified.
	GuardAllow GuardAction = "allow"
	// GuardRedirect replaces the current history entry with the canonical
	// route. Replace, not push, so the back button cannot loop.
	GuardRedirect GuardAction = "redirect"
)

// GuardDecision is the outcome of checking a requested route against the
// resolved state.
type GuardDecision struct {
	Action GuardAction
	Target Route
}

// Guard compares the requested route with the canonical route for the
// snapshot and decides whether to render or redirect. It must run before any
// step-specific UI renders. Snapshot loading is handled one level up by the
// loader, which reports unavailability as a distinct outcome instead of
// calling Guard with partial facts.
func Guard(requested Route, s Snapshot) GuardDecision {
	canonical := CanonicalRoute(Resolve(s))
	if requested == canonical {
		return GuardDecision{Action: GuardAllow, Target: canonical}
	}
	return GuardDecision{Action: GuardRedirect, Target: canonical}
}
