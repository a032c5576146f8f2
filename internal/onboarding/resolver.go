package onboarding

// State is the single canonical onboarding step derived from a snapshot.
type State string

const (
	StateManualReviewPending State = "manual_review_pending"
	StateCompleteProfile     State = "complete_profile"
	StateChoosePlan          State = "choose_plan"
	StatePayment             State = "payment"
	StateUploadDocuments     State = "upload_documents"
	StateReviewData          State = "review_data"
	StateCompleted           State = "completed"
)

// Resolve maps a snapshot of facts to exactly one state. It is total,
// deterministic, and side-effect free; every caller (guard, admin console,
// applicant UI) goes through it so the step conditions cannot drift between
// call sites.
//
// Rules are evaluated in strict precedence order; the first match wins.
func Resolve(s Snapshot) State {
	p := s.Profile

	// A requested manual review holds the applicant regardless of every
	// other fact, until face validation clears.
	if p != nil && p.ManualReviewRequested && !p.FaceValidated {
		return StateManualReviewPending
	}

	if p == nil || !p.ProfileCompleted {
		return StateCompleteProfile
	}

	if !s.HasApprovedPayment() {
		if p.QualifiesForPlanSelection() {
			return StateChoosePlan
		}
		return StatePayment
	}

	if !s.DocumentsComplete() || !p.FaceValidated || !p.TermsAccepted {
		return StateUploadDocuments
	}

	if !s.Card.IsIssued() {
		return StateReviewData
	}

	return StateCompleted
}

// milestones are the four completion gates used for the progress percentage.
const totalMilestones = 4

// Progress returns the percentage of completed milestones
// {profile, payment, documents, card}. It is monotonically non-decreasing as
// facts accumulate.
func Progress(s Snapshot) int {
	p := s.Profile
	done := 0

	if p != nil && p.ProfileCompleted {
		done++
	}
	if s.HasApprovedPayment() {
		done++
	}
	if p != nil && s.DocumentsComplete() && p.FaceValidated && p.TermsAccepted {
		done++
	}
	if s.Card.IsIssued() {
		done++
	}

	return done * 100 / totalMilestones
}

// ReadyForIssuance reports whether every card precondition holds
// simultaneously. Card creation must never fire unless this is true.
func ReadyForIssuance(s Snapshot) bool {
	return Resolve(s) == StateReviewData
}
