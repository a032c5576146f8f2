// Package audit records every transition the staff console applies.
// Actions are append-only: nothing in the normal flows updates or deletes
// them, and "undo" is always a new transition rather than a rollback.
package audit

import (
	"time"

	id "carteirinha/pkg/domain"
)

// ActionType names a transition in the audit trail.
type ActionType string

const (
	ActionApproveDocument        ActionType = "approve_document"
	ActionRejectDocument         ActionType = "reject_document"
	ActionOverrideFaceValidation ActionType = "override_face_validation"
	ActionMarkPaymentPaid        ActionType = "mark_payment_paid"
	ActionToggleAdminActive      ActionType = "toggle_admin_active"
	ActionSwitchActiveGateway    ActionType = "switch_active_gateway"
	ActionRegisterShipment       ActionType = "register_shipment"
	ActionPrintBatch             ActionType = "print_batch"
	ActionIssueCard              ActionType = "issue_card"
)

// Action is one immutable audit record. IDs are ULIDs so the trail sorts by
// creation time without a secondary index.
type Action struct {
	ID          string
	PerformedBy id.AdminID
	ActorRole   string
	Type        ActionType
	// TargetProfile and TargetEntity are optional references to the
	// affected applicant and entity row.
	TargetProfile id.ProfileID
	TargetEntity  string
	// Details carries the justification or structured reason. Mandatory
	// for sensitive actions; validated before any mutation so a failed
	// validation leaves no partial trail.
	Details   string
	RequestID string
	CreatedAt time.Time
}
