package requests

import (
	"fmt"
	"time"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
)

// transitionPlan is the persisted effect of one allowed transition. The
// guards snapshot the columns the decision was based on; the repository
// re-checks them inside the UPDATE so a concurrent actor loses cleanly.
type transitionPlan struct {
	guards  map[string]any
	updates map[string]any
}

// noteRequired reports whether the action cannot proceed without an
// explanation from the actor.
func noteRequired(action enums.TransitionAction) bool {
	switch action {
	case enums.TransitionActionReject,
		enums.TransitionActionEscalate,
		enums.TransitionActionRequestCancellation:
		return true
	default:
		return false
	}
}

// planTransition checks the actor's role and the request's current state
// against the decision table and produces the guarded update to apply.
// Role failures map to forbidden, stale or already-decided requests map to
// conflict, and structurally impossible moves map to state conflict.
func planTransition(req *models.PriceRequest, input TransitionInput, now time.Time) (*transitionPlan, error) {
	switch input.Action {
	case enums.TransitionActionApprove:
		return planDecision(req, input, now, true)
	case enums.TransitionActionReject:
		return planDecision(req, input, now, false)
	case enums.TransitionActionEscalate:
		return planEscalate(req, input, now)
	case enums.TransitionActionRequestCancellation:
		return planRequestCancellation(req, input, now)
	case enums.TransitionActionApproveCancellation:
		return planApproveCancellation(req, input, now)
	case enums.TransitionActionMarkAltered:
		return planMarkAltered(req, input, now)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transition action")
	}
}

func planDecision(req *models.PriceRequest, input TransitionInput, now time.Time, approve bool) (*transitionPlan, error) {
	var target enums.RequestStatus
	switch input.ActorRole {
	case enums.ActorRoleSupervisor:
		if req.Status != enums.RequestStatusPending {
			return nil, statusConflict(req, input.Action)
		}
		if approve && req.RequiresEscalation {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request needs manager approval; escalate it instead")
		}
		if approve {
			target = enums.RequestStatusApproved
		} else {
			target = enums.RequestStatusRejected
		}
	case enums.ActorRoleGerente:
		if req.Status != enums.RequestStatusAwaitingManager {
			return nil, statusConflict(req, input.Action)
		}
		if approve {
			target = enums.RequestStatusManagerApproved
		} else {
			target = enums.RequestStatusManagerRejected
		}
	default:
		return nil, roleForbidden(input)
	}

	updates := map[string]any{
		"status":        target,
		"approver_code": input.ActorCode,
		"decided_at":    now,
	}
	if input.Note != "" {
		updates["decision_note"] = input.Note
	}
	return &transitionPlan{
		guards:  map[string]any{"status": req.Status},
		updates: updates,
	}, nil
}

func planEscalate(req *models.PriceRequest, input TransitionInput, now time.Time) (*transitionPlan, error) {
	if input.ActorRole != enums.ActorRoleSupervisor {
		return nil, roleForbidden(input)
	}
	if req.Status != enums.RequestStatusPending {
		return nil, statusConflict(req, input.Action)
	}
	if !req.RequiresEscalation {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request does not need manager approval")
	}
	return &transitionPlan{
		guards: map[string]any{"status": req.Status},
		updates: map[string]any{
			"status":          enums.RequestStatusAwaitingManager,
			"supervisor_note": input.Note,
		},
	}, nil
}

// cancellableStatuses are the states a requester can still walk away from.
// Rejections and completed alterations have nothing left to cancel.
var cancellableStatuses = map[enums.RequestStatus]bool{
	enums.RequestStatusPending:         true,
	enums.RequestStatusAwaitingManager: true,
	enums.RequestStatusApproved:        true,
	enums.RequestStatusManagerApproved: true,
}

func planRequestCancellation(req *models.PriceRequest, input TransitionInput, now time.Time) (*transitionPlan, error) {
	if req.RequesterCode != input.ActorCode {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the original requester can ask for cancellation")
	}
	if !cancellableStatuses[req.Status] {
		return nil, statusConflict(req, input.Action)
	}
	if req.CancelRequested {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation already requested")
	}
	return &transitionPlan{
		guards: map[string]any{
			"status":           req.Status,
			"cancel_requested": false,
		},
		updates: map[string]any{
			"cancel_requested":    true,
			"cancel_reason":       input.Note,
			"cancel_requested_at": now,
		},
	}, nil
}

func planApproveCancellation(req *models.PriceRequest, input TransitionInput, now time.Time) (*transitionPlan, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, roleForbidden(input)
	}
	if !cancellableStatuses[req.Status] {
		return nil, statusConflict(req, input.Action)
	}
	if !req.CancelRequested {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no cancellation has been requested")
	}
	return &transitionPlan{
		guards: map[string]any{
			"status":           req.Status,
			"cancel_requested": true,
		},
		updates: map[string]any{
			"status":        enums.RequestStatusCancelled,
			"approver_code": input.ActorCode,
			"cancelled_at":  now,
		},
	}, nil
}

// alterableStatuses are the decided states an admin can mark as manually
// altered in the commercial system.
var alterableStatuses = map[enums.RequestStatus]bool{
	enums.RequestStatusApproved:        true,
	enums.RequestStatusManagerApproved: true,
	enums.RequestStatusRejected:        true,
	enums.RequestStatusManagerRejected: true,
}

func planMarkAltered(req *models.PriceRequest, input TransitionInput, now time.Time) (*transitionPlan, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, roleForbidden(input)
	}
	if !alterableStatuses[req.Status] {
		return nil, statusConflict(req, input.Action)
	}
	updates := map[string]any{
		"status":        enums.RequestStatusAltered,
		"approver_code": input.ActorCode,
		"decided_at":    now,
	}
	if input.Note != "" {
		updates["decision_note"] = input.Note
	}
	return &transitionPlan{
		guards:  map[string]any{"status": req.Status},
		updates: updates,
	}, nil
}

func roleForbidden(input TransitionInput) error {
	return pkgerrors.New(pkgerrors.CodeForbidden,
		fmt.Sprintf("role %s cannot perform %s", input.ActorRole, input.Action))
}

func statusConflict(req *models.PriceRequest, action enums.TransitionAction) error {
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("cannot %s a request in status %s", action, req.Status))
}
