package enums

import "fmt"

// RequestStatus tracks the approval lifecycle of a price exception request.
type RequestStatus string

const (
	RequestStatusPending         RequestStatus = "pending"
	RequestStatusApproved        RequestStatus = "approved"
	RequestStatusRejected        RequestStatus = "rejected"
	RequestStatusAwaitingManager RequestStatus = "awaiting_manager"
	RequestStatusManagerApproved RequestStatus = "manager_approved"
	RequestStatusManagerRejected RequestStatus = "manager_rejected"
	RequestStatusAltered         RequestStatus = "altered"
	RequestStatusCancelled       RequestStatus = "cancelled"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusAwaitingManager,
	RequestStatusManagerApproved,
	RequestStatusManagerRejected,
	RequestStatusAltered,
	RequestStatusCancelled,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further approval action can change the status.
// Altered stays terminal even though admins reach it from other terminal states.
func (r RequestStatus) IsTerminal() bool {
	switch r {
	case RequestStatusApproved,
		RequestStatusRejected,
		RequestStatusManagerApproved,
		RequestStatusManagerRejected,
		RequestStatusAltered,
		RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the request still occupies the (client, product)
// pricing decision slot used by the duplicate-submission guard.
func (r RequestStatus) IsOpen() bool {
	return r == RequestStatusPending || r == RequestStatusAwaitingManager
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
