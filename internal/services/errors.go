package services

import (
	"errors"

	"enquirydesk/internal/store"
	apperrors "enquirydesk/pkg/errors"
)

// Operation names a service operation for the failure policy
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpExport Operation = "export"
)

// FailureVisibility is how a store failure reaches the caller
type FailureVisibility int

const (
	// Surface returns the failure as INTERNAL_ERROR (HTTP 500).
	Surface FailureVisibility = iota
	// Degrade answers successfully with an empty result and a warning.
	Degrade
)

func (v FailureVisibility) String() string {
	if v == Degrade {
		return "degrade"
	}
	return "surface"
}

// failurePolicy: writes and single-record reads hard-fail, the dashboard
// list stays usable.
var failurePolicy = map[Operation]FailureVisibility{
	OpCreate: Surface,
	OpGet:    Surface,
	OpList:   Degrade,
	OpUpdate: Surface,
	OpDelete: Surface,
	OpExport: Surface,
}

// PolicyFor returns the failure visibility of op. Unknown operations surface.
func PolicyFor(op Operation) FailureVisibility {
	if v, ok := failurePolicy[op]; ok {
		return v
	}
	return Surface
}

var failureMessages = map[Operation]string{
	OpCreate: "failed to save enquiry",
	OpGet:    "failed to fetch enquiry",
	OpList:   "failed to fetch enquiries",
	OpUpdate: "failed to update enquiry",
	OpDelete: "failed to delete enquiry",
	OpExport: "failed to export enquiries",
}

// storeFailure converts a store error into the error category the caller
// sees. store.ErrNotFound becomes NOT_FOUND, anything else INTERNAL_ERROR.
func storeFailure(op Operation, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("enquiry not found")
	}
	msg, ok := failureMessages[op]
	if !ok {
		msg = "store failure"
	}
	return apperrors.Internal(msg, err)
}
