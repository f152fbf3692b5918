// Package apperrors holds the error kinds surfaced by the approval routing and
// workflow status engine. Callers match them with errors.Is and errors.As.
package apperrors

import (
	"errors"
	"fmt"

	"procurement-backend/db/models"
)

var (
	// Chain construction
	ErrDuplicateChain  = errors.New("document already has an active approval chain")
	ErrInvalidApprover = errors.New("invalid approver")
	ErrInvalidChain    = errors.New("invalid approval chain")
	ErrNotApprovable   = errors.New("document does not accept an approval chain in its current state")
	ErrNotInitiator    = errors.New("only the chain initiator may withdraw it")

	// Decisions
	ErrNoPendingStep           = errors.New("no pending approval step")
	ErrWrongApprover           = errors.New("approver is not the current step's approver")
	ErrStepAlreadyResolved     = errors.New("approval step already resolved")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrInvalidDecision         = errors.New("invalid decision")

	// Lifecycle
	ErrIllegalTransition = errors.New("illegal status transition")

	// Registry
	ErrDocumentNotFound    = errors.New("document not found")
	ErrPredecessorNotFound = errors.New("predecessor document not found")
	ErrDuplicateDocument   = errors.New("predecessor already has a document of this kind")
	ErrStageNotReady       = errors.New("predecessor is not at the required stage")

	// Persistence
	ErrTransient = errors.New("transient persistence failure")
)

// TransitionError describes a rejected lifecycle move.
type TransitionError struct {
	Ref     models.DocumentRef
	From    models.DocumentStatus
	Trigger models.Trigger
	Reason  string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: trigger %s not allowed from status %s", e.Ref, e.Trigger, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// IsRetryable reports whether err is worth retrying as a whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
