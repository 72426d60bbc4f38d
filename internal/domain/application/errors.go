package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound                   = errors.New("application not found")
	ErrDuplicateActiveApplication = errors.New("owner already has an active application")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrInvalidStateForMutation    = errors.New("application cannot be modified in its current status")
	ErrIncompleteDocuments        = errors.New("required documents are missing")
	ErrMissingRejectionReason     = errors.New("rejection reason is required")
	ErrInvalidSlot                = errors.New("invalid document slot")
	ErrSlotEmpty                  = errors.New("document slot is empty")
	ErrForbidden                  = errors.New("caller is not allowed to perform this action")
	ErrUpstream                   = errors.New("upstream collaborator failure")
	ErrInvalidDecision            = errors.New("invalid review decision")
	ErrInvalidFilter              = errors.New("invalid filter")
)

// StatusError is a guard violation; it carries the authoritative status so the
// caller can decide what to do next.
type StatusError struct {
	Kind   error
	Status Status
	Action string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: cannot %s while status is %s", e.Kind, e.Action, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Kind }

func invalidTransition(s Status, action string) error {
	return &StatusError{Kind: ErrInvalidTransition, Status: s, Action: action}
}

func notMutable(s Status, action string) error {
	return &StatusError{Kind: ErrInvalidStateForMutation, Status: s, Action: action}
}

type MissingDocumentsError struct {
	Missing []Slot
}

func (e *MissingDocumentsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = string(s)
	}
	return fmt.Sprintf("%s: %s", ErrIncompleteDocuments, strings.Join(names, ", "))
}

func (e *MissingDocumentsError) Unwrap() error { return ErrIncompleteDocuments }

// DuplicateError names the application that blocks a new one.
type DuplicateError struct {
	ApplicationNumber string
	Status            Status
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrDuplicateActiveApplication, e.ApplicationNumber, e.Status)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateActiveApplication }

// CurrentStatus extracts the authoritative status carried by err, if any.
func CurrentStatus(err error) (Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	var de *DuplicateError
	if errors.As(err, &de) {
		return de.Status, true
	}
	return "", false
}
