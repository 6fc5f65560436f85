package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrSubmissionInFlight = errors.New("order submission already in flight")
	ErrEmptyDraft         = errors.New("order draft has no items")
	ErrNoCheckout         = errors.New("no checkout in progress")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrValidation         = errors.New("checkout fields are invalid")
)

type SubmitKind string

const (
	// SubmitRejected means the remote answered with a message meant for the user.
	SubmitRejected SubmitKind = "rejected"
	// SubmitTransport covers everything else: network failures, outages, unreadable answers.
	SubmitTransport SubmitKind = "transport"
)

const genericSubmitMessage = "We could not place your order right now. Please try again."

// SubmitError is attached to a draft whose submission failed. The draft stays editable.
type SubmitError struct {
	Kind    SubmitKind `json:"kind"`
	Message string     `json:"message"`
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("order submission failed (%s): %s", e.Kind, e.Message)
}

// ValidationError lists the offending fields of one step, keyed by field name.
type ValidationError struct {
	Step   Step              `json:"-"`
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s step has invalid fields: %s", e.Step, strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
