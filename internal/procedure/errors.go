package procedure

import (
	"errors"
	"fmt"
)

var ErrEmptyProcedureName = errors.New("procedure name (param1) is required")

type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConnectionError means the session never became usable; nothing needs rolling back.
type ConnectionError struct {
	Code        string
	Description string
	Err         error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed [code: %s]: %s", e.Code, e.Description)
}

func (e ConnectionError) Unwrap() error { return e.Err }

// InvocationError carries what the driver reported about a failed call.
type InvocationError struct {
	Procedure   string
	Parameter   string
	Code        string
	Description string
	Err         error
}

func (e InvocationError) Error() string {
	return fmt.Sprintf("procedure %s call failed [code: %s]: %s", e.Procedure, e.Code, e.Description)
}

func (e InvocationError) Unwrap() error { return e.Err }

// CollectionError is a failure after a successful call: reading a result set,
// advancing to the next one, or committing.
type CollectionError struct {
	Procedure string
	Op        string
	Set       int
	Err       error
}

func (e CollectionError) Error() string {
	if e.Set > 0 {
		return fmt.Sprintf("procedure %s: %s result set %d: %v", e.Procedure, e.Op, e.Set, e.Err)
	}
	return fmt.Sprintf("procedure %s: %s: %v", e.Procedure, e.Op, e.Err)
}

func (e CollectionError) Unwrap() error { return e.Err }

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeConnection = "connection"
	OutcomeInvocation = "invocation"
	OutcomeCollection = "collection"
	OutcomeInternal   = "internal"
)

// Outcome classifies err for metrics and stats.
func Outcome(err error) string {
	var (
		vErr ValidationError
		cErr ConnectionError
		iErr InvocationError
		dErr CollectionError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &vErr):
		return OutcomeValidation
	case errors.As(err, &cErr):
		return OutcomeConnection
	case errors.As(err, &iErr):
		return OutcomeInvocation
	case errors.As(err, &dErr):
		return OutcomeCollection
	default:
		return OutcomeInternal
	}
}
