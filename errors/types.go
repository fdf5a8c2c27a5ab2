package errors

import "fmt"

// ProvisioningError is returned when a domain could not be created or started.
// Detail holds whatever the toolstack printed, if anything.
type ProvisioningError struct {
	Domain string
	Detail string
	Err    error
}

func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("provisioning domain %s failed", e.Domain)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProvisioningError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvision}
	}
	return []error{ErrProvision, e.Err}
}

// QueryError carries the non-zero status of a parameter query.
type QueryError struct {
	Command string
	Status  int
	Output  string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: non-zero rv (%d)", e.Command, e.Status)
}

func (e *QueryError) Unwrap() error { return ErrQuery }

// ParseError reports toolstack output that does not match the expected grammar.
type ParseError struct {
	What  string
	Input string
	Want  int
	Got   int
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("parse %s %q: %v", e.What, e.Input, e.Err)
	case e.Want > 0:
		return fmt.Sprintf("parse %s %q: want %d fields, got %d", e.What, e.Input, e.Want, e.Got)
	default:
		return fmt.Sprintf("parse %s %q: unexpected format", e.What, e.Input)
	}
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOutputParse}
	}
	return []error{ErrOutputParse, e.Err}
}

// AssertionFailure is the labelled failure a scenario reports.
type AssertionFailure struct {
	Msg string
}

func (e *AssertionFailure) Error() string { return e.Msg }

func (e *AssertionFailure) Unwrap() error { return ErrAssertion }
