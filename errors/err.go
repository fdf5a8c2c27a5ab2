package errors

import (
	"fmt"
)

type ErrCode int
type HarnessErr struct {
	Code ErrCode
	Msg  string
}

func (e *HarnessErr) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
}

func new(code ErrCode, msg string) *HarnessErr {
	return &HarnessErr{
		Code: code,
		Msg:  msg,
	}
}

const (
	invalidState ErrCode = iota
	notFound
	invalid
	toolstackFailed
	unexpectedStatus
	notSupported
	parseFailed
	provisionFailed
	assertionFailed
	hostMissing
)

// Pre-defined errors.
var (
	InvalidState      = new(invalidState, "invalid state")
	InvalidDomainName = new(invalid, "invalid domain name")
	EmptyDomainName   = new(invalid, "empty domain name")
	DomainNotFound    = new(notFound, "domain not found")
	NotSupported      = new(notSupported, "toolstack does not support this")

	ToolstackMissing = new(hostMissing, "no xen toolstack found in PATH")
	ToolstackFailed  = new(toolstackFailed, "toolstack command failed")
	XenMissing       = new(hostMissing, "host is not running on xen")

	ErrOutputParse      = new(parseFailed, "failed to parse command output")
	ErrProvision        = new(provisionFailed, "failed to provision domain")
	ErrQuery            = new(unexpectedStatus, "query returned non-zero status")
	ErrAssertion        = new(assertionFailed, "assertion failed")
	InsufficientMemory  = new(hostMissing, "not enough free host memory for the domain")
	InvalidSEDFArgument = new(invalid, "invalid sedf parameter")
)
