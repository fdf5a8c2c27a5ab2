package pedestal

import (
	"strings"

	defs "xmtest/definitions"
)

// ToolstackKind is the Xen management CLI in use.
type ToolstackKind int

const (
	XM ToolstackKind = iota
	XL
	Unsupported
)

func (k ToolstackKind) String() string {
	switch k {
	case XM:
		return defs.ToolstackXM
	case XL:
		return defs.ToolstackXL
	default:
		return "unknown"
	}
}

func ParseToolstackKind(s string) ToolstackKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case defs.ToolstackXM, "":
		return XM
	case defs.ToolstackXL:
		return XL
	default:
		return Unsupported
	}
}
