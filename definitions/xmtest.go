package defs

import "time"

const (
	ToolstackXM = "xm"
	ToolstackXL = "xl"

	DefaultToolstack = ToolstackXM
	// a single toolstack call must never hang a scenario
	DefaultCommandTimeout = 120 * time.Second

	DefaultDomainMemoryMB = 64
	DefaultDomainVCPUs    = 1
	DefaultDomainPrefix   = "xmtest"
	MaxDomainNameLength   = 64

	// xm-test kernel/ramdisk pair installed by the ramdisk build
	DefaultKernel  = "/boot/vmlinuz-xen"
	DefaultRamdisk = "/usr/share/xm-test/initrd.img"
	DefaultRoot    = "/dev/ram0"
)

// Exit statuses understood by the xm-test runner scripts.
const (
	ExitPass = 0
	ExitFail = 1
	ExitSkip = 77
)

// SEDF scheduler literals.
const (
	SchedSEDF = "sedf"
	// diagnostic xm prints when the hypervisor refuses a sedf update
	SEDFSetFailed = "Failed to set sedf parameters"
	// name, domid, period, slice, latency, extratime, weight
	SEDFRowFields = 7
)
