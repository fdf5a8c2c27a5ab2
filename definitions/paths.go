package defs

import "os"

const (
	XmTestConfDir = "/etc/xm-test"
	// rendered domain configs live here unless [domain] workdir says otherwise
	DefaultWorkDir = "/tmp/xm-test"

	DirMode  = os.FileMode(0700) | os.ModeDir
	FileMode = os.FileMode(0644)
)

const (
	// Harness configuration (INI).
	XmTestConfDropin   = XmTestConfDir + "/conf.d"
	DefaultXmTestConf  = "xm-test.conf"
	XmTestConfEnv      = "XM_TEST_CONF"
	XmTestConfDirEnv   = "XM_TEST_CONF_DIR"
	XmTestToolstackEnv = "XM_TEST_TOOLSTACK"
	XmTestVerboseEnv   = "XM_TEST_VERBOSE"
)

const (
	// /proc/xen only exists inside a Xen guest or dom0
	ProcXen       = "/proc/xen"
	ProcXenXenbus = ProcXen + "/xenbus"
)
