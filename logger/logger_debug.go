//go:build debug
// +build debug

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	defs "xmtest/definitions"
)

const debugFileName = defs.DefaultWorkDir + "/debug.log"

func init() {
	Log.SetOutput(os.Stderr)
	Log.SetLevel(logrus.DebugLevel)
	_ = setFormat("text", true)
}

// Init ignores Level in debug builds; everything goes out at debug level and
// is mirrored into debugFileName.
func Init(config *Config) error {
	if config == nil {
		return nil
	}
	if err := setFormat(config.Format, true); err != nil {
		return err
	}
	if err := openOutput(config.Output); err != nil {
		return err
	}
	return resetDebugFile()
}

func shortCaller(f *runtime.Frame) (string, string) {
	return filepath.Base(f.Function), fmt.Sprintf("%s:%d", f.File, f.Line)
}

func Debug(args ...interface{}) {
	Debugf("%s", fmt.Sprint(args...))
}

// Every Debugf goes to both the configured output and the debug file.
func Debugf(format string, args ...interface{}) {
	Log.Debugf(format, args...)
	fdebugf(format, args...)
}

func resetDebugFile() error {
	dir := filepath.Dir(debugFileName)
	if err := os.MkdirAll(dir, defs.DirMode); err != nil {
		return err
	}
	f, err := os.OpenFile(debugFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defs.FileMode)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "============ %s ============\n", time.Now().Format("2006-01-02 15:04:05"))
	return err
}

func fdebugf(format string, args ...interface{}) {
	f, err := os.OpenFile(debugFileName, os.O_APPEND|os.O_WRONLY, defs.FileMode)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, callerPrefix(3)+format+"\n", args...)
}

func callerPrefix(depth int) string {
	pc, file, line, ok := runtime.Caller(depth)
	if !ok {
		return ""
	}
	callee := runtime.FuncForPC(pc).Name()
	if lastDot := strings.LastIndex(callee, "."); lastDot >= 0 {
		callee = callee[lastDot+1:]
	}
	return fmt.Sprintf("[%s] %s(), @[%s:%d]  ", time.Now().Format("15:04:05"), callee, filepath.Base(file), line)
}

// Pretty dumps structs through kr/pretty, truncated so a huge value cannot
// flood the debug file.
func Pretty(format string, args ...interface{}) {
	formatted := make([]interface{}, len(args))
	for i, arg := range args {
		s := pretty.Sprint(arg)
		const maxSize = 10 * 1024
		if len(s) > maxSize {
			s = s[:maxSize] + "\n... [TRUNCATED]"
		}
		formatted[i] = s
	}
	Debugf(format, formatted...)
}
