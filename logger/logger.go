//go:build !debug
// +build !debug

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	Log.SetOutput(os.Stderr)
	_ = setFormat("text", false)
}

func Init(config *Config) error {
	if config == nil {
		return nil
	}
	if config.Level != "" {
		level, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return err
		}
		Log.SetLevel(level)
	}
	if config.Debug {
		Log.SetLevel(logrus.DebugLevel)
	}
	if err := setFormat(config.Format, config.Debug); err != nil {
		return err
	}
	return openOutput(config.Output)
}

func shortCaller(f *runtime.Frame) (string, string) {
	fn := f.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn + "()", filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)
}

func Debug(args ...interface{}) {
	Log.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	Log.Debugf(callerPrefix()+format, args...)
}

// callerPrefix names the caller of Debugf, only when the level lets it through.
func callerPrefix() string {
	if !Log.IsLevelEnabled(logrus.DebugLevel) || Log.ReportCaller {
		return ""
	}
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	return fmt.Sprintf("[%s:%d] %s: ", filepath.Base(file), line, filepath.Base(runtime.FuncForPC(pc).Name()))
}

// Pretty is Debugf in release builds; the debug build expands structs.
func Pretty(format string, args ...interface{}) {
	Log.Debugf(callerPrefix()+format, args...)
}
