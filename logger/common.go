package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	defs "xmtest/definitions"
)

const timestampFormat = "01-02 15:04:05.000"

var Log = logrus.New()

// Config is the [log] section of the harness config.
type Config struct {
	// Level is one of the logrus level names. Empty keeps info.
	Level string
	// Format is text or json.
	Format string
	// Output is a file path; empty means stderr. The file is appended to so
	// several runs can share one log.
	Output string
	// Debug adds the calling function and file to every entry.
	Debug bool
}

func setFormat(format string, caller bool) error {
	switch format {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	case "text", "":
		f := &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}
		if caller {
			f.CallerPrettyfier = shortCaller
		}
		Log.SetFormatter(f)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	Log.SetReportCaller(caller)
	return nil
}

func openOutput(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), defs.DirMode); err != nil {
		return fmt.Errorf("log output: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defs.FileMode)
	if err != nil {
		return fmt.Errorf("log output: %w", err)
	}
	Log.SetOutput(file)
	return nil
}

// SetOutput redirects every logger call, mostly for tests.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Log.WithError(err)
}

// WithScenario tags entries with the running scenario.
func WithScenario(group, name string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{"group": group, "scenario": name})
}

func Info(args ...interface{})  { Log.Info(args...) }
func Warn(args ...interface{})  { Log.Warn(args...) }
func Error(args ...interface{}) { Log.Error(args...) }
func Fatal(args ...interface{}) { Log.Fatal(args...) }

func Infof(format string, args ...interface{})  { Log.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Log.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { Log.Fatalf(format, args...) }
