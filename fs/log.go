package fs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// logger is the package-level logrus instance backing the Logf family.
// Callers log through this facade, never fmt.Println or the stdlib log
// package.
var logger = logrus.StandardLogger()

// SetLogger replaces the backing logrus logger, e.g. to redirect output or
// change formatting in cmd/flocond.
func SetLogger(l *logrus.Logger) { logger = l }

// Log levels exposed to CLIs for their -v/-V verbosity flags, so callers
// don't need to import logrus themselves.
const (
	LogLevelError = logrus.ErrorLevel
	LogLevelInfo  = logrus.InfoLevel
	LogLevelDebug = logrus.DebugLevel
)

// SetLogLevel sets the minimum level the backing logger emits.
func SetLogLevel(level logrus.Level) { logger.SetLevel(level) }

// loggable is implemented by anything that can describe itself for a log
// line: a Path, a container, a context name. Types that don't implement it
// fall back to fmt.Sprint.
type loggable interface {
	String() string
}

func describe(o interface{}) string {
	if o == nil {
		return "-"
	}
	if l, ok := o.(loggable); ok {
		return l.String()
	}
	return fmt.Sprint(o)
}

// Debugf logs at debug level, prefixed with a description of o.
func Debugf(o interface{}, format string, args ...interface{}) {
	logger.Debugf("%s: %s", describe(o), fmt.Sprintf(format, args...))
}

// Infof logs at info level, prefixed with a description of o.
func Infof(o interface{}, format string, args ...interface{}) {
	logger.Infof("%s: %s", describe(o), fmt.Sprintf(format, args...))
}

// Logf is an alias for Infof, the default-visibility log line.
func Logf(o interface{}, format string, args ...interface{}) {
	Infof(o, format, args...)
}

// Errorf logs at error level, prefixed with a description of o.
func Errorf(o interface{}, format string, args ...interface{}) {
	logger.Errorf("%s: %s", describe(o), fmt.Sprintf(format, args...))
}
