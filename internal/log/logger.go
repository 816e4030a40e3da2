package log

import (
	"github.com/sirupsen/logrus"
)

// Logger is the handle threaded through the internal API routines.
// The cmd layer uses the global zerolog logger; batch routines that
// run from workers carry one of these instead so their output level
// can be tuned independently of the CLI.
type Logger struct {
	Log  *logrus.Logger
	Path string
}

func NewLogger(l *logrus.Logger, level logrus.Level) *Logger {
	if l == nil {
		l = logrus.New()
	}
	l.SetLevel(level)
	return &Logger{
		Log:  l,
		Path: "",
	}
}
