package pionice

import (
	"github.com/pion/logging"
	log "github.com/sirupsen/logrus"
)

// logrusLogger routes pion's leveled logging into logrus. pion is chatty at info level, so every
// level is shifted one step down.
type logrusLogger struct {
	entry *log.Entry
}

func (l *logrusLogger) Trace(msg string) {
	l.entry.Trace(msg)
}

func (l *logrusLogger) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l *logrusLogger) Debug(msg string) {
	l.entry.Trace(msg)
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l *logrusLogger) Info(msg string) {
	l.entry.Debug(msg)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(msg string) {
	l.entry.Error(msg)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

type logrusFactory struct {
	entry *log.Entry
}

func newLogrusFactory(entry *log.Entry) logging.LoggerFactory {
	return &logrusFactory{entry: entry}
}

func (f *logrusFactory) NewLogger(scope string) logging.LeveledLogger {
	return &logrusLogger{entry: f.entry.WithField("scope", scope)}
}
