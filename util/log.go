package util

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/netbirdio/iceagent/formatter"
)

const (
	// LogConsole keeps log output on stderr.
	LogConsole = "console"
	// LogStdout sends log output to stdout.
	LogStdout = "stdout"
)

// InitLog parses and sets log-level input. Any logPath other than console or stdout is treated as
// a file that gets rotated.
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	log.SetOutput(logOutput(logPath))
	formatter.SetTextFormatter(log.StandardLogger())
	log.SetLevel(level)
	return nil
}

func logOutput(logPath string) io.Writer {
	switch logPath {
	case "", LogConsole:
		return os.Stderr
	case LogStdout:
		return os.Stdout
	default:
		return &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
}
