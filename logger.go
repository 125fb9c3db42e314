package sdr

import (
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "sdr"})

// SetLogger replaces the package logger. All nodes and the queue log through
// it; buffer drops are reported at warn level, configuration at debug level.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// Logger returns the package logger.
func Logger() *log.Logger { return logger }
