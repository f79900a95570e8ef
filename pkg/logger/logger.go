package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/zfogg/threadline/pkg/config"
)

var (
	logger *log.Logger
	sink   *os.File
)

// Init builds the logger from log.level and log.file. verbose forces debug.
// Without a writable log file, records go to stderr.
func Init(verbose bool) {
	level, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	if sink != nil {
		_ = sink.Close()
		sink = nil
	}

	var w io.Writer = os.Stderr
	if path := config.GetString("log.file"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
			sink = f
			w = f
		}
	}

	logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "threadline",
	})
	logger.SetLevel(level)
}

// SetOutput replaces the logger sink; tests use it to capture output
func SetOutput(w io.Writer, level log.Level) {
	logger = log.New(w)
	logger.SetLevel(level)
}

func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// GetLogger returns the logger instance
func GetLogger() *log.Logger {
	return logger
}
