// Package log provides the shared zap-based logger for anhakit commands
// and library packages.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var sugar *zap.SugaredLogger

// Init initializes the package-level logger. Commands call it once before
// any other anhakit package; debug selects the human-readable development
// encoder and enables debug-level output.
func Init(debug bool) error {
	var logger *zap.Logger
	var err error

	if debug {
		logger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		logger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	sugar = logger.Sugar()
	return nil
}

// L returns the sugared logger, initializing a production fallback if a
// library package logs before Init was called.
func L() *zap.SugaredLogger {
	if sugar == nil {
		logger, _ := zap.NewProduction(zap.AddCallerSkip(1))
		sugar = logger.Sugar()
	}
	return sugar
}

// Sync flushes any buffered log entries.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	L().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	L().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	L().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	L().Errorw(msg, keysAndValues...)
}

func Infof(template string, args ...interface{}) {
	L().Infof(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	L().Fatalf(template, args...)
}
