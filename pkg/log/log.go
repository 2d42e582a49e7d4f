// Package log builds the diagnostic logger an App runs with: a
// file-backed development logger or a discarding production logger,
// leveled from the configured -v/--verbose diagnostics setting, plus a
// helper for tagging a line with the action/target it concerns.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/config"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/sirupsen/logrus"
)

// NewLogger returns the base logger for an App, tagged with its build
// identity and leveled from cfg.UserConfig.Diagnostics.Verbose (§7's
// 0-6 diagnostic verbosity).
func NewLogger(cfg *config.AppConfig, rollrusHook string) *logrus.Entry {
	var log *logrus.Logger
	if cfg.Debug || os.Getenv("DEBUG") == "TRUE" {
		log = newDevelopmentLogger(cfg)
	} else {
		log = newProductionLogger()
	}

	if lvl := levelForVerbosity(cfg.UserConfig.Diagnostics.Verbose); lvl > log.GetLevel() {
		log.SetLevel(lvl)
	}

	// highly recommended: tail -f development.log | humanlog
	// https://github.com/aybabtme/humanlog
	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{
		"debug":     cfg.Debug,
		"version":   cfg.Version,
		"commit":    cfg.Commit,
		"buildDate": cfg.BuildDate,
	})
}

// ForAction tags log with the action/target a diagnostic line concerns,
// the one pair every Driver.Match/Execute failure needs to report.
func ForAction(log *logrus.Entry, act action.Action, t *target.Target) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"action": act.String(),
		"target": t.Name,
	})
}

// levelForVerbosity maps the -v/--verbose count onto a logrus level.
// 0 is errors only; 1 (the default) adds warnings; 2-3 adds per-target
// progress; 4 and above add debug-level tracing. Levels above 4 map to
// the same logrus level as 4.
func levelForVerbosity(verbose int) logrus.Level {
	switch {
	case verbose <= 0:
		return logrus.ErrorLevel
	case verbose == 1:
		return logrus.WarnLevel
	case verbose <= 3:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func getLogLevel() logrus.Level {
	strLevel := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(config *config.AppConfig) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())
	file, err := os.OpenFile(filepath.Join(config.ConfigDir, "development.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Println("unable to log to file")
		os.Exit(1)
	}
	log.SetOutput(file)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}
