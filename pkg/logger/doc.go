// Package logger provides the structured logging layer for the outreach engine.
//
// It wraps zerolog behind a small interface so components can be tested with
// a capturing logger, and exposes a global instance for code paths that run
// before dependency wiring (CLI startup, config validation).
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger()
//	log.WithField("user_id", uid).Info("greet sent")
package logger
