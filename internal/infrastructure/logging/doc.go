// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Conventions used across the service:
//   - Info: one line per mutating file operation, with the relative path
//   - Warn: confinement violations and per-item upload failures
//   - Error: internal failures and recovered panics
//   - Debug: skipped symlinks and dropped archive entries
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Output: []string{"stdout"}})
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Error("Archive failed", zap.Error(err))
package logging
