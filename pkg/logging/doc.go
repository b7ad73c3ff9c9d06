// Package logging provides structured logging configuration for stubd.
//
// This package wraps log/slog to provide consistent logging across all stubd
// components. It supports configurable log levels, output formats and an
// optional rotating log file.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	    File:   &logging.FileConfig{Path: "stubd.log", MaxSizeMB: 10},
//	})
//
//	logger.Info("server started", "port", 8080)
//	logger.Error("failed to load mappings", "error", err)
//
// # Notifiers
//
// A Notifier receives the diagnostic messages the response renderer emits for
// every rendered response. SlogNotifier forwards them to a logger;
// ConsoleNotifier prints them in colour for --verbose runs. A Notifier never
// fails: write errors are dropped.
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via a setter.
// If no logger is provided, use logging.Nop() for a no-op logger.
package logging
