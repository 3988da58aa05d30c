// Package logger provides structured logging for the fleet manager.
//
// This package wraps log/slog for structured logging:
//
//   - logger.go: slog logger configuration and initialization
//   - zap.go: placeholder file with no code
//   - context.go: Context-aware logging with request/trace IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering
//   - Automatic sensitive data masking
//   - Context propagation for request tracing
//
// @req RQ-0403
// @design DS-0402
package logger
