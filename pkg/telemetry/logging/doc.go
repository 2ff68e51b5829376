// Package logging builds the process slog logger.
//
// # Overview
//
// Components log through slog.Default().With("component", ...). Setup
// installs a default logger whose handler:
//   - writes JSON, text or console output at the configured level
//   - adds sweep_id, operation and actor from the context to every record
//   - masks email addresses, bearer tokens and credential-like keys
//
// # Usage
//
//	logger, err := logging.Setup(logging.FromConfig(&cfg.Telemetry.Logging))
//
//	ctx = logging.WithSweepID(ctx, sweepID)
//	slog.InfoContext(ctx, "sweep started")  // includes sweep_id
//
// # PII Redaction
//
//   - Emails: counsel@example.com → c***@example.com
//   - Bearer tokens: Bearer eyJhbGci... → Bearer ***
//   - Connection strings: postgres://app:s3cret@db → postgres://app:***@db
//   - Keys containing token, secret, password or dsn are masked entirely
package logging
