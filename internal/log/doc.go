// Package log provides secure logging built on top of log/slog.
//
// The SecureHandler masks sensitive values before they reach the output:
//   - credential-like attribute keys (authorization, bearer_token, password, dsn)
//   - values that look like credentials (bearer or basic authorization
//     values, JWTs, database URLs carrying a password)
//
// Masking also applies in verbose mode, so a debug log can be shared
// without leaking the API token or the database password.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("store opened", "dsn", dsn) // dsn=***REDACTED***
package log
