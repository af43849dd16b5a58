package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoEndpoint is returned when the API endpoint is empty.
	ErrNoEndpoint = errors.New("no API endpoint specified")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 to disable pacing.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidLimit is returned when the per-request limit is out of range.
	ErrInvalidLimit = errors.New("invalid limit: must be between 1 and 5000")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnsupportedDriver is returned for a database driver other than
	// sqlite or postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver: use sqlite or postgres")

	// ErrMissingDSN is returned when the postgres driver has no DSN.
	ErrMissingDSN = errors.New("postgres driver requires a DSN")

	// ErrInvalidCapacity is returned when the stage capacity is not positive.
	ErrInvalidCapacity = errors.New("invalid capacity: must be positive")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidStubRetry is returned when the stub retry interval is negative.
	ErrInvalidStubRetry = errors.New("invalid stub retry interval: must be non-negative")

	// ErrInvalidMaxStoreFailures is returned when the failure threshold is
	// not positive.
	ErrInvalidMaxStoreFailures = errors.New("invalid max store failures: must be positive")

	// ErrConflictingReportFormats is returned when both JSON and Markdown
	// output are requested.
	ErrConflictingReportFormats = errors.New("--json and --markdown are mutually exclusive")

	// ErrInvalidEnv is returned when a LINKCRAWL_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
