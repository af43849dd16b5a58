package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkcrawl"

	// DefaultEndpoint is the English Wikipedia action API.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	// DefaultUserAgent identifies the crawler to the API operator, who
	// asks clients to send a descriptive agent with contact information.
	DefaultUserAgent = "linkcrawl/1.0 (+https://github.com/nao1215/linkcrawl)"

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the number of API requests per second.
	DefaultRateLimit = 5.0

	// DefaultLimit is the number of linkshere entries per response.
	DefaultLimit = 500

	// MaxLimit is the largest limit the API accepts from any client.
	MaxLimit = 5000

	// DefaultMaxBodySize limits a single response body.
	DefaultMaxBodySize = 8 * 1024 * 1024 // 8MB

	// DefaultDriver is the graph store driver.
	DefaultDriver = "sqlite"

	// DefaultCapacity bounds the buffer of each pipeline stage.
	DefaultCapacity = 10

	// DefaultPollInterval is how often the Frontier looks for stubs.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultStubRetryAfter is when an unchanged stub is offered again.
	DefaultStubRetryAfter = time.Minute

	// DefaultMaxStoreFailures is the number of consecutive failed batches
	// tolerated before the crawl stops.
	DefaultMaxStoreFailures = 5

	// DefaultTopN is the number of most linked pages shown by stats.
	DefaultTopN = 10
)

// Config holds all configuration options for linkcrawl.
// It is populated once at startup and passed down explicitly.
type Config struct {
	// Endpoint is the URL of the MediaWiki action API.
	Endpoint string

	// UserAgent is the User-Agent header sent with API requests.
	UserAgent string

	// BearerToken is sent as an Authorization header when set.
	BearerToken string

	// Headers are extra headers sent with every API request.
	Headers map[string]string

	// ProxyAddress routes API requests through a SOCKS5 proxy (host:port).
	ProxyAddress string

	// Timeout is the timeout of a single API request.
	Timeout time.Duration

	// RateLimit is the maximum number of API requests per second.
	// Zero disables pacing.
	RateLimit float64

	// Limit is the number of linkshere entries requested per call.
	Limit int

	// Namespace restricts linking pages to one namespace.
	Namespace int

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// DBDriver is "sqlite" or "postgres".
	DBDriver string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/linkcrawl on Linux).
	DBDir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// Capacity bounds the buffer of each pipeline stage.
	Capacity int

	// PollInterval is how often the Frontier scans the store for stubs.
	PollInterval time.Duration

	// StubRetryAfter is how long before an unchanged stub is offered again.
	// Zero waits until a different stub was seen.
	StubRetryAfter time.Duration

	// MaxStoreFailures is the consecutive failure threshold of the Persister.
	MaxStoreFailures int

	// Seeds are page ids expanded before the first stub scan.
	Seeds []string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .linkcrawl is searched in the current and home directory.
	ConfigFilePath string

	// MarkdownReport selects Markdown output for the stats command.
	MarkdownReport bool

	// JSONReport selects JSON output for the stats command.
	JSONReport bool

	// ReportFile is where the stats command writes its report.
	// Empty means stdout.
	ReportFile string

	// TopN is the number of most linked pages in the stats report.
	TopN int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Endpoint:         DefaultEndpoint,
		UserAgent:        DefaultUserAgent,
		Timeout:          DefaultTimeout,
		RateLimit:        DefaultRateLimit,
		Limit:            DefaultLimit,
		MaxBodySize:      DefaultMaxBodySize,
		DBDriver:         DefaultDriver,
		Capacity:         DefaultCapacity,
		PollInterval:     DefaultPollInterval,
		StubRetryAfter:   DefaultStubRetryAfter,
		MaxStoreFailures: DefaultMaxStoreFailures,
		TopN:             DefaultTopN,
	}
}

// XDGDataDir returns the XDG data directory for linkcrawl.
// On Linux: ~/.local/share/linkcrawl
// On macOS: ~/Library/Application Support/linkcrawl
// On Windows: %LOCALAPPDATA%\linkcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.Limit <= 0 || c.Limit > MaxLimit {
		return ErrInvalidLimit
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrUnsupportedDriver
	}

	if c.Capacity <= 0 {
		return ErrInvalidCapacity
	}

	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	if c.StubRetryAfter < 0 {
		return ErrInvalidStubRetry
	}

	if c.MaxStoreFailures <= 0 {
		return ErrInvalidMaxStoreFailures
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
