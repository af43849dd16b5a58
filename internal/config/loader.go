package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".linkcrawl"

// DefaultEnvFile is the dotenv file read from the current directory.
const DefaultEnvFile = ".env"

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "LINKCRAWL_"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .linkcrawl configuration file.
// Zero values leave the corresponding setting untouched.
type File struct {
	API      APIFile      `yaml:"api,omitempty"`
	Database DatabaseFile `yaml:"database,omitempty"`
	Pipeline PipelineFile `yaml:"pipeline,omitempty"`
}

// APIFile holds the API client section.
type APIFile struct {
	Endpoint    string            `yaml:"endpoint,omitempty"`
	UserAgent   string            `yaml:"userAgent,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Proxy       string            `yaml:"proxy,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	RateLimit   *float64          `yaml:"rateLimit,omitempty"`
	Limit       int               `yaml:"limit,omitempty"`
	Namespace   *int              `yaml:"namespace,omitempty"`
	MaxBodySize int64             `yaml:"maxBodySize,omitempty"`
}

// DatabaseFile holds the graph store section.
type DatabaseFile struct {
	Driver string `yaml:"driver,omitempty"`
	Dir    string `yaml:"dir,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// PipelineFile holds the pipeline tuning section.
type PipelineFile struct {
	Capacity         int            `yaml:"capacity,omitempty"`
	PollInterval     time.Duration  `yaml:"pollInterval,omitempty"`
	StubRetryAfter   *time.Duration `yaml:"stubRetryAfter,omitempty"`
	MaxStoreFailures int            `yaml:"maxStoreFailures,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .linkcrawl in the current directory
// 3. Look for .linkcrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply overlays the values set in the file onto c.
func (f *File) Apply(c *Config) {
	api := f.API
	setString(&c.Endpoint, api.Endpoint)
	setString(&c.UserAgent, api.UserAgent)
	setString(&c.ProxyAddress, api.Proxy)
	if len(api.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(api.Headers))
		}
		for k, v := range api.Headers {
			c.Headers[k] = v
		}
	}
	if api.Timeout != 0 {
		c.Timeout = api.Timeout
	}
	if api.RateLimit != nil {
		c.RateLimit = *api.RateLimit
	}
	if api.Limit != 0 {
		c.Limit = api.Limit
	}
	if api.Namespace != nil {
		c.Namespace = *api.Namespace
	}
	if api.MaxBodySize != 0 {
		c.MaxBodySize = api.MaxBodySize
	}

	setString(&c.DBDriver, f.Database.Driver)
	setString(&c.DBDir, f.Database.Dir)
	setString(&c.DSN, f.Database.DSN)

	p := f.Pipeline
	if p.Capacity != 0 {
		c.Capacity = p.Capacity
	}
	if p.PollInterval != 0 {
		c.PollInterval = p.PollInterval
	}
	if p.StubRetryAfter != nil {
		c.StubRetryAfter = *p.StubRetryAfter
	}
	if p.MaxStoreFailures != 0 {
		c.MaxStoreFailures = p.MaxStoreFailures
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a LookupFunc over the process environment, falling back
// to the variables of the dotenv file at path. A missing dotenv file is not
// an error. Process variables win, as with godotenv.Load.
func EnvLookup(path string) (LookupFunc, error) {
	fileVars := map[string]string{}
	if path != "" {
		vars, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays the LINKCRAWL_* variables found by lookup onto c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"ENDPOINT":     &c.Endpoint,
		"USER_AGENT":   &c.UserAgent,
		"BEARER_TOKEN": &c.BearerToken,
		"PROXY":        &c.ProxyAddress,
		"DB_DRIVER":    &c.DBDriver,
		"DB_DIR":       &c.DBDir,
		"DATABASE_URL": &c.DSN,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT: %w", ErrInvalidEnv, EnvPrefix, err)
		}
		c.Timeout = d
	}

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sRATE_LIMIT: %w", ErrInvalidEnv, EnvPrefix, err)
		}
		c.RateLimit = rps
	}

	if v, ok := lookup(EnvPrefix + "CAPACITY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sCAPACITY: %w", ErrInvalidEnv, EnvPrefix, err)
		}
		c.Capacity = n
	}

	return nil
}
