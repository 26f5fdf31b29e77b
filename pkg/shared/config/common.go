package config

import (
	"crypto/tls"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// DefaultMinScore is the minimal score a match needs to be reported.
	DefaultMinScore int64 = 40
	// DefaultMaxSize is the largest file size scanned, 1 GiB.
	DefaultMaxSize int64 = 1073741824
	// DefaultMagic is the signature table location relative to the rules path.
	DefaultMagic = "misc/file-type-signatures.txt"
	// DefaultFormat is the report format written to stdout.
	DefaultFormat = "json"
)

// BaseHTTPConfig holds common HTTP client configuration settings.
type BaseHTTPConfig struct {
	RetryCount       int           // Number of retries for failed requests
	RetryWaitTime    time.Duration // Wait time between retries
	RetryMaxWaitTime time.Duration // Maximum wait time for retries
	Timeout          time.Duration // Timeout for requests
	TLSClientConfig  *tls.Config   // TLS configuration
	Proxy            string        // Proxy address
}

// RestyHTTPClientConfig holds additional configuration settings for the Resty HTTP client.
type RestyHTTPClientConfig struct {
	BaseHTTPConfig
	Debug bool // Flag to enable Resty debug mode
}

// DefaultHTTPConfig returns a base configuration for HTTP clients with default values.
func DefaultHTTPConfig() BaseHTTPConfig {
	return BaseHTTPConfig{
		RetryCount:       3,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 5 * time.Second,
		Timeout:          30 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Proxy: "",
	}
}

// DefaultRestyConfig returns a default configuration for the Resty HTTP client.
func DefaultRestyConfig() RestyHTTPClientConfig {
	return RestyHTTPClientConfig{
		BaseHTTPConfig: DefaultHTTPConfig(),
		Debug:          false,
	}
}

// DefaultThreads returns the default number of scan workers.
func DefaultThreads() int {
	return runtime.NumCPU()
}

// GetThreads returns the configured number of workers or the default.
func GetThreads(cfg *Config) int {
	if cfg == nil {
		return DefaultThreads()
	}
	return SetThen(cfg.Scan.Threads, DefaultThreads())
}

// GetMinScore returns the configured minimal score or the default.
func GetMinScore(cfg *Config) int64 {
	if cfg == nil {
		return DefaultMinScore
	}
	return SetThen(cfg.Scan.MinScore, DefaultMinScore)
}

// GetMaxSize returns the configured maximal file size or the default.
func GetMaxSize(cfg *Config) int64 {
	if cfg == nil {
		return DefaultMaxSize
	}
	return SetThen(cfg.Scan.MaxSize, DefaultMaxSize)
}

// GetMagic returns the configured signature table location or the default.
func GetMagic(cfg *Config) string {
	if cfg == nil {
		return DefaultMagic
	}
	return SetThen(cfg.Scan.Magic, DefaultMagic)
}

// GetFormat returns the configured report format or the default.
func GetFormat(cfg *Config) string {
	if cfg == nil {
		return DefaultFormat
	}
	return SetThen(cfg.Scan.Format, DefaultFormat)
}

// GetHome returns the yarascan home folder.
func GetHome(cfg *Config) string {
	return cfg.Yarascan.HomeFolder
}

// GetRulesCacheHome returns the folder for cloned rule repositories.
func GetRulesCacheHome(cfg *Config) string {
	return SetThen(cfg.Yarascan.RulesCacheFolder, filepath.Join(GetHome(cfg), "rules"))
}

// GetResultsHome returns the default folder for report files.
func GetResultsHome(cfg *Config) string {
	return SetThen(cfg.Yarascan.ResultsFolder, filepath.Join(GetHome(cfg), "results"))
}
