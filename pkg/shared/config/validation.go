package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scan-io-git/yarascan/pkg/shared/files"
)

// ValidateConfig checks if the global configurations have valid values and fills in folders.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateYarascanConfig(cfg); err != nil {
		return fmt.Errorf("YAML global config: yarascan directive is invalid: %w", err)
	}
	if err := ValidateScanConfig(&cfg.Scan); err != nil {
		return fmt.Errorf("YAML global config: scan directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGitConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	return nil
}

// ValidateYarascanConfig resolves the working folders from environment variables or defaults.
func ValidateYarascanConfig(cfg *Config) error {
	if err := updateHome(cfg); err != nil {
		return fmt.Errorf("failed to update home folder: %w", err)
	}
	if err := updateFolder(&cfg.Yarascan.RulesCacheFolder, "YARASCAN_RULES_CACHE", "rules", cfg); err != nil {
		return fmt.Errorf("failed to update rules cache folder: %w", err)
	}
	if err := updateFolder(&cfg.Yarascan.ResultsFolder, "YARASCAN_RESULTS_FOLDER", "results", cfg); err != nil {
		return fmt.Errorf("failed to update results folder: %w", err)
	}
	return nil
}

// ValidateScanConfig checks the scan defaults.
func ValidateScanConfig(scan *Scan) error {
	if scan == nil {
		return fmt.Errorf("scan configuration is nil")
	}
	if scan.Threads < 0 {
		return fmt.Errorf("threads must not be negative: %d", scan.Threads)
	}
	if scan.MinScore < 0 {
		return fmt.Errorf("min_score must not be negative: %d", scan.MinScore)
	}
	if scan.MaxSize < 0 {
		return fmt.Errorf("max_size must not be negative: %d", scan.MaxSize)
	}
	if scan.Format != "" {
		if err := ValidateFormat(scan.Format); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFormat checks that the report format is supported.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "jsonl", "sarif", "markdown", "html":
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// ValidateGitConfig checks if the Git configurations have valid values.
func ValidateGitConfig(gitConfig *GitClient) error {
	if gitConfig == nil {
		return fmt.Errorf("git configuration is nil")
	}
	switch gitConfig.AuthType {
	case "", "none", "http", "ssh-key", "ssh-agent":
	default:
		return fmt.Errorf("unknown auth_type %q", gitConfig.AuthType)
	}
	if gitConfig.Depth < 0 {
		return fmt.Errorf("depth must not be negative: %d", gitConfig.Depth)
	}
	return validateDuration(gitConfig.Timeout, "timeout", 1*time.Hour)
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	return validateProxy(&httpConfig.Proxy)
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks the proxy settings and adds the http scheme when missing.
func validateProxy(proxy *Proxy) error {
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if !strings.Contains(proxy.Host, "://") {
		proxy.Host = "http://" + proxy.Host
	}
	proxy.Host = strings.TrimRight(proxy.Host, "/")

	if _, err := url.Parse(proxy.Host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	if proxy.Port < 1 || proxy.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", proxy.Port)
	}
	return nil
}

// updateHome updates the home folder from environment variables or sets a default value.
func updateHome(cfg *Config) error {
	if home := os.Getenv("YARASCAN_HOME"); home != "" {
		cfg.Yarascan.HomeFolder = home
	} else if cfg.Yarascan.HomeFolder == "" {
		homeFolder, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to get user home folder: %w", err)
		}
		cfg.Yarascan.HomeFolder = filepath.Join(homeFolder, ".yarascan")
	}

	expanded, err := files.ExpandPath(cfg.Yarascan.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand home path %q: %w", cfg.Yarascan.HomeFolder, err)
	}
	cfg.Yarascan.HomeFolder = expanded
	return nil
}

// updateFolder resolves a folder path from an environment variable, the config or the home folder.
func updateFolder(folder *string, envVar, defaultSubFolder string, cfg *Config) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = filepath.Join(GetHome(cfg), defaultSubFolder)
	}

	expanded, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expanded
	return nil
}
