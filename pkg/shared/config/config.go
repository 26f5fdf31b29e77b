package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the global yarascan configuration loaded from YAML.
type Config struct {
	Yarascan   Yarascan   `yaml:"yarascan"`
	Logger     Logger     `yaml:"logger"`
	Scan       Scan       `yaml:"scan"`
	GitClient  GitClient  `yaml:"git_client"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Upload     Upload     `yaml:"upload"`
}

// Yarascan holds the working folders of the tool.
type Yarascan struct {
	HomeFolder       string `yaml:"home_folder"`        // Base folder, defaults to ~/.yarascan
	RulesCacheFolder string `yaml:"rules_cache_folder"` // Where remote rule repositories are cloned
	ResultsFolder    string `yaml:"results_folder"`     // Default destination for report files
}

// Logger holds logging settings.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Scan holds defaults for the scan command. Command-line flags take precedence.
type Scan struct {
	Threads  int      `yaml:"threads"`
	MinScore int64    `yaml:"min_score"`
	MaxSize  int64    `yaml:"max_size"`
	Magic    string   `yaml:"magic"`
	Filters  []string `yaml:"filters"` // Glob filters applied to scanned files, all files when empty
	Format   string   `yaml:"format"`
}

// GitClient holds settings for fetching rule repositories.
type GitClient struct {
	AuthType    string        `yaml:"auth_type"` // none, http, ssh-key or ssh-agent
	Username    string        `yaml:"username"`
	Token       string        `yaml:"token"`
	SSHKey      string        `yaml:"ssh_key"`
	SSHKeyPass  string        `yaml:"ssh_key_password"`
	Depth       int           `yaml:"depth"`
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS *bool         `yaml:"insecure_tls"`
}

// HTTPClient holds settings for downloading rule files.
type HTTPClient struct {
	Debug            *bool         `yaml:"debug"`
	RetryCount       int           `yaml:"retry_count"`
	RetryWaitTime    time.Duration `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration `yaml:"retry_max_wait_time"`
	Timeout          time.Duration `yaml:"timeout"`
	TLSClientConfig  TLSConfig     `yaml:"tls_client_config"`
	Proxy            Proxy         `yaml:"proxy"`
}

// TLSConfig holds TLS verification settings.
type TLSConfig struct {
	Verify *bool `yaml:"verify"`
}

// Proxy holds an optional proxy address.
type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Upload holds settings for report uploads.
type Upload struct {
	S3 S3 `yaml:"s3"`
}

// S3 holds settings for the S3 uploader.
type S3 struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	Profile        string `yaml:"profile"`
	ForcePathStyle *bool  `yaml:"force_path_style"`
}

// ValidateConfigPath checks that the path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig loads the configuration file. An empty path or a missing default
// file yields an empty configuration.
func LoadConfig(configPath string, required bool) (*Config, error) {
	cfg := &Config{}
	if configPath == "" {
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) && !required {
		return cfg, nil
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	return cfg, nil
}
