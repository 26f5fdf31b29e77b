package git

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/hashicorp/go-hclog"

	crssh "golang.org/x/crypto/ssh"

	"github.com/scan-io-git/yarascan/pkg/shared/config"
	"github.com/scan-io-git/yarascan/pkg/shared/files"
)

// Client fetches rule repositories.
type Client struct {
	logger       hclog.Logger
	auth         transport.AuthMethod
	timeout      time.Duration
	globalConfig *config.Config
}

// Authenticator builds the transport authentication for one auth type.
type Authenticator interface {
	SetupAuth(cfg *config.GitClient, logger hclog.Logger) (transport.AuthMethod, error)
	ValidateConfig(cfg *config.GitClient) error
}

// NoneAuthenticator is used for public repositories.
type NoneAuthenticator struct{}

// SSHKeyAuthenticator provides SSH key-based authentication.
type SSHKeyAuthenticator struct{}

// SSHAgentAuthenticator provides SSH agent-based authentication.
type SSHAgentAuthenticator struct{}

// HTTPAuthenticator provides HTTP basic authentication.
type HTTPAuthenticator struct{}

// SetupAuth returns no authentication.
func (n *NoneAuthenticator) SetupAuth(*config.GitClient, hclog.Logger) (transport.AuthMethod, error) {
	return nil, nil
}

// ValidateConfig accepts any configuration.
func (n *NoneAuthenticator) ValidateConfig(*config.GitClient) error {
	return nil
}

// SetupAuth configures SSH key authentication.
func (s *SSHKeyAuthenticator) SetupAuth(cfg *config.GitClient, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH key authentication")

	sshKeyPath, err := files.ExpandPath(cfg.SSHKey)
	if err != nil {
		logger.Error("failed to expand SSH key path", "path", cfg.SSHKey, "error", err)
		return nil, err
	}

	auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, cfg.SSHKeyPass)
	if err != nil {
		logger.Error("failed to set up SSH key authentication", "error", err)
		return nil, err
	}
	callback, err := hostKeyCallback(cfg, logger)
	if err != nil {
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{HostKeyCallback: callback}
	return auth, nil
}

// ValidateConfig requires a key path.
func (s *SSHKeyAuthenticator) ValidateConfig(cfg *config.GitClient) error {
	if cfg.SSHKey == "" {
		return fmt.Errorf("ssh_key is required for ssh-key authentication")
	}
	return nil
}

// SetupAuth configures SSH agent authentication.
func (s *SSHAgentAuthenticator) SetupAuth(cfg *config.GitClient, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH agent authentication")

	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		logger.Error("failed to set up SSH agent authentication", "error", err)
		return nil, err
	}
	callback, err := hostKeyCallback(cfg, logger)
	if err != nil {
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{HostKeyCallback: callback}
	return auth, nil
}

// ValidateConfig accepts any configuration.
func (s *SSHAgentAuthenticator) ValidateConfig(*config.GitClient) error {
	return nil
}

// SetupAuth configures HTTP basic authentication.
func (h *HTTPAuthenticator) SetupAuth(cfg *config.GitClient, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up HTTP authentication")

	return &http.BasicAuth{
		Username: cfg.Username,
		Password: cfg.Token,
	}, nil
}

// ValidateConfig requires a username and a token.
func (h *HTTPAuthenticator) ValidateConfig(cfg *config.GitClient) error {
	if cfg.Username == "" {
		return fmt.Errorf("username is required for http authentication")
	}
	if cfg.Token == "" {
		return fmt.Errorf("token is required for http authentication")
	}
	return nil
}

// hostKeyCallback verifies host keys against known_hosts. Only an explicit
// insecure_tls setting disables the check.
func hostKeyCallback(cfg *config.GitClient, logger hclog.Logger) (crssh.HostKeyCallback, error) {
	if config.GetBoolValue(cfg, "InsecureTLS", false) {
		logger.Warn("SSH host key verification is disabled")
		return crssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := ssh.NewKnownHostsCallback()
	if err != nil {
		logger.Error("known_hosts not usable", "error", err)
		return nil, fmt.Errorf("failed to load known_hosts, set git_client.insecure_tls to skip host key checks: %w", err)
	}
	return callback, nil
}

// getAuthenticator returns the Authenticator for the authentication type.
func getAuthenticator(authType string) (Authenticator, error) {
	switch authType {
	case "", "none":
		return &NoneAuthenticator{}, nil
	case "ssh-key":
		return &SSHKeyAuthenticator{}, nil
	case "ssh-agent":
		return &SSHAgentAuthenticator{}, nil
	case "http":
		return &HTTPAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", authType)
	}
}

// New initializes a Git client from the git_client configuration.
func New(logger hclog.Logger, globalConfig *config.Config) (*Client, error) {
	gitConfig := &globalConfig.GitClient

	authenticator, err := getAuthenticator(gitConfig.AuthType)
	if err != nil {
		logger.Error("unsupported authentication type", "error", err)
		return nil, fmt.Errorf("unsupported authentication type: %w", err)
	}

	if err := authenticator.ValidateConfig(gitConfig); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	auth, err := authenticator.SetupAuth(gitConfig, logger)
	if err != nil {
		logger.Error("failed to set up Git authentication", "error", err)
		return nil, fmt.Errorf("failed to set up Git authentication: %w", err)
	}

	return &Client{
		logger:       logger,
		auth:         auth,
		timeout:      config.SetThen(gitConfig.Timeout, 10*time.Minute),
		globalConfig: globalConfig,
	}, nil
}
