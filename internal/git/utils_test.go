package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/yarascan/pkg/shared/config"
)

func TestDetermineBranch(t *testing.T) {
	tests := []struct {
		branch   string
		expected plumbing.ReferenceName
	}{
		{"", ""},
		{"main", "refs/heads/main"},
		{"refs/heads/develop", "refs/heads/develop"},
		{"refs/tags/v1.0", "refs/tags/v1.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, determineBranch(tt.branch), tt.branch)
	}
}

func TestIsRepositoryURL(t *testing.T) {
	tests := map[string]bool{
		"git@github.com:Neo23x0/signature-base.git":     true,
		"ssh://git@gitlab.com/group/rules.git":          true,
		"https://github.com/Neo23x0/signature-base.git": true,
		"https://example.org/rules/apt.yar":             false,
		"/opt/rules":                                    false,
		"rules.yar":                                     false,
	}
	for source, expected := range tests {
		assert.Equal(t, expected, IsRepositoryURL(source), source)
	}
}

func TestTargetFolder(t *testing.T) {
	folder, err := TargetFolder("/cache", "https://github.com/Neo23x0/signature-base.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "github.com", "Neo23x0", "signature-base"), folder)

	folder, err = TargetFolder("/cache", "git@github.com:Neo23x0/signature-base.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "github.com", "Neo23x0", "signature-base"), folder)
}

func TestGetAuthenticator(t *testing.T) {
	for _, authType := range []string{"", "none", "http", "ssh-key", "ssh-agent"} {
		_, err := getAuthenticator(authType)
		assert.NoError(t, err, authType)
	}
	_, err := getAuthenticator("kerberos")
	assert.Error(t, err)
}

func TestAuthenticatorValidation(t *testing.T) {
	assert.Error(t, (&HTTPAuthenticator{}).ValidateConfig(&config.GitClient{Username: "user"}))
	assert.NoError(t, (&HTTPAuthenticator{}).ValidateConfig(&config.GitClient{Username: "user", Token: "t"}))
	assert.Error(t, (&SSHKeyAuthenticator{}).ValidateConfig(&config.GitClient{}))
	assert.NoError(t, (&NoneAuthenticator{}).ValidateConfig(&config.GitClient{}))
}

func TestNewWithoutAuth(t *testing.T) {
	cfg := &config.Config{}
	client, err := New(hclog.NewNullLogger(), cfg)
	require.NoError(t, err)
	assert.Nil(t, client.auth)
}

func TestLockTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "github.com", "rules")

	unlock, err := lockTarget(context.Background(), target)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = lockTarget(ctx, target)
	assert.Error(t, err)

	unlock()
	unlock, err = lockTarget(context.Background(), target)
	require.NoError(t, err)
	unlock()
}

func TestHostKeyCallback(t *testing.T) {
	dir := t.TempDir()
	knownHosts := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, nil, 0o600))
	insecure := true

	tests := []struct {
		name       string
		knownHosts string
		cfg        config.GitClient
		wantErr    bool
	}{
		{name: "known_hosts present", knownHosts: knownHosts},
		{name: "known_hosts missing", knownHosts: filepath.Join(dir, "missing"), wantErr: true},
		{name: "missing but insecure", knownHosts: filepath.Join(dir, "missing"), cfg: config.GitClient{InsecureTLS: &insecure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SSH_KNOWN_HOSTS", tt.knownHosts)
			callback, err := hostKeyCallback(&tt.cfg, hclog.NewNullLogger())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, callback)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, callback)
		})
	}
}
