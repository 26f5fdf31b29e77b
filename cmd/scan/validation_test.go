package scan

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateScanArgs(t *testing.T) {
	rulesDir := t.TempDir()
	folder := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name    string
		options RunOptionsScan
		args    []string
		wantErr bool
	}{
		{
			name:    "scan folders",
			options: RunOptionsScan{Folders: []string{folder}, Format: "json"},
			args:    []string{rulesDir},
		},
		{
			name:    "test rules",
			options: RunOptionsScan{TestRules: true},
			args:    []string{rulesDir},
		},
		{
			name:    "inline rules only",
			options: RunOptionsScan{TestRules: true, InlineRules: []string{"rule a { condition: true }"}},
		},
		{
			name:    "remote rules are not checked locally",
			options: RunOptionsScan{TestRules: true},
			args:    []string{"https://github.com/Neo23x0/signature-base.git"},
		},
		{
			name:    "downloaded rules are not checked locally",
			options: RunOptionsScan{TestRules: true},
			args:    []string{"https://example.org/rules/index.yar"},
		},
		{
			name:    "no rules",
			options: RunOptionsScan{TestRules: true},
			wantErr: true,
		},
		{
			name:    "missing rules path",
			options: RunOptionsScan{TestRules: true},
			args:    []string{missing},
			wantErr: true,
		},
		{
			name:    "neither folder nor testrules",
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "folder and testrules",
			options: RunOptionsScan{Folders: []string{folder}, TestRules: true},
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "missing folder",
			options: RunOptionsScan{Folders: []string{missing}},
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "negative minscore",
			options: RunOptionsScan{Folders: []string{folder}, MinScore: -1},
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "unknown format",
			options: RunOptionsScan{Folders: []string{folder}, Format: "xml"},
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "upload without output",
			options: RunOptionsScan{Folders: []string{folder}, Upload: "s3://bucket/key"},
			args:    []string{rulesDir},
			wantErr: true,
		},
		{
			name:    "invalid upload target",
			options: RunOptionsScan{Folders: []string{folder}, OutputPath: folder, Upload: "ftp://bucket/key"},
			args:    []string{rulesDir},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			err := validateScanArgs(&options, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
