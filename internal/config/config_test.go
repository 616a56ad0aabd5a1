package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// Helper function to create a temporary directory for testing
func createTempDir(t *testing.T, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", name)
	assert.NoError(t, err, "Failed to create temp dir")
	return dir
}

// Helper function to create a temporary file with content
func createTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	err := os.WriteFile(path, []byte(content), 0644)
	assert.NoError(t, err, "Failed to create temp file")
	return path
}

// TestValidateConfig covers validation of every option.
func TestValidateConfig(t *testing.T) {
	tempDir := createTempDir(t, "validate-config")
	defer os.RemoveAll(tempDir)
	validTemplateFile := createTempFile(t, tempDir, "stat.tmpl", "{{ .Path }}")

	testCases := []struct {
		name        string
		opts        Options
		expectError bool
		errorSubstr string
	}{
		{
			name:        "Valid Basic Config",
			opts:        Options{Perm: "0644", Format: "text", Watch: WatchConfig{Debounce: 50 * time.Millisecond}},
			expectError: false,
		},
		{
			name:        "Valid Restrictive Perm",
			opts:        Options{Perm: "600", Format: "yaml"},
			expectError: false,
		},
		{
			name:        "Empty Perm",
			opts:        Options{Format: "text"},
			expectError: true,
			errorSubstr: "perm cannot be empty",
		},
		{
			name:        "Non-octal Perm",
			opts:        Options{Perm: "0689", Format: "text"},
			expectError: true,
			errorSubstr: "perm '0689' is not an octal permission",
		},
		{
			name:        "Perm Out Of Range",
			opts:        Options{Perm: "4755", Format: "text"},
			expectError: true,
			errorSubstr: "must be within 0000-0777",
		},
		{
			name:        "Invalid Format",
			opts:        Options{Perm: "0644", Format: "xml"},
			expectError: true,
			errorSubstr: "format must be one of text, yaml, toml, json (got 'xml')",
		},
		{
			name:        "Non-existent Template File",
			opts:        Options{Perm: "0644", Format: "text", TemplateFile: "/nonexistent/stat.tmpl"},
			expectError: true,
			errorSubstr: "templateFile '/nonexistent/stat.tmpl' does not exist",
		},
		{
			name:        "Template File is Directory",
			opts:        Options{Perm: "0644", Format: "text", TemplateFile: tempDir},
			expectError: true,
			errorSubstr: "is a directory, not a file",
		},
		{
			name:        "Valid Template File",
			opts:        Options{Perm: "0644", Format: "text", TemplateFile: validTemplateFile},
			expectError: false,
		},
		{
			name:        "Negative Watch Debounce",
			opts:        Options{Perm: "0644", Format: "text", Watch: WatchConfig{Debounce: -100 * time.Millisecond}},
			expectError: true,
			errorSubstr: "watchConfig.debounce duration must be non-negative",
		},
		{
			name:        "Multiple Errors Are Joined",
			opts:        Options{Perm: "x", Format: ""},
			expectError: true,
			errorSubstr: "; format must be one of",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.ValidateConfig()
			if tc.expectError {
				assert.Error(t, err, "Expected an error but got none")
				if tc.errorSubstr != "" {
					assert.True(t, strings.Contains(err.Error(), tc.errorSubstr),
						fmt.Sprintf("Expected error message to contain '%s', but got: %v", tc.errorSubstr, err))
				}
			} else {
				assert.NoError(t, err, "Expected no error but got: %v", err)
			}
		})
	}
}

func TestFileMode(t *testing.T) {
	assert.Equal(t, fs.FileMode(0644), (&Options{Perm: "0644"}).FileMode())
	assert.Equal(t, fs.FileMode(0600), (&Options{Perm: "600"}).FileMode())
	assert.Equal(t, fs.FileMode(0), (&Options{Perm: "rw-r--r--"}).FileMode())
}

// TestConfigLoadingPrecedence verifies that flags override env vars, which
// override config files, which override defaults.
func TestConfigLoadingPrecedence(t *testing.T) {
	tempDir := createTempDir(t, "config-precedence")
	defer os.RemoveAll(tempDir)

	configContent := "format: yaml\nforce: false\nperm: \"0600\"\nwatchConfig:\n  debounce: 250ms\n"
	configFile := createTempFile(t, tempDir, "precedence.yaml", configContent)

	tests := []struct {
		name           string
		setupFunc      func(t *testing.T, v *viper.Viper)
		expectedFormat string
		expectedForce  bool
		expectedPerm   string
	}{
		{
			name: "Default Only",
			setupFunc: func(t *testing.T, v *viper.Viper) {
				v.SetDefault("format", "text")
				v.SetDefault("force", false)
				v.SetDefault("perm", "0644")
			},
			expectedFormat: "text",
			expectedForce:  false,
			expectedPerm:   "0644",
		},
		{
			name: "File Overrides Default",
			setupFunc: func(t *testing.T, v *viper.Viper) {
				v.SetDefault("format", "text")
				v.SetDefault("perm", "0644")
				v.SetConfigFile(configFile)
				assert.NoError(t, v.ReadInConfig())
			},
			expectedFormat: "yaml",
			expectedForce:  false,
			expectedPerm:   "0600",
		},
		{
			name: "Env Overrides File",
			setupFunc: func(t *testing.T, v *viper.Viper) {
				v.SetDefault("format", "text")
				v.SetConfigFile(configFile)
				assert.NoError(t, v.ReadInConfig())
				t.Setenv("FH_FORMAT", "toml")
				t.Setenv("FH_FORCE", "true")
				v.AutomaticEnv()
			},
			expectedFormat: "toml",
			expectedForce:  true,
			expectedPerm:   "0600",
		},
		{
			name: "Flag Overrides Env",
			setupFunc: func(t *testing.T, v *viper.Viper) {
				v.SetConfigFile(configFile)
				assert.NoError(t, v.ReadInConfig())
				t.Setenv("FH_FORMAT", "toml")
				v.AutomaticEnv()
				// Flags reach viper through BindPFlags; Set has the same precedence.
				v.Set("format", "json")
				v.Set("perm", "0640")
			},
			expectedFormat: "json",
			expectedForce:  false,
			expectedPerm:   "0640",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.SetEnvPrefix("FH")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

			// Env vars set by one case must not leak into the next.
			tt.setupFunc(t, v)

			var opts Options
			err := v.Unmarshal(&opts)
			assert.NoError(t, err, "Failed to unmarshal config")

			assert.Equal(t, tt.expectedFormat, opts.Format, "Format value mismatch")
			assert.Equal(t, tt.expectedForce, opts.Force, "Force value mismatch")
			assert.Equal(t, tt.expectedPerm, opts.Perm, "Perm value mismatch")
		})
	}
}

func TestNestedWatchConfigUnmarshal(t *testing.T) {
	tempDir := createTempDir(t, "config-watch")
	defer os.RemoveAll(tempDir)
	configFile := createTempFile(t, tempDir, "watch.yaml", "watchConfig:\n  debounce: 250ms\n  fromStart: true\n")

	v := viper.New()
	v.SetConfigFile(configFile)
	assert.NoError(t, v.ReadInConfig())

	var opts Options
	assert.NoError(t, v.Unmarshal(&opts))
	assert.Equal(t, 250*time.Millisecond, opts.Watch.Debounce)
	assert.True(t, opts.Watch.FromStart)
}
