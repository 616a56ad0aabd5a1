package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// Output formats accepted by the stat command.
var validFormats = map[string]bool{
	"text": true,
	"yaml": true,
	"toml": true,
	"json": true,
}

// DefaultDebounce is the tail debounce when watchConfig.debounce is unset or zero.
const DefaultDebounce = 100 * time.Millisecond

// WatchConfig holds configuration specific to tail mode.
type WatchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	FromStart bool          `mapstructure:"fromStart"` // Emit existing lines before following.
}

// Options holds all the configuration settings for the fh application.
// Tags are used by Viper for unmarshalling from config files, env vars, and flags.
type Options struct {
	Verbose bool `mapstructure:"verbose"`

	// Perm is the octal permission string for files the tool creates ("0644").
	Perm string `mapstructure:"perm"`
	// Force lets mv replace an existing destination.
	Force bool `mapstructure:"force"`

	// Output
	Format       string `mapstructure:"format"` // "text", "yaml", "toml" or "json"
	TemplateFile string `mapstructure:"templateFile"`

	Watch WatchConfig `mapstructure:"watchConfig"`

	// Internal - Not typically set by user directly
	ConfigFile string `mapstructure:"config"`
}

// FileMode parses Perm. Call ValidateConfig first; an invalid value yields 0.
func (opts *Options) FileMode() fs.FileMode {
	perm, err := strconv.ParseUint(opts.Perm, 8, 32)
	if err != nil {
		return 0
	}
	return fs.FileMode(perm)
}

// ValidateConfig checks the loaded configuration options for validity.
func (opts *Options) ValidateConfig() error {
	var errs []string

	if strings.TrimSpace(opts.Perm) == "" {
		errs = append(errs, "perm cannot be empty")
	} else if perm, err := strconv.ParseUint(opts.Perm, 8, 32); err != nil {
		errs = append(errs, fmt.Sprintf("perm '%s' is not an octal permission", opts.Perm))
	} else if perm&^uint64(fs.ModePerm) != 0 {
		errs = append(errs, fmt.Sprintf("perm '%s' must be within 0000-0777", opts.Perm))
	}

	if !validFormats[opts.Format] {
		errs = append(errs, fmt.Sprintf("format must be one of text, yaml, toml, json (got '%s')", opts.Format))
	}

	if opts.TemplateFile != "" {
		info, err := os.Stat(opts.TemplateFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Sprintf("templateFile '%s' does not exist", opts.TemplateFile))
			} else {
				errs = append(errs, fmt.Sprintf("cannot access templateFile '%s': %v", opts.TemplateFile, err))
			}
		} else if info.IsDir() {
			errs = append(errs, fmt.Sprintf("templateFile '%s' is a directory, not a file", opts.TemplateFile))
		}
	}

	if opts.Watch.Debounce < 0 {
		// 0 falls back to DefaultDebounce.
		errs = append(errs, "watchConfig.debounce duration must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	return nil
}
