// Package config handles nimbuild's user and process configuration. The
// fields here are all in PascalCase but in your actual config.yml
// they'll be in camelCase. You can view the default configuration with
// `nimbuild --config`.
package config

import (
	"os"
	"path/filepath"

	yaml "github.com/jesseduffield/yaml"
)

// UserConfig holds every user-configurable option, loaded from
// config.yml and merged over the defaults via imdario/mergo so that an
// empty or partial user file never zeroes out the rest.
type UserConfig struct {
	// Scheduler tunes the C7 phase scheduler.
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty"`

	// Install carries the default install.* policy consulted when a
	// buildfile doesn't override sudo/mode/command at a given path
	// component (§4.10).
	Install InstallConfig `yaml:"install,omitempty"`

	// Diagnostics controls verbosity and progress reporting.
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`

	// KeepGoing mirrors the -k/--keep-going flag as a persistent default.
	KeepGoing bool `yaml:"keepGoing,omitempty"`

	// Watch enables the fsnotify-driven rebuild loop by default.
	Watch bool `yaml:"watch,omitempty"`
}

// SchedulerConfig tunes pkg/phase.Scheduler.
type SchedulerConfig struct {
	// MaxActive bounds concurrently active goroutines (the -j/--jobs
	// default when not overridden on the command line). Zero means one
	// active goroutine.
	MaxActive int `yaml:"maxActive,omitempty"`

	// MaxThreads bounds total goroutines, active plus helpers. Zero
	// means 4x MaxActive.
	MaxThreads int `yaml:"maxThreads,omitempty"`

	// DeadlockInterval is how often the deadlock monitor samples
	// scheduler progress.
	DeadlockInterval string `yaml:"deadlockInterval,omitempty"`
}

// InstallConfig carries install/dist driver defaults.
type InstallConfig struct {
	// Sudo is the command prefix used to gain privilege for installs
	// (e.g. "sudo"). When set, every file copy goes through it, and so
	// does creating any directory that does not exist yet; whether the
	// invoking user could write the path directly is not checked. Empty
	// means never elevate.
	Sudo string `yaml:"sudo,omitempty"`

	// DirMode is the default mode for created leading directories.
	DirMode string `yaml:"dirMode,omitempty"`

	// FileMode is the default mode for installed files.
	FileMode string `yaml:"fileMode,omitempty"`

	// Archiver selects the dist archive format: "tar.gz", "tar.xz", or
	// "zip".
	Archiver string `yaml:"archiver,omitempty"`

	// Checksum selects the dist checksum program output format: "sha256"
	// or "" to skip.
	Checksum string `yaml:"checksum,omitempty"`

	// Paths maps a symbolic install path component (bin, lib, include, ...)
	// to its resolved absolute directory, consulted by pkg/install when
	// resolving a target's install variable (§4.10, §6 "Installation
	// directory names"). An unrecognized name not present here and not in
	// the built-in default table fails with a request to set this field.
	Paths map[string]string `yaml:"paths,omitempty"`
}

// DiagnosticsConfig controls logging and progress verbosity.
type DiagnosticsConfig struct {
	// Verbose is the diagnostics verbosity level (0-6, matching the
	// -v/--verbose count); pkg/log maps it onto the logger's level, and
	// levels above 4 select the same level as 4. No level prints a depdb
	// mismatch diff.
	Verbose int `yaml:"verbose,omitempty"`

	// ProgressThreshold is a progress-tick count in the form
	// pkg/phase.OnProgress takes. Nothing reads this field: the app
	// registers no progress callback.
	ProgressThreshold int `yaml:"progressThreshold,omitempty"`
}

// GetDefaultConfig returns nimbuild's default configuration. Do not
// default a boolean to true: false is the zero value and would be
// indistinguishable from "unset" once merged with a user config that
// doesn't mention it.
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Scheduler: SchedulerConfig{
			MaxActive:        0,
			MaxThreads:       0,
			DeadlockInterval: "5s",
		},
		Install: InstallConfig{
			Sudo:     "",
			DirMode:  "0755",
			FileMode: "0644",
			Archiver: "tar.gz",
			Checksum: "sha256",
			Paths: map[string]string{
				"bin":       "/usr/local/bin",
				"sbin":      "/usr/local/sbin",
				"lib":       "/usr/local/lib",
				"libexec":   "/usr/local/libexec",
				"include":   "/usr/local/include",
				"share":     "/usr/local/share",
				"doc":       "/usr/local/share/doc",
				"man":       "/usr/local/share/man",
				"pkgconfig": "/usr/local/lib/pkgconfig",
			},
		},
		Diagnostics: DiagnosticsConfig{
			Verbose:           1,
			ProgressThreshold: 64,
		},
	}
}

func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, err := os.Create(fileName)
			if err != nil {
				return nil, err
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(content, base); err != nil {
		return nil, err
	}
	return base, nil
}

// WriteToUserConfig mutates and persists the on-disk user config; note
// that if you set a zero-value it may be ignored (omitempty), the same
// tradeoff the default loader makes.
func (c *AppConfig) WriteToUserConfig(update func(*UserConfig) error) error {
	userConfig, err := loadUserConfig(c.ConfigDir, &UserConfig{})
	if err != nil {
		return err
	}
	if err := update(userConfig); err != nil {
		return err
	}

	file, err := os.OpenFile(c.ConfigFilename(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer file.Close()
	return yaml.NewEncoder(file).Encode(userConfig)
}
