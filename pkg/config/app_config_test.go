package config

import (
	"os"
	"testing"
)

func TestNewAppConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("CONFIG_DIR", dir)
	defer os.Unsetenv("CONFIG_DIR")

	conf, err := NewAppConfig("nimbuild-test", "version", "commit", "date", false, "projectDir")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if conf.UserConfig.Install.Archiver != "tar.gz" {
		t.Fatalf("expected default archiver tar.gz but got %s", conf.UserConfig.Install.Archiver)
	}
	if conf.UserConfig.Diagnostics.Verbose != 1 {
		t.Fatalf("expected default verbosity 1 but got %d", conf.UserConfig.Diagnostics.Verbose)
	}
}

func TestNewAppConfigHonorsUserOverride(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("CONFIG_DIR", dir)
	defer os.Unsetenv("CONFIG_DIR")

	if err := os.WriteFile(dir+"/config.yml", []byte("diagnostics:\n  verbose: 4\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	conf, err := NewAppConfig("nimbuild-test", "version", "commit", "date", false, "projectDir")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if conf.UserConfig.Diagnostics.Verbose != 4 {
		t.Fatalf("expected overridden verbosity 4 but got %d", conf.UserConfig.Diagnostics.Verbose)
	}
	if conf.UserConfig.Install.Archiver != "tar.gz" {
		t.Fatalf("expected untouched default archiver tar.gz but got %s", conf.UserConfig.Install.Archiver)
	}
}
