package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
)

// AppConfig is the base configuration fields required to run nimbuild:
// build metadata plus the merged user configuration and resolved
// filesystem locations.
type AppConfig struct {
	Debug     bool   `long:"debug" env:"DEBUG" default:"false"`
	Version   string `long:"version" env:"VERSION" default:"unversioned"`
	Commit    string `long:"commit" env:"COMMIT"`
	BuildDate string `long:"build-date" env:"BUILD_DATE"`
	Name      string `long:"name" env:"NAME" default:"nimbuild"`

	UserConfig *UserConfig
	ConfigDir  string
	ProjectDir string
}

// NewAppConfig loads (creating if absent) the user config file, merges
// it over the defaults, and returns the combined AppConfig.
func NewAppConfig(name, version, commit, date string, debuggingFlag bool, projectDir string) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Name:       name,
		Version:    version,
		Commit:     commit,
		BuildDate:  date,
		Debug:      debuggingFlag || os.Getenv("DEBUG") == "TRUE",
		UserConfig: userConfig,
		ConfigDir:  configDir,
		ProjectDir: projectDir,
	}, nil
}

func configDir(projectName string) string {
	if envConfigDir := os.Getenv("CONFIG_DIR"); envConfigDir != "" {
		return envConfigDir
	}
	dirs := xdg.New("", projectName)
	return dirs.ConfigHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDir(projectName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}
	return folder, nil
}

// loadUserConfigWithDefaults reads config.yml (creating an empty one if
// missing) and merges it over GetDefaultConfig via mergo, so a sparse
// user file only overrides the fields it actually sets.
func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	defaults := GetDefaultConfig()
	loaded, err := loadUserConfig(configDir, &UserConfig{})
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&defaults, loaded, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// ConfigFilename returns the filename of the current config file.
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
