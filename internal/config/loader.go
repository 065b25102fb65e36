package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the name of the settings file looked up in the
	// working and home directories.
	DefaultConfigFile = ".claimbot"

	// XDGConfigFile is the name of the settings file in XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads the YAML settings at path.
// Keys that File does not know are an error, so that a misspelled delay
// or store path is reported instead of silently keeping its default.
// An empty file yields an empty File.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &cf, nil
}

// FindConfigFile returns the settings file to load, or "" when there is none.
// An explicit configPath is used as is. Otherwise the first existing file of
// ./.claimbot, $XDG_CONFIG_HOME/claimbot/config.yaml and ~/.claimbot wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		return firstExisting(configPath)
	}
	return firstExisting(searchPaths()...)
}

func searchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return paths
}

// firstExisting returns the first regular file among paths.
func firstExisting(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
