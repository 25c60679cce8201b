// Package config loads and saves the settings of stepseq as TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type (
	Config struct {
		History HistoryConfig `toml:"history"`
		Storage StorageConfig `toml:"storage"`
		Server  ServerConfig  `toml:"server"`
	}

	HistoryConfig struct {
		// MaxLength is the number of snapshots kept for undo.
		MaxLength int `toml:"max_length"`
	}

	StorageConfig struct {
		// Dir is the directory of the project store.
		Dir string `toml:"dir"`
	}

	ServerConfig struct {
		Addr string `toml:"addr"`
		// Watch reloads the project file when it changes on disk.
		Watch bool `toml:"watch"`
	}
)

const fileName = "stepseq.toml"

func Default() Config {
	dir := "projects"
	if d, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(d, "stepseq", "projects")
	}
	return Config{
		History: HistoryConfig{MaxLength: 100},
		Storage: StorageConfig{Dir: dir},
		Server:  ServerConfig{Addr: "localhost:8080"},
	}
}

// Path returns the config file to use: stepseq.toml in the current directory
// if it exists, the one in the user config directory otherwise.
func Path() string {
	if _, err := os.Stat(fileName); err == nil {
		return fileName
	}
	d, err := os.UserConfigDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(d, "stepseq", fileName)
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are returned. Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}
	if c.History.MaxLength < 1 {
		return Default(), fmt.Errorf("history.max_length must be at least 1, got %d", c.History.MaxLength)
	}
	return c, nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c Config) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
