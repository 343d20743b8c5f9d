package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the storyloom home directory.
	DefaultDirName = ".storyloom"

	// DataDirName is the subdirectory for databases and exports.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DBFileName is the SQLite database file name.
	DBFileName = "storyloom.db"
)

// Dir represents the storyloom home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.storyloom).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DBPath returns the path to the SQLite database file.
func (d *Dir) DBPath() string {
	return filepath.Join(d.DataPath(), DBFileName)
}

// ExportsDir returns the directory for exported book files.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// BookExportPath returns the path for a person's exported book text.
func (d *Dir) BookExportPath(personID string) string {
	return filepath.Join(d.ExportsDir(), fmt.Sprintf("%s.md", personID))
}

// BookEpubPath returns the path for a person's exported epub.
func (d *Dir) BookEpubPath(personID string) string {
	return filepath.Join(d.ExportsDir(), fmt.Sprintf("%s.epub", personID))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// EnsureExportsDir creates the exports directory.
func (d *Dir) EnsureExportsDir() error {
	return os.MkdirAll(d.ExportsDir(), 0o755)
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
