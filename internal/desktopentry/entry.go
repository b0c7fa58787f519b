// Package desktopentry reads freedesktop .desktop files and resolves window
// app ids to the application that owns them.
package desktopentry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotApplication is returned for entries whose Type is not Application.
var ErrNotApplication = errors.New("not an application entry")

// Entry is the subset of a desktop entry the panel uses.
type Entry struct {
	// ID is the desktop file id, e.g. "org.mozilla.firefox".
	ID             string
	Path           string
	Name           string
	GenericName    string
	Exec           string
	Icon           string
	StartupWMClass string
	NoDisplay      bool
	Terminal       bool
	// PrefersNonDefaultGPU is the PrefersNonDefaultGPU key.
	PrefersNonDefaultGPU bool
}

// Parse reads the [Desktop Entry] group from r. Localized keys are ignored.
func Parse(r io.Reader, id string) (*Entry, error) {
	e := &Entry{ID: id}
	entryType := ""
	inGroup := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inGroup = line == "[Desktop Entry]"
			continue
		}
		if !inGroup {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Type":
			entryType = value
		case "Name":
			e.Name = value
		case "GenericName":
			e.GenericName = value
		case "Exec":
			e.Exec = value
		case "Icon":
			e.Icon = value
		case "StartupWMClass":
			e.StartupWMClass = value
		case "NoDisplay", "Hidden":
			e.NoDisplay = e.NoDisplay || value == "true"
		case "Terminal":
			e.Terminal = value == "true"
		case "PrefersNonDefaultGPU":
			e.PrefersNonDefaultGPU = value == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read desktop entry %s: %w", id, err)
	}
	if entryType != "Application" {
		return nil, ErrNotApplication
	}
	return e, nil
}

// ParseFile parses the desktop file at path. id is the desktop file id
// derived from the path relative to its applications directory.
func ParseFile(path, id string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e, err := Parse(f, id)
	if err != nil {
		return nil, err
	}
	e.Path = path
	return e, nil
}

// FileID converts a path below an applications directory into a desktop file
// id: subdirectories become dash separated and the suffix is dropped.
func FileID(appsDir, path string) string {
	rel, err := filepath.Rel(appsDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, ".desktop")
	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

// DataDirs returns the applications directories in lookup priority order.
func DataDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(dataDirs, ":") {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}
