package theme

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

// EmbeddedThemes contains all bundled theme CSS files.
//
//go:embed themes/*.css
var EmbeddedThemes embed.FS

// DefaultThemeName is the name of the built-in default theme.
const DefaultThemeName = "default"

// BundledThemes lists all embedded theme names.
var BundledThemes = []string{"default", "minimal", "catppuccin"}

// GetEmbeddedTheme returns the raw CSS of a bundled theme. Imports are not
// resolved; use ProcessImports or Loader.LoadTheme for that.
func GetEmbeddedTheme(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	return readEmbedded(name + ".css")
}

// GetEmbeddedPartial returns a bundled partial. The leading underscore and
// the .css extension are optional.
func GetEmbeddedPartial(name string) (string, bool) {
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	return readEmbedded(name)
}

func readEmbedded(file string) (string, bool) {
	data, err := EmbeddedThemes.ReadFile(path.Join("themes", file))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// ListEmbeddedThemes returns the names of the bundled themes, without partials.
func ListEmbeddedThemes() []string {
	entries, err := fs.ReadDir(EmbeddedThemes, "themes")
	if err != nil {
		return BundledThemes
	}

	var themes []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".css" {
			continue
		}
		themes = append(themes, strings.TrimSuffix(name, ".css"))
	}
	return themes
}

// IsEmbeddedTheme checks if a theme name is bundled.
func IsEmbeddedTheme(name string) bool {
	_, found := GetEmbeddedTheme(name)
	return found
}
