package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name string
	// Path is the user file the theme was read from, empty for bundled themes.
	Path string
	// CSS has every @import inlined.
	CSS string
}

// Bundled reports whether the theme came from the embedded set.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// ThemesDir returns the path to the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "wlpanel", "themes"), nil
}

// ReadTheme loads a user theme file and inlines its imports.
func ReadTheme(name, path string) (*Theme, error) {
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Theme{
		Name: name,
		Path: path,
		CSS:  ProcessImports(string(css), filepath.Dir(path), nil),
	}, nil
}

// BundledTheme returns a bundled theme with its imports inlined.
func BundledTheme(name string) (*Theme, bool) {
	css, ok := GetEmbeddedTheme(name)
	if !ok {
		return nil, false
	}
	return &Theme{Name: name, CSS: ProcessImports(css, "", nil)}, true
}

// ProcessImports inlines @import statements. Relative paths resolve against
// baseDir; files that cannot be read fall back to bundled partials and
// themes of the same name. seen guards against import cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		imported, err := os.ReadFile(fullPath)
		if err == nil {
			return "/* imported: " + importPath + " */\n" +
				ProcessImports(string(imported), filepath.Dir(fullPath), seen)
		}

		baseName := filepath.Base(importPath)
		if strings.HasPrefix(baseName, "_") {
			if partial, found := GetEmbeddedPartial(baseName); found {
				return "/* imported (embedded): " + importPath + " */\n" + partial
			}
		}
		if bundled, found := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); found {
			return "/* imported (embedded): " + importPath + " */\n" + bundled
		}
		return "/* import failed: " + importPath + " - " + err.Error() + " */"
	})
}

// ThemeInfo describes an available theme.
type ThemeInfo struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	IsDefault bool   `json:"default" yaml:"default"`
	IsBundled bool   `json:"bundled" yaml:"bundled"`
}

// ListAvailableThemes lists bundled themes followed by user themes in dir.
// A user theme with a bundled name overrides it and is reported once, with
// its path.
func ListAvailableThemes(dir string) ([]ThemeInfo, error) {
	var themes []ThemeInfo
	index := make(map[string]int)

	for _, name := range ListEmbeddedThemes() {
		index[name] = len(themes)
		themes = append(themes, ThemeInfo{
			Name:      name,
			IsDefault: name == DefaultThemeName,
			IsBundled: true,
		})
	}

	if dir == "" {
		return themes, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return themes, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		themeName := strings.TrimSuffix(name, ".css")
		info := ThemeInfo{Name: themeName, Path: filepath.Join(dir, name), IsDefault: themeName == DefaultThemeName}
		if i, ok := index[themeName]; ok {
			themes[i] = info
			continue
		}
		index[themeName] = len(themes)
		themes = append(themes, info)
	}
	return themes, nil
}
