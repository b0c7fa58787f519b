package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedTheme(t *testing.T) {
	css, found := GetEmbeddedTheme("default")
	require.True(t, found)
	assert.Contains(t, css, "@window_bg_color")
	assert.Contains(t, css, `@import "_base.css"`)

	css, found = GetEmbeddedTheme("catppuccin")
	require.True(t, found)
	assert.Contains(t, css, "--ctp-base")
	assert.Contains(t, css, ".wlpanel.dark")

	_, found = GetEmbeddedTheme("nonexistent")
	assert.False(t, found)
	_, found = GetEmbeddedTheme("_base")
	assert.False(t, found, "partials are not themes")
}

func TestGetEmbeddedPartial(t *testing.T) {
	for _, name := range []string{"_base.css", "_base", "base"} {
		css, found := GetEmbeddedPartial(name)
		require.True(t, found, name)
		assert.Contains(t, css, ".app-button")
	}

	_, found := GetEmbeddedPartial("_nonexistent.css")
	assert.False(t, found)
}

func TestListEmbeddedThemes(t *testing.T) {
	themes := ListEmbeddedThemes()
	assert.ElementsMatch(t, BundledThemes, themes)
	for _, name := range themes {
		assert.False(t, strings.HasPrefix(name, "_"), "partial listed: %s", name)
	}
}

func TestIsEmbeddedTheme(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"default", true},
		{"minimal", true},
		{"catppuccin", true},
		{"nonexistent", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEmbeddedTheme(tt.name))
		})
	}
}

func TestBundledThemes_StyleThePanel(t *testing.T) {
	requiredClasses := []string{
		".wlpanel",
		".app-button",
		".app-button.running",
		".app-button.focused",
		".window-title",
		".clock",
		".window-row",
	}

	for _, name := range BundledThemes {
		t.Run(name, func(t *testing.T) {
			theme, found := BundledTheme(name)
			require.True(t, found)
			assert.NotContains(t, theme.CSS, "@import")
			assert.True(t, theme.Bundled())

			for _, class := range requiredClasses {
				assert.Contains(t, theme.CSS, class, "theme %s should style %s", name, class)
			}
			assert.Equal(t, strings.Count(theme.CSS, "{"), strings.Count(theme.CSS, "}"),
				"theme %s should have balanced braces", name)
		})
	}
}
