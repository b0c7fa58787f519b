package desktopentry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firefoxEntry = `[Desktop Entry]
Type=Application
Name=Firefox
Name[de]=Feuerfuchs
GenericName=Web Browser
Exec=firefox %u
Icon=firefox
StartupWMClass=firefox-esr

[Desktop Action new-window]
Name=New Window
Exec=firefox --new-window %u
`

func writeEntry(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestParse(t *testing.T) {
	e, err := Parse(strings.NewReader(firefoxEntry), "firefox")
	require.NoError(t, err)

	assert.Equal(t, "Firefox", e.Name)
	assert.Equal(t, "firefox %u", e.Exec, "actions must not override the main group")
	assert.Equal(t, "firefox", e.Icon)
	assert.Equal(t, "firefox-esr", e.StartupWMClass)
	assert.False(t, e.NoDisplay)
}

func TestParse_NotApplication(t *testing.T) {
	_, err := Parse(strings.NewReader("[Desktop Entry]\nType=Link\nName=x\n"), "x")
	assert.ErrorIs(t, err, ErrNotApplication)
}

func TestExecArgs(t *testing.T) {
	tests := []struct {
		name string
		exec string
		want []string
	}{
		{"plain", "foot", []string{"foot"}},
		{"field codes removed", "firefox %u", []string{"firefox"}},
		{"embedded field code", "app --file=%f --x", []string{"app", "--file=", "--x"}},
		{"percent escape", "printf 100%%", []string{"printf", "100%"}},
		{"quoted", `sh -c "echo \"hi\" \$HOME"`, []string{"sh", "-c", `echo "hi" $HOME`}},
		{"empty quoted arg", `app ""`, []string{"app", ""}},
		{"extra spaces", "  code   --new-window  ", []string{"code", "--new-window"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExecArgs(tt.exec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecArgs_Errors(t *testing.T) {
	_, err := ExecArgs(`app "open`)
	assert.ErrorIs(t, err, ErrUnterminatedQuote)

	_, err = ExecArgs("%U")
	assert.ErrorIs(t, err, ErrEmptyExec)
}

func TestFileID(t *testing.T) {
	assert.Equal(t, "org.gnome.Nautilus", FileID("/usr/share/applications", "/usr/share/applications/org.gnome.Nautilus.desktop"))
	assert.Equal(t, "kde-dolphin", FileID("/usr/share/applications", "/usr/share/applications/kde/dolphin.desktop"))
}

func TestCache_LoadAndShadow(t *testing.T) {
	user := filepath.Join(t.TempDir(), "applications")
	system := filepath.Join(t.TempDir(), "applications")
	writeEntry(t, user, "foot.desktop", "[Desktop Entry]\nType=Application\nName=Foot (user)\nExec=foot\n")
	writeEntry(t, system, "foot.desktop", "[Desktop Entry]\nType=Application\nName=Foot\nExec=foot\n")
	writeEntry(t, system, "org.mozilla.firefox.desktop", firefoxEntry)
	writeEntry(t, system, "readme.txt", "not an entry")

	c := NewCache([]string{user, system, filepath.Join(t.TempDir(), "missing")}, nil)
	require.NoError(t, c.Load())

	assert.Equal(t, 2, c.Len())
	e, ok := c.Get("foot")
	require.True(t, ok)
	assert.Equal(t, "Foot (user)", e.Name)
}

func TestCache_Lookup(t *testing.T) {
	c := NewCache(nil, nil)
	c.Add(&Entry{ID: "org.mozilla.firefox", Name: "Firefox", StartupWMClass: "firefox-esr"})
	c.Add(&Entry{ID: "org.gnome.Nautilus", Name: "Files"})
	c.Add(&Entry{ID: "code", Name: "Visual Studio Code"})

	tests := []struct {
		appID string
		want  string
	}{
		{"org.mozilla.firefox", "org.mozilla.firefox"},
		{"ORG.GNOME.NAUTILUS", "org.gnome.Nautilus"},
		{"nautilus", "org.gnome.Nautilus"},
		{"firefox-esr", "org.mozilla.firefox"},
		{"Files", "org.gnome.Nautilus"},
		{"Code", "code"},
		{"vscode", "code"},
	}
	for _, tt := range tests {
		t.Run(tt.appID, func(t *testing.T) {
			e, ok := c.Lookup(tt.appID)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.ID)
		})
	}

	_, ok := c.Lookup("")
	assert.False(t, ok)
	_, ok = c.Lookup("zzzzqqq")
	assert.False(t, ok)
}

func TestCache_Search(t *testing.T) {
	c := NewCache(nil, nil)
	c.Add(&Entry{ID: "foot", Name: "Foot"})
	c.Add(&Entry{ID: "footclient", Name: "Foot Client", NoDisplay: true})
	c.Add(&Entry{ID: "firefox", Name: "Firefox"})

	assert.Len(t, c.Search(""), 2)

	got := c.Search("foot")
	require.Len(t, got, 1)
	assert.Equal(t, "foot", got[0].ID)
}
