package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

func TestGenerateStatus(t *testing.T) {
	windows := []dbus.WindowInfo{
		{ID: "01A", AppID: "firefox", Title: "Mozilla Firefox"},
		{ID: "01B", AppID: "kitty", Title: "~/src", States: []string{"activated"}},
		{ID: "01C", AppID: "firefox", Title: "Docs"},
	}

	status := generateStatus(windows, 60)
	assert.Equal(t, "~/src", status.Text)
	assert.Equal(t, "kitty", status.Alt)
	assert.Equal(t, "kitty", status.Class)
	assert.Equal(t, "3 windows\nfirefox: 2\nkitty: 1", status.Tooltip)
}

func TestGenerateStatus_NoneFocused(t *testing.T) {
	status := generateStatus([]dbus.WindowInfo{{ID: "01A", AppID: "firefox"}}, 60)
	assert.Empty(t, status.Text)
	assert.Equal(t, "empty", status.Class)

	status = generateStatus(nil, 60)
	assert.Equal(t, "No windows", status.Tooltip)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "short", truncateTitle("short", 10))
	assert.Equal(t, "abcd…", truncateTitle("abcdefgh", 5))
	assert.Equal(t, "abcdefgh", truncateTitle("abcdefgh", 0))
}

func TestOutputStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputStatus(&buf, WaybarStatus{Text: "hi", Class: "kitty"}))
	assert.Equal(t, `{"text":"hi","class":"kitty"}`+"\n", buf.String())
}

func TestWindowIDs(t *testing.T) {
	ids, err := windowIDs("01ABC", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"01ABC"}, ids)

	ids, err = windowIDs("-", strings.NewReader("01A | firefox | Home\n\n01B | kitty | ~\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"01A", "01B"}, ids)

	_, err = windowIDs("-", strings.NewReader("\n"))
	assert.Error(t, err)
}
