package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

func TestIsFilterExpression(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		// Valid filter expressions
		{"app_equal", "app=firefox", true},
		{"app_not_equal", "app!=slack", true},
		{"title_contains", "title~inbox", true},
		{"state", "state=minimized", true},
		{"state_not", "state!=activated", true},
		{"id", "id=01HZX3", true},
		{"multiple", "app=slack,state=activated", true},
		{"spaces", "app = slack , title ~ general", true},

		// Not filter expressions (plain text search)
		{"plain_word", "firefox", false},
		{"plain_phrase", "pull request", false},
		{"email_address", "user@example.com", false},
		{"url", "https://example.com", false},
		{"unknown_field", "unknown=value", false},
		{"just_equals", "=value", false},
		{"number", "12345", false},
		{"empty", "", false},
		{"one_bad_clause", "app=slack,foo", false},

		// Edge cases
		{"partial_field", "ap=firefox", false},
		{"case_insensitive_field", "APP=firefox", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isFilterExpression(tt.query)
			assert.Equal(t, tt.expected, result, "query: %q", tt.query)
		})
	}
}

func TestMatchWindow(t *testing.T) {
	firefox := dbus.WindowInfo{ID: "A1", AppID: "firefox", Title: "Inbox - Mail", States: []string{"activated", "maximized"}}
	term := dbus.WindowInfo{ID: "B2", AppID: "org.wezfurlong.wezterm", Title: "vim", States: []string{"minimized"}}

	tests := []struct {
		query   string
		firefox bool
		term    bool
	}{
		{"", true, true},
		{"app=firefox", true, false},
		{"app=FIREFOX", true, false},
		{"app!=firefox", false, true},
		{"title~inbox", true, false},
		{"state=minimized", false, true},
		{"state!=minimized", true, false},
		{"state~max", true, false},
		{"id=b2", false, true},
		{"app~wez,state=activated", false, false},
		{"wezterm", false, true},
		{"ffx", true, false},
		{"nomatch", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.firefox, matchWindow(firefox, tt.query), "firefox")
			assert.Equal(t, tt.term, matchWindow(term, tt.query), "wezterm")
		})
	}
}
