package tui

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// filterFields are the fields a search query may name, e.g. "app=firefox".
var filterFields = []string{"app", "title", "state", "id"}

// condition is one clause of a filter expression.
type condition struct {
	field string
	op    string // "=", "!=" or "~"
	value string
}

// parseFilter parses a comma-separated list of field/operator/value clauses.
// ok is false when any clause is not a valid expression, in which case the
// query is treated as plain text.
func parseFilter(query string) (conds []condition, ok bool) {
	if strings.TrimSpace(query) == "" {
		return nil, false
	}
	for _, part := range strings.Split(query, ",") {
		c, ok := parseCondition(strings.TrimSpace(part))
		if !ok {
			return nil, false
		}
		conds = append(conds, c)
	}
	return conds, true
}

func parseCondition(part string) (condition, bool) {
	i := strings.IndexAny(part, "!=~")
	if i <= 0 {
		return condition{}, false
	}

	var op string
	switch {
	case strings.HasPrefix(part[i:], "!="):
		op = "!="
	case part[i] == '~':
		op = "~"
	case part[i] == '=':
		op = "="
	default:
		return condition{}, false
	}

	field := strings.ToLower(strings.TrimSpace(part[:i]))
	known := false
	for _, f := range filterFields {
		if f == field {
			known = true
			break
		}
	}
	if !known {
		return condition{}, false
	}

	return condition{field: field, op: op, value: strings.TrimSpace(part[i+len(op):])}, true
}

// isFilterExpression reports whether query uses the field syntax rather
// than plain text.
func isFilterExpression(query string) bool {
	_, ok := parseFilter(query)
	return ok
}

func (c condition) match(w dbus.WindowInfo) bool {
	if c.field == "state" {
		has := false
		for _, s := range w.States {
			if strings.EqualFold(s, c.value) || (c.op == "~" && containsFold(s, c.value)) {
				has = true
				break
			}
		}
		if c.op == "!=" {
			return !has
		}
		return has
	}

	var v string
	switch c.field {
	case "app":
		v = w.AppID
	case "title":
		v = w.Title
	case "id":
		v = w.ID
	}

	switch c.op {
	case "=":
		return strings.EqualFold(v, c.value)
	case "!=":
		return !strings.EqualFold(v, c.value)
	default:
		return containsFold(v, c.value)
	}
}

// matchWindow reports whether w matches query: every clause of a filter
// expression, or a fuzzy match of plain text against app id and title.
func matchWindow(w dbus.WindowInfo, query string) bool {
	if query == "" {
		return true
	}
	if conds, ok := parseFilter(query); ok {
		for _, c := range conds {
			if !c.match(w) {
				return false
			}
		}
		return true
	}
	return fuzzy.MatchNormalizedFold(query, w.AppID+" "+w.Title)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
