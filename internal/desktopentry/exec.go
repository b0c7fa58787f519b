package desktopentry

import (
	"errors"
	"strings"
)

// ErrEmptyExec is returned when an Exec value has no program.
var ErrEmptyExec = errors.New("empty exec")

// ErrUnterminatedQuote is returned when an Exec value has an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote in exec")

// ExecArgs splits an Exec value into argv. Field codes are removed since the
// panel never launches with files or URLs; "%%" becomes a literal percent.
// Double-quoted arguments may escape ", `, $ and \ with a backslash.
func ExecArgs(exec string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)

	flush := func() {
		if started {
			args = append(args, cur.String())
		}
		cur.Reset()
		started = false
	}

	for i := 0; i < len(exec); i++ {
		c := exec[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(exec):
			i++
			cur.WriteByte(exec[i])
		case c == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (c == ' ' || c == '\t'):
			flush()
		case c == '%' && i+1 < len(exec):
			i++
			if exec[i] == '%' {
				cur.WriteByte('%')
				started = true
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if inQuote {
		return nil, ErrUnterminatedQuote
	}
	flush()

	if len(args) == 0 {
		return nil, ErrEmptyExec
	}
	return args, nil
}
