package toplevel

import (
	"fmt"
	"strings"
)

// Handle identifies a window for as long as the compositor keeps it alive.
// Implementations must be pointer types so that two handles are equal only
// when they are the same object.
type Handle interface {
	// ProtocolID returns the backend's object id, used for logging only.
	ProtocolID() uint32
}

// Output identifies a physical output (monitor).
type Output interface {
	ProtocolID() uint32
}

// Workspace identifies a compositor workspace.
type Workspace interface {
	ProtocolID() uint32
}

// State is a single window state flag.
type State uint8

const (
	Maximized State = iota
	Minimized
	Activated
	Fullscreen
)

var stateNames = [...]string{
	Maximized:  "maximized",
	Minimized:  "minimized",
	Activated:  "activated",
	Fullscreen: "fullscreen",
}

// String returns the lowercase state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// ParseState parses a state name as produced by State.String.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// StateSet is an unordered set of State flags. Any combination is valid.
type StateSet uint8

// NewStateSet builds a set from the given flags.
func NewStateSet(states ...State) StateSet {
	var s StateSet
	for _, st := range states {
		s = s.With(st)
	}
	return s
}

// Has reports whether st is in the set.
func (s StateSet) Has(st State) bool {
	return s&(1<<st) != 0
}

// With returns the set with st added.
func (s StateSet) With(st State) StateSet {
	return s | 1<<st
}

// Without returns the set with st removed.
func (s StateSet) Without(st State) StateSet {
	return s &^ (1 << st)
}

// States returns the members in declaration order.
func (s StateSet) States() []State {
	var out []State
	for i := range stateNames {
		if s.Has(State(i)) {
			out = append(out, State(i))
		}
	}
	return out
}

// Strings returns the member names in declaration order.
func (s StateSet) Strings() []string {
	states := s.States()
	out := make([]string, 0, len(states))
	for _, st := range states {
		out = append(out, st.String())
	}
	return out
}

func (s StateSet) String() string {
	return "[" + strings.Join(s.Strings(), ",") + "]"
}

// Info is the committed description of a window.
type Info struct {
	Title      string
	AppID      string
	State      StateSet
	Outputs    map[Output]struct{}
	Workspaces map[Workspace]struct{}
}

// NewInfo returns an Info with empty, non-nil sets.
func NewInfo() Info {
	return Info{
		Outputs:    make(map[Output]struct{}),
		Workspaces: make(map[Workspace]struct{}),
	}
}

// Clone returns a deep copy. Handles inside the sets are shared, the sets are not.
func (i Info) Clone() Info {
	c := i
	c.Outputs = make(map[Output]struct{}, len(i.Outputs))
	for o := range i.Outputs {
		c.Outputs[o] = struct{}{}
	}
	c.Workspaces = make(map[Workspace]struct{}, len(i.Workspaces))
	for w := range i.Workspaces {
		c.Workspaces[w] = struct{}{}
	}
	return c
}

// OnAnyOutput reports whether the window is on at least one of the given outputs.
func (i Info) OnAnyOutput(outputs map[Output]struct{}) bool {
	for o := range i.Outputs {
		if _, ok := outputs[o]; ok {
			return true
		}
	}
	return false
}

// OutputInfo describes a monitor as reported by the compositor.
type OutputInfo struct {
	Name        string
	Description string
	Make        string
	Model       string
	X, Y        int32
	Width       int32
	Height      int32
	Scale       int32
}
