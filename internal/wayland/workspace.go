package wayland

import (
	"github.com/neurlang/wayland/wl"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// zcosmic_workspace_manager_v1 events and requests.
const (
	workspaceManagerGroup    = 0
	workspaceManagerDone     = 1
	workspaceManagerFinished = 2
	workspaceManagerStop     = 1
)

// zcosmic_workspace_group_handle_v1 events.
const (
	workspaceGroupCapabilities = iota
	workspaceGroupOutputEnter
	workspaceGroupOutputLeave
	workspaceGroupWorkspace
	workspaceGroupRemove
)

// zcosmic_workspace_handle_v1 events.
const (
	workspaceName = iota
	workspaceCoordinates
	workspaceState
	workspaceCapabilities
	workspaceRemove
)

const workspaceStateActive = 0

// cosmicWorkspaces mirrors the compositor's workspace groups and publishes
// the active set on every manager done event.
type cosmicWorkspaces struct {
	wl.BaseProxy
	conn   *conn
	groups map[*cosmicWorkspaceGroup]struct{}
}

func newCosmicWorkspaces(c *conn) *cosmicWorkspaces {
	m := &cosmicWorkspaces{conn: c, groups: make(map[*cosmicWorkspaceGroup]struct{})}
	c.ctx.Register(m)
	return m
}

// Dispatch implements wl.Dispatcher.
func (m *cosmicWorkspaces) Dispatch(event *wl.Event) {
	switch uint32(event.Opcode) {
	case workspaceManagerGroup:
		g := &cosmicWorkspaceGroup{
			manager:    m,
			outputs:    make(map[toplevel.Output]struct{}),
			workspaces: make(map[*cosmicWorkspace]struct{}),
		}
		m.conn.adopt(event.Uint32(), g)
		m.groups[g] = struct{}{}
	case workspaceManagerDone:
		m.conn.events.Send(compositor.WorkspaceEvent{Active: m.active()})
	case workspaceManagerFinished:
		m.conn.logger.Info("workspace manager finished")
	}
}

func (m *cosmicWorkspaces) active() []compositor.ActiveWorkspace {
	var out []compositor.ActiveWorkspace
	for g := range m.groups {
		outputs := make([]toplevel.Output, 0, len(g.outputs))
		for o := range g.outputs {
			outputs = append(outputs, o)
		}
		for w := range g.workspaces {
			if w.active {
				out = append(out, compositor.ActiveWorkspace{Workspace: w, Outputs: outputs})
			}
		}
	}
	return out
}

type cosmicWorkspaceGroup struct {
	wl.BaseProxy
	manager    *cosmicWorkspaces
	outputs    map[toplevel.Output]struct{}
	workspaces map[*cosmicWorkspace]struct{}
}

// Dispatch implements wl.Dispatcher.
func (g *cosmicWorkspaceGroup) Dispatch(event *wl.Event) {
	c := g.manager.conn
	switch uint32(event.Opcode) {
	case workspaceGroupOutputEnter:
		if o := c.output(event.Uint32()); o != nil {
			g.outputs[o] = struct{}{}
		}
	case workspaceGroupOutputLeave:
		if o := c.output(event.Uint32()); o != nil {
			delete(g.outputs, o)
		}
	case workspaceGroupWorkspace:
		w := &cosmicWorkspace{group: g}
		c.adopt(event.Uint32(), w)
		g.workspaces[w] = struct{}{}
	case workspaceGroupRemove:
		delete(g.manager.groups, g)
		g.Unregister()
	}
}

// cosmicWorkspace is a zcosmic_workspace_handle_v1 and implements
// toplevel.Workspace.
type cosmicWorkspace struct {
	wl.BaseProxy
	group  *cosmicWorkspaceGroup
	name   string
	active bool
}

// ProtocolID implements toplevel.Workspace.
func (w *cosmicWorkspace) ProtocolID() uint32 {
	return uint32(w.Id())
}

// Dispatch implements wl.Dispatcher.
func (w *cosmicWorkspace) Dispatch(event *wl.Event) {
	switch uint32(event.Opcode) {
	case workspaceName:
		w.name = event.String()
	case workspaceState:
		w.active = false
		for _, v := range event.Array() {
			if uint32(v) == workspaceStateActive {
				w.active = true
			}
		}
	case workspaceRemove:
		delete(w.group.workspaces, w)
		w.Unregister()
	}
}
