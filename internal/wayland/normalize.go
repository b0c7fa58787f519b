package wayland

import (
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// wireEvent is the argument decoder of an incoming protocol message.
// *wl.Event satisfies it.
type wireEvent interface {
	Uint32() uint32
	Int32() int32
	String() string
	Array() []int32
}

// outputResolver maps a wl_output object id to the tracked output, or nil.
type outputResolver func(id uint32) toplevel.Output

// workspaceResolver maps a workspace object id to the tracked workspace, or nil.
type workspaceResolver func(id uint32) toplevel.Workspace

// Shared by wlr-foreign-toplevel and cosmic-toplevel-info.
var enumStates = map[uint32]toplevel.State{
	0: toplevel.Maximized,
	1: toplevel.Minimized,
	2: toplevel.Activated,
	3: toplevel.Fullscreen,
}

// decodeStateArray converts a wire array of uint32 state values. Values
// without a mapping are dropped.
func decodeStateArray(raw []int32, table map[uint32]toplevel.State) toplevel.StateSet {
	var set toplevel.StateSet
	for _, v := range raw {
		if st, ok := table[uint32(v)]; ok {
			set = set.With(st)
		}
	}
	return set
}

// KDE reports window state as a bitmask.
var kdeStateBits = []struct {
	bit   uint32
	state toplevel.State
}{
	{1 << 0, toplevel.Activated},
	{1 << 1, toplevel.Minimized},
	{1 << 2, toplevel.Maximized},
	{1 << 3, toplevel.Fullscreen},
}

const (
	kdeStateActive    = 1 << 0
	kdeStateMinimized = 1 << 1
)

// decodeKDEState converts a KDE state bitmask. Other bits are dropped.
func decodeKDEState(flags uint32) toplevel.StateSet {
	var set toplevel.StateSet
	for _, b := range kdeStateBits {
		if flags&b.bit != 0 {
			set = set.With(b.state)
		}
	}
	return set
}

// zwlr_foreign_toplevel_handle_v1 events.
const (
	wlrHandleTitle = iota
	wlrHandleAppID
	wlrHandleOutputEnter
	wlrHandleOutputLeave
	wlrHandleState
	wlrHandleDone
	wlrHandleClosed
	wlrHandleParent
)

// normalizeWlrHandle translates one wlr handle event. A nil result means the
// event carries nothing the model tracks.
func normalizeWlrHandle(opcode uint32, ev wireEvent, outputs outputResolver) toplevel.HandleEvent {
	switch opcode {
	case wlrHandleTitle:
		return toplevel.TitleChanged{Title: ev.String()}
	case wlrHandleAppID:
		return toplevel.AppIDChanged{AppID: ev.String()}
	case wlrHandleOutputEnter:
		if o := outputs(ev.Uint32()); o != nil {
			return toplevel.OutputEntered{Output: o}
		}
	case wlrHandleOutputLeave:
		if o := outputs(ev.Uint32()); o != nil {
			return toplevel.OutputLeft{Output: o}
		}
	case wlrHandleState:
		return toplevel.StateChanged{State: decodeStateArray(ev.Array(), enumStates)}
	case wlrHandleDone:
		return toplevel.Committed{}
	case wlrHandleClosed:
		return toplevel.Closed{}
	case wlrHandleParent:
		// Parent relations are not part of the model.
	}
	return nil
}

// zcosmic_toplevel_handle_v1 events.
const (
	cosmicHandleClosed = iota
	cosmicHandleDone
	cosmicHandleTitle
	cosmicHandleAppID
	cosmicHandleOutputEnter
	cosmicHandleOutputLeave
	cosmicHandleWorkspaceEnter
	cosmicHandleWorkspaceLeave
	cosmicHandleState
)

// normalizeCosmicHandle translates one cosmic toplevel handle event.
func normalizeCosmicHandle(opcode uint32, ev wireEvent, outputs outputResolver, workspaces workspaceResolver) toplevel.HandleEvent {
	switch opcode {
	case cosmicHandleClosed:
		return toplevel.Closed{}
	case cosmicHandleDone:
		return toplevel.Committed{}
	case cosmicHandleTitle:
		return toplevel.TitleChanged{Title: ev.String()}
	case cosmicHandleAppID:
		return toplevel.AppIDChanged{AppID: ev.String()}
	case cosmicHandleOutputEnter:
		if o := outputs(ev.Uint32()); o != nil {
			return toplevel.OutputEntered{Output: o}
		}
	case cosmicHandleOutputLeave:
		if o := outputs(ev.Uint32()); o != nil {
			return toplevel.OutputLeft{Output: o}
		}
	case cosmicHandleWorkspaceEnter:
		if w := workspaces(ev.Uint32()); w != nil {
			return toplevel.WorkspaceEntered{Workspace: w}
		}
	case cosmicHandleWorkspaceLeave:
		if w := workspaces(ev.Uint32()); w != nil {
			return toplevel.WorkspaceLeft{Workspace: w}
		}
	case cosmicHandleState:
		return toplevel.StateChanged{State: decodeStateArray(ev.Array(), enumStates)}
	}
	return nil
}

// org_kde_plasma_window events.
const (
	kdeWindowTitleChanged = iota
	kdeWindowAppIDChanged
	kdeWindowStateChanged
	kdeWindowVirtualDesktopChanged
	kdeWindowThemedIconNameChanged
	kdeWindowUnmapped
	kdeWindowInitialState
)

// normalizeKDEWindow translates one plasma window event. The protocol has no
// commit event; the caller decides when to follow attribute events with
// Committed.
func normalizeKDEWindow(opcode uint32, ev wireEvent) toplevel.HandleEvent {
	switch opcode {
	case kdeWindowTitleChanged:
		return toplevel.TitleChanged{Title: ev.String()}
	case kdeWindowAppIDChanged:
		return toplevel.AppIDChanged{AppID: ev.String()}
	case kdeWindowStateChanged:
		return toplevel.StateChanged{State: decodeKDEState(ev.Uint32())}
	case kdeWindowUnmapped:
		return toplevel.Closed{}
	case kdeWindowInitialState:
		return toplevel.Committed{}
	}
	return nil
}
