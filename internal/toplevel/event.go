package toplevel

// HandleEvent is a normalized per-window event. Backends translate their wire
// events into exactly one of these, or drop the wire event.
type HandleEvent interface {
	handleEvent()
}

type (
	// TitleChanged sets the pending title.
	TitleChanged struct{ Title string }
	// AppIDChanged sets the pending app id.
	AppIDChanged struct{ AppID string }
	// OutputEntered adds an output to the pending output set.
	OutputEntered struct{ Output Output }
	// OutputLeft removes an output from the pending output set.
	OutputLeft struct{ Output Output }
	// WorkspaceEntered adds a workspace to the pending workspace set.
	WorkspaceEntered struct{ Workspace Workspace }
	// WorkspaceLeft removes a workspace from the pending workspace set.
	WorkspaceLeft struct{ Workspace Workspace }
	// StateChanged replaces the pending state set.
	StateChanged struct{ State StateSet }
	// Committed publishes the pending info.
	Committed struct{}
	// Closed ends the window's lifetime.
	Closed struct{}
)

func (TitleChanged) handleEvent() {}
func (AppIDChanged) handleEvent() {}
func (OutputEntered) handleEvent() {}
func (OutputLeft) handleEvent() {}
func (WorkspaceEntered) handleEvent() {}
func (WorkspaceLeft) handleEvent() {}
func (StateChanged) handleEvent() {}
func (Committed) handleEvent() {}
func (Closed) handleEvent() {}

// ManagerEvent is a normalized event from a toplevel manager object.
type ManagerEvent interface {
	managerEvent()
}

type (
	// NewToplevel announces a window.
	NewToplevel struct{ Handle Handle }
	// ManagerFinished means the compositor will send no more announcements.
	ManagerFinished struct{}
)

func (NewToplevel) managerEvent() {}
func (ManagerFinished) managerEvent() {}

// UpdateKind discriminates registry updates.
type UpdateKind uint8

const (
	UpdateAdd UpdateKind = iota
	UpdateUpdate
	UpdateRemove
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateAdd:
		return "add"
	case UpdateUpdate:
		return "update"
	case UpdateRemove:
		return "remove"
	}
	return "unknown"
}

// Update is emitted by the Registry. Info is zero for UpdateRemove.
type Update struct {
	Kind   UpdateKind
	Handle Handle
	Info   Info
}
