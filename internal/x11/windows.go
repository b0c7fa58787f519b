package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// window is a managed client and implements toplevel.Handle.
type window struct {
	id         xproto.Window
	wmStates   []string
	lastActive bool
}

// ProtocolID implements toplevel.Handle.
func (w *window) ProtocolID() uint32 {
	return uint32(w.id)
}

func (s *session) send(w *window, ev toplevel.HandleEvent) {
	s.events.Send(compositor.ToplevelEvent{Handle: w, Event: ev})
}

func (s *session) rootPropertyChanged(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(xu, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "_NET_CLIENT_LIST":
		s.refreshClients()
	case "_NET_ACTIVE_WINDOW":
		s.refreshActive()
	}
}

func (s *session) refreshClients() {
	list, err := ewmh.ClientListGet(s.xu)
	if err != nil {
		s.logger.Debug("failed to read client list", "error", err)
		return
	}

	added, removed := diffClients(s.windows, list)
	for _, id := range removed {
		s.untrack(id)
	}
	for _, id := range added {
		s.track(id)
	}
}

func (s *session) refreshActive() {
	active, err := ewmh.ActiveWindowGet(s.xu)
	if err != nil {
		active = 0
	}
	s.active = active

	for _, w := range s.windows {
		if (w.id == active) != w.lastActive {
			s.sendState(w)
			s.send(w, toplevel.Committed{})
		}
	}
}

// track announces a client and sends its initial attributes as one commit.
// Windows that do not belong on a taskbar are never announced.
func (s *session) track(id xproto.Window) {
	types, _ := ewmh.WmWindowTypeGet(s.xu, id)
	states, _ := ewmh.WmStateGet(s.xu, id)
	if !isTaskbarWindow(types, states) {
		return
	}

	if err := xwindow.New(s.xu, id).Listen(xproto.EventMaskPropertyChange); err != nil {
		s.logger.Debug("failed to listen on client", "window", id, "error", err)
		return
	}

	w := &window{id: id, wmStates: states}
	s.windows[id] = w
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		s.windowPropertyChanged(w, ev)
	}).Connect(s.xu, id)

	s.events.Send(compositor.ManagerEvent{Event: toplevel.NewToplevel{Handle: w}})
	s.send(w, toplevel.TitleChanged{Title: s.title(id)})
	s.send(w, toplevel.AppIDChanged{AppID: s.appID(id)})
	s.sendState(w)
	s.send(w, toplevel.Committed{})
}

func (s *session) untrack(id xproto.Window) {
	w, ok := s.windows[id]
	if !ok {
		return
	}
	delete(s.windows, id)
	xevent.Detach(s.xu, id)
	s.send(w, toplevel.Closed{})
}

func (s *session) windowPropertyChanged(w *window, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(s.xu, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "_NET_WM_NAME", "WM_NAME":
		s.send(w, toplevel.TitleChanged{Title: s.title(w.id)})
	case "WM_CLASS":
		s.send(w, toplevel.AppIDChanged{AppID: s.appID(w.id)})
	case "_NET_WM_STATE":
		states, err := ewmh.WmStateGet(s.xu, w.id)
		if err != nil {
			return
		}
		w.wmStates = states
		s.sendState(w)
	default:
		return
	}
	s.send(w, toplevel.Committed{})
}

func (s *session) sendState(w *window) {
	w.lastActive = w.id == s.active
	s.send(w, toplevel.StateChanged{State: statesFromEWMH(w.wmStates, w.lastActive)})
}

func (s *session) title(id xproto.Window) string {
	if name, err := ewmh.WmNameGet(s.xu, id); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(s.xu, id)
	return name
}

func (s *session) appID(id xproto.Window) string {
	class, err := icccm.WmClassGet(s.xu, id)
	if err != nil {
		return ""
	}
	return appIDFromClass(class.Instance, class.Class)
}
