// Package x11 implements a compositor backend for X11 window managers that
// follow EWMH. Windows are discovered from _NET_CLIENT_LIST and focus from
// _NET_ACTIVE_WINDOW on the root window.
package x11
