// Package wayland implements compositor backends on top of Wayland
// window-management protocols: wlr-foreign-toplevel-management,
// cosmic-toplevel-info with cosmic-workspace, and Plasma window management.
//
// All backends share one connection type that binds wl_seat, every wl_output
// and xdg_activation_v1 when offered. Protocol objects dispatch on a reader
// goroutine and publish normalized events to the session mailbox. Requests on
// toplevel handles, including their destroy, are made by the worker.
package wayland
