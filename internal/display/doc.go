// Package display renders the panel: a GTK4 layer-shell bar with the app
// tray, the focused window title and a clock. Everything in this package runs
// on the GTK main thread.
package display
