// Package daemon provides the main orchestration for wlpaneld.
// It coordinates the compositor bridge, the app tray, the D-Bus control
// interface, desktop entry scanning and configuration hot-reload.
package daemon
