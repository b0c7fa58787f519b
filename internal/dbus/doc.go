// Package dbus exports the panel on the session bus as
// io.github.jmylchreest.wlpanel. The server lists tracked windows and forwards
// Activate, Toggle, Minimize, Close and Launch to a Controller; Client is the
// matching caller used by the wlpanel CLI. NotificationsClient sends desktop
// notifications through org.freedesktop.Notifications.
package dbus
