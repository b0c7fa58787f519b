package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitWindowsChanged emits the WindowsChanged signal.
// It carries no payload; listeners call ListWindows again.
func (s *PanelServer) EmitWindowsChanged() error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+".WindowsChanged"); err != nil {
		return fmt.Errorf("failed to emit WindowsChanged signal: %w", err)
	}
	return nil
}

// EmitTrackingFinished emits the TrackingFinished signal. reason is empty
// when tracking ended without an error.
func (s *PanelServer) EmitTrackingFinished(reason string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+".TrackingFinished", reason); err != nil {
		return fmt.Errorf("failed to emit TrackingFinished signal: %w", err)
	}

	s.logger.Debug("emitted TrackingFinished signal", "reason", reason)
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *PanelServer) Connection() *dbus.Conn {
	return s.conn
}
