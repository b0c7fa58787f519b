// Package toplevel defines the window model shared by every compositor backend:
// window handles, state flags, the normalized event vocabulary, and the
// registry that turns per-window event streams into atomic Add/Update/Remove
// updates.
package toplevel
