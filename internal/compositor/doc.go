// Package compositor runs the compositor connection on a dedicated worker
// goroutine and bridges it to the UI thread.
//
// The worker owns a Session (one live protocol connection) and a
// toplevel.Registry. Normalized session events flow through the registry and
// out as Messages; Commands from the UI flow the other way. Both directions
// use unbounded Mailboxes so neither side ever blocks the other.
package compositor
