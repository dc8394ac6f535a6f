// Package notify provides the asynchronous fan-out used for user notifications.
//
// # Architecture boundaries
//
// The root package defines the Notification model and the public Notifier interface.
// This package only moves values from producers to a single consumer goroutine with
// bounded buffering.
//
// # What this package must NOT do
//
//   - Import goDesk (to avoid import cycles).
//   - Block a producer forever when DropIfFull is set.
package notify
