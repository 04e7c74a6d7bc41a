// Package simerr declares the fatal error kinds of spec.md §7. None of
// these model recoverable conditions — a dropped message or a
// disrupted peer ignoring input is expected behavior, not an error —
// so every kind here is meant to propagate synchronously out of the
// scheduler step that produced it, the way the teacher's
// ErrCommandUnknown/ErrUnsupportedProtocol sentinels do.
package simerr

import "fmt"

// ConfigurationError is raised at peer/simulation construction time:
// unknown peer type, missing required field, malformed distribution.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NotConnectedError is raised by Peer.Send when the receiver is not in
// the sender's connection table and the send was not a bootstrap send.
type NotConnectedError struct {
	Sender, Receiver uint64
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("peer %d is not connected to peer %d", e.Sender, e.Receiver)
}

// UnhandledMessageError is raised when a peer receives a message of a
// kind no installed service declares.
type UnhandledMessageError struct {
	Peer uint64
	Kind string
}

func (e *UnhandledMessageError) Error() string {
	return fmt.Sprintf("peer %d has no service handling message kind %q", e.Peer, e.Kind)
}

// UnknownStorageError is returned by Peer.Storage for a bucket name
// never registered via Peer.AddStorage.
type UnknownStorageError struct {
	Peer   uint64
	Bucket string
}

func (e *UnknownStorageError) Error() string {
	return fmt.Sprintf("peer %d has no storage bucket %q", e.Peer, e.Bucket)
}

// LatencyUnknownError mirrors engine.ErrLatencyUnknown at the
// boundary this package's callers see it from (kept distinct from the
// engine type so internal/config and pkg/simulation can report it
// without importing internal/engine's error type directly).
type LatencyUnknownError struct {
	A, B string
}

func (e *LatencyUnknownError) Error() string {
	return fmt.Sprintf("no latency entry for locations %q/%q", e.A, e.B)
}
