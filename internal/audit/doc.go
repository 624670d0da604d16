// Package audit implements async event dispatching for login pipeline outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: audit record with timestamp, type, principal, email, IP, metadata.
//
// The Engine decides which events to emit. This package only buffers and
// delivers them, and never imports the root package.
package audit
