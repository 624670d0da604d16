package reeutil

import (
	"io"
	"log/slog"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal/audit"
)

// AuditEvent is one login pipeline outcome.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops every event.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = audit.ChannelSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink writes events as structured log records.
func NewSlogSink(logger *slog.Logger) AuditSink {
	return audit.NewSlogSink(logger)
}
