package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type gateSink struct {
	gate   chan struct{}
	events chan Event
}

func (s *gateSink) Emit(_ context.Context, e Event) {
	<-s.gate
	s.events <- e
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil)
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink, nil)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
			continue
		default:
		}
		break
	}
	if got != 3 {
		t.Fatalf("expected 3 delivered events, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{}), events: make(chan Event, 16)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, logger)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	if !strings.Contains(logs.String(), "audit buffer full") {
		t.Fatalf("expected drop warning, got %q", logs.String())
	}

	close(sink.gate)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{EventType: "captcha_issued", Success: true})
	s.Emit(context.Background(), Event{EventType: "login_failure", Email: "a@x.com", Error: "invalid_credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Email != "a@x.com" || e.Error != "invalid_credentials" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	s := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	s.Emit(context.Background(), Event{EventType: "login_success", Success: true, PrincipalID: "u1"})
	s.Emit(context.Background(), Event{EventType: "account_blocked", Success: false, Metadata: map[string]string{"attempts": "3"}})

	out := buf.String()
	if !strings.Contains(out, `"level":"INFO"`) || !strings.Contains(out, `"principal_id":"u1"`) {
		t.Fatalf("missing success record: %s", out)
	}
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"meta.attempts":"3"`) {
		t.Fatalf("missing failure record: %s", out)
	}
}

type panicSink struct{ calls int }

func (s *panicSink) Emit(context.Context, Event) {
	s.calls++
	panic("sink exploded")
}

func TestDispatcherSurvivesSinkPanicAndDoubleClose(t *testing.T) {
	sink := &panicSink{}
	var logs bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, slog.New(slog.NewTextHandler(&logs, nil)))

	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Emit(context.Background(), Event{EventType: "login_failure"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})

	if sink.calls != 2 {
		t.Fatalf("expected both events delivered, got %d", sink.calls)
	}
	if !strings.Contains(logs.String(), "audit sink panicked") {
		t.Fatalf("expected panic logged, got %q", logs.String())
	}
}
