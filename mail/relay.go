package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sender delivers a rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	URL      string
	Queue    string
	Prefetch int
	// CodeTTL is quoted in the message body.
	CodeTTL time.Duration
}

// Relay consumes queued codes and hands them to a Sender.
type Relay struct {
	cfg    RelayConfig
	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// NewRelay returns a Relay for cfg.
func NewRelay(cfg RelayConfig, sender Sender, logger *slog.Logger) *Relay {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{cfg: cfg, sender: sender, logger: logger, now: time.Now}
}

// Run consumes until ctx is done, redialing the broker with exponential
// backoff from one to thirty seconds.
func (r *Relay) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(r.cfg.URL)
		if err != nil {
			r.logger.WarnContext(ctx, "relay dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = r.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.WarnContext(ctx, "relay consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (r *Relay) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(r.cfg.Prefetch, 0, false); err != nil {
		r.logger.WarnContext(ctx, "relay set qos failed", "error", err)
	}
	if _, err := ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, r.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := r.Handle(ctx, d.Body); err != nil {
				r.logger.ErrorContext(ctx, "relay delivery failed", "error", err)
				// Codes are short-lived; requeueing a failing one only loops.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one queued message and sends it. Messages whose code has
// already expired are dropped without sending.
func (r *Relay) Handle(ctx context.Context, body []byte) error {
	var msg CodeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := msg.validate(); err != nil {
		return err
	}

	if !msg.IssuedAt.IsZero() && r.now().Sub(msg.IssuedAt) >= r.cfg.CodeTTL {
		r.logger.InfoContext(ctx, "dropping expired code", "purpose", string(msg.Purpose))
		return nil
	}

	subject, text := Render(msg, r.cfg.CodeTTL)
	if err := r.sender.Send(ctx, msg.Email, subject, text); err != nil {
		return fmt.Errorf("send %s code: %w", msg.Purpose, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
