package mail

import (
	"context"
	"log/slog"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// LogMailer writes deliveries to a logger instead of sending them.
type LogMailer struct {
	logger *slog.Logger
	// RevealCodes includes the code in the record. Development only.
	RevealCodes bool
}

// NewLogMailer returns a LogMailer on logger, or slog.Default() when nil.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendCode(ctx context.Context, email, code string, purpose reeutil.CodePurpose) error {
	attrs := []slog.Attr{
		slog.String("email", email),
		slog.String("purpose", string(purpose)),
	}
	if m.RevealCodes {
		attrs = append(attrs, slog.String("code", code))
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "code delivery", attrs...)
	return nil
}

var _ reeutil.Mailer = (*LogMailer)(nil)
