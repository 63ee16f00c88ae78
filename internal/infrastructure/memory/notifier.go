package memory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
)

// LogNotifier stands in for the broker in local setups. The raw token is
// only written at debug level.
type LogNotifier struct {
	log zerolog.Logger
}

var _ auth.ResetNotifier = (*LogNotifier)(nil)

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "log_notifier").Logger()}
}

func (n *LogNotifier) PublishPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	n.log.Info().
		Str("user_id", evt.UserID).
		Msg("password reset requested")
	n.log.Debug().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("token", evt.Token).
		Msg("password reset token")
	return nil
}
