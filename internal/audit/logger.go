package audit

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes structured audit events for credential operations.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Actions that signal an attack or an operator-relevant failure.
var warnActions = map[string]struct{}{
	"login_failed":                 {},
	"account_locked":               {},
	"token_reuse_detected":         {},
	"refresh_failed":               {},
	"sessions_revoked":             {},
	"password_reset_notify_failed": {},
}

// Record logs one audit event. Email fields are masked.
func (l *Logger) Record(action string, fields map[string]string) {
	ev := l.log.Info()
	if _, warn := warnActions[action]; warn {
		ev = l.log.Warn()
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	ev.Str("action", action).Msg("audit_event")
}

// maskEmail keeps the first two characters of the local part and the domain.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 5 || at < 0 {
		return "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
