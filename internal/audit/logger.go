package audit

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes structured audit events for administrative actions.
type Logger struct {
	log zerolog.Logger
}

// New creates an audit logger on top of l.
func New(l zerolog.Logger) *Logger {
	return &Logger{log: l.With().Bool("audit", true).Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{log: zerolog.Nop()}
}

func (l *Logger) UserCreated(actorID, userID uint, email, role string) {
	l.log.Info().
		Str("action", "user_created").
		Uint("actor_user_id", actorID).
		Uint("target_user_id", userID).
		Str("email", maskEmail(email)).
		Str("role", role).
		Msg("User created")
}

func (l *Logger) UserDeleted(actorID, userID uint) {
	l.log.Warn().
		Str("action", "user_deleted").
		Uint("actor_user_id", actorID).
		Uint("target_user_id", userID).
		Msg("User deleted")
}

func (l *Logger) RoleChanged(actorID, userID uint, oldRole, newRole string) {
	l.log.Warn().
		Str("action", "role_changed").
		Uint("actor_user_id", actorID).
		Uint("target_user_id", userID).
		Str("old_role", oldRole).
		Str("new_role", newRole).
		Msg("User role changed")
}

// ImportCompleted logs the outcome of a bulk user import. actorID is 0 for the CLI.
func (l *Logger) ImportCompleted(actorID uint, source string, created, updated, rejected int) {
	l.log.Info().
		Str("action", "users_imported").
		Uint("actor_user_id", actorID).
		Str("source", source).
		Int("created", created).
		Int("updated", updated).
		Int("rejected", rejected).
		Msg("Bulk user import completed")
}

func (l *Logger) LetterDecision(actorID uint, letterID, referenceNo, status string) {
	l.log.Info().
		Str("action", "letter_"+status).
		Uint("actor_user_id", actorID).
		Str("letter_id", letterID).
		Str("reference_no", referenceNo).
		Msg("Letter decision recorded")
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***" + email[max(at, 0):]
	}
	return email[:1] + "***" + email[at:]
}
