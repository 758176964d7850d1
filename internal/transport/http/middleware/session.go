package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/pkg/id"
)

const SessionIDKey contextKey = "session_id"

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Session returns middleware that guarantees every request carries a
// server-issued session. A cookie is honored only when its session row exists;
// a missing cookie, or one naming a session the store never issued, gets a
// fresh opaque ID minted, persisted and set as an HttpOnly cookie. Either way
// the ID lands in the request context.
//
// A failed persist does not fail the request: the cookie alone correlates
// follow-up calls, and the absent row triggers a re-mint on the next request.
// When the store itself is unreachable the cookie is trusted as-is rather
// than churning every caller's session.
func Session(cookieName string, repo sessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				switch _, err := repo.Get(r.Context(), c.Value); {
				case err == nil:
					sid = c.Value
				case errors.Is(err, domain.ErrNotFound):
					// Unknown to the store: never issued, or its persist
					// failed earlier. Mint a replacement below.
				default:
					slog.Warn("session lookup failed, trusting cookie", "session_id", c.Value, "err", err)
					sid = c.Value
				}
			}
			if sid == "" {
				sid = id.New()
				now := time.Now().UTC()
				sess := &domain.Session{
					SessionID: sid,
					Enable:    true,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := repo.Put(r.Context(), sess); err != nil {
					slog.Warn("failed to persist new session", "session_id", sid, "err", err)
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), SessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts the session ID injected by Session.
func SessionFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}
