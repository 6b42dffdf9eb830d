package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/interfaces"
	"chatbox/web/internal/service"
)

// SessionCookieName carries the browser session id.
const SessionCookieName = "chatbox_session"

type contextKey int

const (
	workspaceKey contextKey = iota
	sessionIDKey
)

// WithWorkspace stores w in ctx for the handlers.
func WithWorkspace(ctx context.Context, w *service.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey, w)
}

func workspaceFrom(r *http.Request) (*service.Workspace, error) {
	w, ok := r.Context().Value(workspaceKey).(*service.Workspace)
	if !ok || w == nil {
		return nil, fmt.Errorf("%w: no workspace bound to request", app_errors.ErrInternal)
	}
	return w, nil
}

func sessionIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

// sessionMiddleware resolves the browser session cookie, issuing a new one
// when it is missing or malformed, and binds the session's workspace to the
// request context.
func sessionMiddleware(provider interfaces.WorkspaceProvider, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if c, err := r.Cookie(SessionCookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sessionID = id.String()
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ws, err := provider.Get(r.Context(), sessionID)
			if err != nil {
				respondWithError(w, err)
				return
			}

			ctx := context.WithValue(WithWorkspace(r.Context(), ws), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// limiterIdle is how long an unused bucket is kept.
const limiterIdle = 10 * time.Minute

// sendLimiter keeps one token bucket per browser session.
type sendLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastPrune time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSendLimiter(perSecond float64, burst int) *sendLimiter {
	return &sendLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *sendLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= limiterIdle {
		l.pruneLocked(now.Add(-limiterIdle))
		l.lastPrune = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// pruneLocked forgets buckets unused since before cutoff.
func (l *sendLimiter) pruneLocked(cutoff time.Time) {
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

// middleware rejects requests over the session's send rate with 429. A
// non-positive limit disables it.
func (l *sendLimiter) middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := sessionIDFrom(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !l.get(key, time.Now()).Allow() {
			respondWithError(w, fmt.Errorf("%w: session %s", app_errors.ErrRateLimited, key))
			return
		}
		next.ServeHTTP(w, r)
	})
}
