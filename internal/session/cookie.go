// internal/session/cookie.go
//
// Cookie helpers and the per-request session middleware.
//
// Context
// -------
// The browser only ever holds the opaque session key.  Middleware reads the
// cookie, loads the row from the current tenant's database, and attaches
// the user id with auth.WithUser so rules.RequirePermission can see it.
//
// Notes
// -----
// • Sessions are per tenant: the same key on another site finds no row.
// • A bad or expired cookie is cleared and the request continues anonymous.
// • In path-prefix mode the cookie is scoped to "/<slug>/" so sites sharing
//   a domain keep separate sessions.

package session

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/auth"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// DefaultTTL is how long a login lasts.
const DefaultTTL = 14 * 24 * time.Hour

// Manager ties the codec to the cookie settings.
type Manager struct {
	Codec      Codec
	CookieName string
	TTL        time.Duration
}

// NewManager returns a Manager with defaults applied.
func NewManager(secret, cookieName string) *Manager {
	if cookieName == "" {
		cookieName = "adept_session"
	}
	return &Manager{Codec: NewCodec(secret), CookieName: cookieName, TTL: DefaultTTL}
}

var errNoTenant = errors.New("session: no tenant in request")

func (m *Manager) store(r *http.Request) (*Store, error) {
	t := tenant.Current(r.Context())
	if t == nil || t.GetDB() == nil {
		return nil, errNoTenant
	}
	return NewStore(t.GetDB(), m.Codec), nil
}

// Login starts a session for userID and sets the cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	st, err := m.store(r)
	if err != nil {
		return err
	}
	sess := &Session{
		Key:       NewKey(),
		Data:      map[string]any{UserKey: userID},
		ExpiresAt: st.now().Add(m.TTL),
	}
	if err := st.Save(r.Context(), sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    sess.Key,
		Path:     cookiePath(r),
		HttpOnly: true,
		Secure:   secure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	return nil
}

// Logout deletes the session row and clears the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	defer m.clear(w, r)
	key, ok := m.Key(r)
	if !ok {
		return nil
	}
	st, err := m.store(r)
	if err != nil {
		return err
	}
	return st.Delete(r.Context(), key)
}

// Key returns the session key carried by the request, if any.
func (m *Manager) Key(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Middleware attaches the session user to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := m.Key(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		st, err := m.store(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := st.Load(r.Context(), key)
		switch {
		case err == nil:
			if uid, ok := sess.UserID(); ok {
				r = r.WithContext(auth.WithUser(r.Context(), uid))
			}
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrBadSignature):
			zap.L().Debug("discarding session cookie", zap.Error(err))
			m.clear(w, r)
		default:
			zap.L().Error("session load failed", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     cookiePath(r),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// cookiePath is the site root as the browser sees it.
func cookiePath(r *http.Request) string {
	if rc := tenant.FromContext(r.Context()); rc != nil && rc.PathPrefix != "" {
		return rc.PathPrefix + "/"
	}
	return "/"
}

func secure(r *http.Request) bool {
	if rc := tenant.FromContext(r.Context()); rc != nil && rc.Scheme != "" {
		return rc.Scheme == "https"
	}
	return r.TLS != nil
}
