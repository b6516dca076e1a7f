// internal/session/session.go
//
// Signed login session.
//
// Context
//   After the credential form succeeds we persist a “logged-in” marker
//   between requests.  The marker lives in a gorilla/sessions CookieStore:
//   the cookie is HMAC-signed (and encrypted when a second key is given), so
//   the user id and email cannot be forged client-side.
//
//   Callers (components/auth, cmd/web) rely only on this small API:
//
//     • Login      – after credential verification succeeds.
//     • Logout     – clears the cookie.
//     • Current    – reads the signed-in identity, if any.
//     • Middleware – copies the user id into the request context.
//     • SetBanner / Banner – carry the sign-in form's error banner between
//       requests, so a visibility toggle re-renders the page unchanged.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/logger"
	"github.com/yanizio/adept-signin/internal/user"
)

const (
	keyUserID = "uid"
	keyEmail  = "email"
	keyBanner = "login_banner"
)

// Manager wraps a cookie store under one session name.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// NewManager builds a Manager.  maxAge is in seconds; 0 makes the cookie
// last for the browser session.  secure marks the cookie HTTPS-only.
func NewManager(name string, secret []byte, maxAge int, secure bool) *Manager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: name}
}

// Store exposes the underlying cookie store so other flows that need
// short-lived session state (the OAuth handshake) share its keys and
// cookie options.
func (m *Manager) Store() sessions.Store { return m.store }

// Login records rec as the signed-in user.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, rec *user.Record) error {
	s, _ := m.store.Get(r, m.name) // a bad cookie yields a fresh session
	s.Values[keyUserID] = rec.ID
	s.Values[keyEmail] = rec.Email
	delete(s.Values, keyBanner)
	return s.Save(r, w)
}

// SetBanner stores msg as the sign-in form banner.  An empty msg clears it,
// and nothing is written when the stored value already matches.
func (m *Manager) SetBanner(w http.ResponseWriter, r *http.Request, msg string) error {
	s, _ := m.store.Get(r, m.name)
	if cur, _ := s.Values[keyBanner].(string); cur == msg {
		return nil
	}
	if msg == "" {
		delete(s.Values, keyBanner)
	} else {
		s.Values[keyBanner] = msg
	}
	return s.Save(r, w)
}

// Banner returns the stored sign-in form banner, or "".
func (m *Manager) Banner(r *http.Request) string {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return ""
	}
	msg, _ := s.Values[keyBanner].(string)
	return msg
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, m.name)
	s.Values = map[any]any{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// Current returns the signed-in user id and email.
//
// ok == false when the cookie is missing, empty, or fails verification.
func (m *Manager) Current(r *http.Request) (id uint64, email string, ok bool) {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return 0, "", false
	}
	id, ok = s.Values[keyUserID].(uint64)
	if !ok {
		return 0, "", false
	}
	email, _ = s.Values[keyEmail].(string)
	return id, email, true
}

// Middleware attaches the signed-in user id to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, email, ok := m.Current(r); ok {
			ctx := auth.WithUser(r.Context(), id)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", id, "user_email", email))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
