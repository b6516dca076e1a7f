// internal/social/social.go
//
// Sign-in through external identity providers.
//
// Context
// -------
// GitHub and Google sign-in run through goth.  A provider is registered
// only when its client id and secret are configured.  The callback maps the
// provider identity onto an existing account by email.  Accounts are never
// created here, so an unknown email is a signaled failure that the sign-in
// page shows in the same banner as a wrong password.
//
// Workflow
// --------
//   GET /auth/{provider}            → Begin     → provider consent page
//   GET /auth/{provider}/callback   → Complete  → auth.Result
//
// Notes
// -----
// • gothic keeps the OAuth state in its own cookie on the store passed to
//   Setup, so the handshake inherits the session cookie's flags.
// • Oxford commas, two spaces after periods.

package social

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/config"
	"github.com/yanizio/adept-signin/internal/user"
)

// Banner texts for signaled failures.
const (
	MsgNoAccount      = "No account uses the email address from that provider."
	MsgNoEmail        = "That provider did not share an email address."
	MsgProviderFailed = "Could not sign in with that provider.  Please try again."
)

// ErrUnknownProvider is returned for provider names that are not enabled.
var ErrUnknownProvider = errors.New("social: unknown provider")

// labels maps provider keys to button text.
var labels = map[string]string{
	"github": "GitHub",
	"google": "Google",
}

// Completer finishes the OAuth handshake for the provider carried in r.
type Completer func(w http.ResponseWriter, r *http.Request) (goth.User, error)

// Option configures a Service.
type Option func(*Service)

// WithCompleter replaces gothic.CompleteUserAuth.
func WithCompleter(c Completer) Option { return func(s *Service) { s.complete = c } }

// Service runs the provider handshake and resolves the signed-in account.
type Service struct {
	users     user.Finder
	providers []string
	begin     func(http.ResponseWriter, *http.Request)
	complete  Completer
}

// Provider is one enabled sign-in button.
type Provider struct {
	Name  string
	Label string
	URL   string
}

// Setup registers the configured providers with goth and returns a Service.
// It returns nil, nil when no provider is configured.
func Setup(cfg config.Social, store sessions.Store, users user.Finder) (*Service, error) {
	var (
		ps    []goth.Provider
		names []string
	)
	base := strings.TrimRight(cfg.CallbackBase, "/")

	if cfg.GitHub.Enabled() {
		ps = append(ps, github.New(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, base+CallbackPath("github"), "user:email"))
		names = append(names, "github")
	}
	if cfg.Google.Enabled() {
		ps = append(ps, google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, base+CallbackPath("google"), "email", "profile"))
		names = append(names, "google")
	}
	if len(ps) == 0 {
		return nil, nil
	}
	if base == "" {
		return nil, errors.New("social: callback_base is required when a provider is configured")
	}

	gothic.Store = store
	goth.UseProviders(ps...)
	return New(users, names), nil
}

// New builds a Service for the named providers.  Setup must have
// registered them with goth unless a Completer is injected.
func New(users user.Finder, providers []string, opts ...Option) *Service {
	s := &Service{
		users:     users,
		providers: append([]string(nil), providers...),
		begin:     gothic.BeginAuthHandler,
		complete:  gothic.CompleteUserAuth,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CallbackPath returns the callback route for provider.
func CallbackPath(provider string) string { return "/auth/" + provider + "/callback" }

// Providers lists the enabled buttons in registration order.
func (s *Service) Providers() []Provider {
	out := make([]Provider, 0, len(s.providers))
	for _, name := range s.providers {
		label := labels[name]
		if label == "" {
			label = name
		}
		out = append(out, Provider{Name: name, Label: label, URL: "/auth/" + name})
	}
	return out
}

func (s *Service) enabled(name string) bool {
	for _, p := range s.providers {
		if p == name {
			return true
		}
	}
	return false
}

// Begin redirects to the provider's consent page.
func (s *Service) Begin(w http.ResponseWriter, r *http.Request, provider string) error {
	if !s.enabled(provider) {
		return ErrUnknownProvider
	}
	s.begin(w, gothic.GetContextWithProvider(r, provider))
	return nil
}

// Complete finishes the handshake and looks the account up by the email the
// provider returned.  Provider and store failures come back as errors;
// missing accounts and missing emails are signaled failures.
func (s *Service) Complete(w http.ResponseWriter, r *http.Request, provider string) (auth.Result, error) {
	if !s.enabled(provider) {
		return auth.Result{}, ErrUnknownProvider
	}

	gu, err := s.complete(w, gothic.GetContextWithProvider(r, provider))
	if err != nil {
		return auth.Result{}, fmt.Errorf("social %s: %w", provider, err)
	}
	email := strings.TrimSpace(gu.Email)
	if email == "" {
		return auth.Result{Failed: true, Message: MsgNoEmail}, nil
	}

	rec, ok, err := s.users.FindByEmail(r.Context(), email)
	if err != nil {
		return auth.Result{}, fmt.Errorf("social %s: %w", provider, err)
	}
	if !ok {
		return auth.Result{Failed: true, Message: MsgNoAccount}, nil
	}
	return auth.Result{User: rec}, nil
}
