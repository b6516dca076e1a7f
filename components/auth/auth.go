// components/auth/auth.go
//
// Authentication component: sign-in, sign-out, and the account landing.
//
// Context
//   The sign-in page is a server-rendered form.  Every request builds a
//   fresh login.Controller, which stands in for a mounted view.  The two
//   pieces of view state that must outlive a request travel with the page:
//   ShowPassword in the hidden `show_password` input, and the error banner
//   in the signed session cookie.
//
// Routes
//   GET  /login             – render the form (fresh state).
//   POST /login             – validate, authenticate, redirect on success.
//   POST /login/visibility  – flip password visibility and re-render.
//   POST /logout            – clear the session.
//   GET  /account           – signed-in landing page.
//   GET  /auth/{provider}   – start GitHub/Google sign-in (when configured).
//   GET  /auth/{provider}/callback
//                           – finish it and sign in by email.
//   GET  /assets/auth/login.js
//                           – shows the busy state while a sign-in posts.
//
//------------------------------------------------------------------------------

package auth

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	authn "github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/component"
	"github.com/yanizio/adept-signin/internal/form"
	"github.com/yanizio/adept-signin/internal/middleware"
	"github.com/yanizio/adept-signin/internal/session"
	"github.com/yanizio/adept-signin/internal/social"
	"github.com/yanizio/adept-signin/internal/view"
)

// FormID names the sign-in form definition.
const FormID = "auth/login"

//go:embed forms/*.yaml templates/*.html static/*.js
var assets embed.FS

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component encapsulates the sign-in flow.
type Component struct {
	authn          authn.Authenticator
	sessions       *session.Manager
	view           *view.Engine
	social         *social.Service
	guard          func(http.Handler) http.Handler
	landing        string
	genericFailure string
}

// Register component and its form at program start.
func init() {
	if err := form.LoadFS(assets, "forms"); err != nil {
		panic(fmt.Sprintf("auth: load forms: %v", err))
	}
	component.Register(&Component{})
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init wires shared dependencies and mounts the embedded templates.
func (c *Component) Init(d component.Deps) error {
	switch {
	case d.Auth == nil:
		return errors.New("auth: no authenticator")
	case d.Sessions == nil:
		return errors.New("auth: no session manager")
	case d.View == nil:
		return errors.New("auth: no view engine")
	case d.Config == nil:
		return errors.New("auth: no config")
	}

	tpl, err := fs.Sub(assets, "templates")
	if err != nil {
		return err
	}
	d.View.Mount(c.Name(), tpl)

	c.authn = d.Auth
	c.sessions = d.Sessions
	c.view = d.View
	c.social = d.Social
	c.guard = d.LoginGuard
	c.landing = d.Config.Session.Landing
	c.genericFailure = d.Config.Login.GenericFailureMessage
	return nil
}

// Routes registers the component's pages on r.
func (c *Component) Routes(r chi.Router) {
	r.Get("/assets/auth/login.js", c.handleScript)

	r.Group(func(g chi.Router) {
		g.Use(middleware.NoStore)

		g.Get("/login", c.handleLoginGET)
		if c.guard != nil {
			g.With(c.guard).Post("/login", c.handleLoginPOST)
		} else {
			g.Post("/login", c.handleLoginPOST)
		}
		g.Post("/login/visibility", c.handleVisibility)
		g.Post("/logout", c.handleLogout)
		g.Get("/account", c.handleAccount)

		if c.social != nil {
			g.Get("/auth/{provider}", c.handleSocialBegin)
			g.Get("/auth/{provider}/callback", c.handleSocialCallback)
		}
	})
}
