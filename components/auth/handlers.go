package auth

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authn "github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/form"
	"github.com/yanizio/adept-signin/internal/logger"
	"github.com/yanizio/adept-signin/internal/login"
	"github.com/yanizio/adept-signin/internal/metrics"
	"github.com/yanizio/adept-signin/internal/requestinfo"
	"github.com/yanizio/adept-signin/internal/social"
)

// loginPage feeds templates/login.html.
type loginPage struct {
	Title     string
	Action    string
	Submit    string
	Form      template.HTML
	State     login.State
	Notice    string // form-level problem such as an expired token
	Providers []social.Provider
}

// accountPage feeds templates/account.html.
type accountPage struct {
	Title string
	Email string
	CSRF  string
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := c.sessions.Current(r); ok {
		http.Redirect(w, r, c.landing, http.StatusSeeOther)
		return
	}

	// A fresh page starts from zero state, so drop any stored banner.
	if err := c.sessions.SetBanner(w, r, ""); err != nil {
		c.logFor(r).Warnw("clear login banner failed", "err", err)
	}
	c.renderLogin(w, r, http.StatusOK, login.New(c.authn).State(), form.RenderOptions{}, "")
}

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := c.logFor(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var (
		reloaded  bool
		reloadErr error
	)
	ctrl := login.New(c.authn,
		login.WithShowPassword(r.PostForm.Get("show_password") == "true"),
		login.WithErrorMessage(c.sessions.Banner(r)),
		login.WithGenericFailureMessage(c.genericFailure),
		login.WithReloader(login.ReloadFunc(func(_ context.Context, res authn.Result) {
			if reloadErr = c.sessions.Login(w, r, res.User); reloadErr != nil {
				return
			}
			http.Redirect(w, r, c.landing, http.StatusSeeOther)
			reloaded = true
		})),
	)

	clean, err := form.HandleSubmit(FormID, r)
	if err != nil {
		ve, ok := form.AsValidationError(err)
		if !ok {
			c.serverError(w, r, err)
			return
		}
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		notice, _ := ve.FormLevel()
		log.Infow("login form rejected", "err", ve)
		c.renderLogin(w, r, http.StatusUnprocessableEntity, ctrl.State(),
			form.RenderOptions{Prefill: emailOnly(r), Errors: form.ErrorMap(ve.Fields)}, notice)
		return
	}

	creds := authn.Credentials{
		Email:    form.String(clean, "email"),
		Password: form.String(clean, "password"),
	}
	outcome := ctrl.Submit(ctx, creds)
	log.Infow("login attempt", "email", creds.Email, "outcome", outcome, "phase", ctrl.State().Phase())

	switch {
	case reloadErr != nil:
		c.serverError(w, r, reloadErr)
		return
	case reloaded:
		return
	}

	st := ctrl.State()
	if err := c.sessions.SetBanner(w, r, st.ErrorMessage); err != nil {
		log.Warnw("store login banner failed", "err", err)
	}

	status, fieldErrs := http.StatusOK, map[string]string(nil)
	switch outcome {
	case login.OutcomeInvalid:
		status, fieldErrs = http.StatusUnprocessableEntity, schemaErrors(creds)
	case login.OutcomeRejected:
		status = http.StatusUnauthorized
	case login.OutcomeError:
		status = http.StatusInternalServerError
	}
	c.renderLogin(w, r, status, st, form.RenderOptions{Prefill: emailOnly(r), Errors: fieldErrs}, "")
}

// handleVisibility flips ShowPassword and re-renders with the typed values,
// password included, under the original render stamp.  The authenticator
// is never called.
func (c *Component) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ctrl := login.New(c.authn,
		login.WithShowPassword(r.PostForm.Get("show_password") == "true"),
		login.WithErrorMessage(c.sessions.Banner(r)),
	)
	ctrl.ToggleVisibility()

	c.renderLogin(w, r, http.StatusOK, ctrl.State(), form.RenderOptions{
		Prefill:      form.Prefill(r),
		KeepPassword: true,
		RenderedAt:   form.RenderedAt(r),
	}, "")
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !form.VerifyToken(r.PostForm.Get("csrf_token")) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := c.sessions.Logout(w, r); err != nil {
		c.serverError(w, r, err)
		return
	}
	c.logFor(r).Infow("logout")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (c *Component) handleAccount(w http.ResponseWriter, r *http.Request) {
	_, email, ok := c.sessions.Current(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	tok, err := form.GenerateToken()
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	page := accountPage{Title: "Your account", Email: email, CSRF: tok}
	if err := c.view.Render(w, http.StatusOK, c.Name(), "account", page); err != nil {
		c.serverError(w, r, err)
	}
}

// handleScript serves the busy-state script for the sign-in button.
func (c *Component) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFileFS(w, r, assets, "static/login.js")
}

/*──────────────────────────── Social sign-in ───────────────────────────────*/

func (c *Component) handleSocialBegin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if err := c.social.Begin(w, r, provider); err != nil {
		http.NotFound(w, r)
	}
}

// handleSocialCallback signs in the account matching the provider's email.
// Failures re-render the sign-in page with a banner, as a rejected
// password would.
func (c *Component) handleSocialCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	log := c.logFor(r).With("provider", provider)

	res, err := c.social.Complete(w, r, provider)
	switch {
	case errors.Is(err, social.ErrUnknownProvider):
		http.NotFound(w, r)
		return
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		log.Warnw("social sign-in failed", "err", err)
		c.socialFailure(w, r, http.StatusBadGateway, social.MsgProviderFailed)
		return
	case res.Failed:
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		log.Infow("social sign-in rejected", "reason", res.Message)
		c.socialFailure(w, r, http.StatusUnauthorized, res.Message)
		return
	}

	if err := c.sessions.Login(w, r, res.User); err != nil {
		c.serverError(w, r, err)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Infow("social sign-in", "email", res.User.Email)
	http.Redirect(w, r, c.landing, http.StatusSeeOther)
}

func (c *Component) socialFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if err := c.sessions.SetBanner(w, r, msg); err != nil {
		c.logFor(r).Warnw("store login banner failed", "err", err)
	}
	st := login.New(c.authn, login.WithErrorMessage(msg)).State()
	c.renderLogin(w, r, status, st, form.RenderOptions{}, "")
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// renderLogin draws the sign-in page for state st.  opts supplies prefill,
// errors, and stamp handling; visibility always follows st.
func (c *Component) renderLogin(w http.ResponseWriter, r *http.Request, status int, st login.State,
	opts form.RenderOptions, notice string) {

	d, ok := form.Get(FormID)
	if !ok {
		c.serverError(w, r, errors.New("auth: sign-in form not registered"))
		return
	}

	opts.Reveal = st.ShowPassword
	markup, err := form.RenderForm(FormID, opts)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	page := loginPage{
		Title:  d.Title,
		Action: d.Action,
		Submit: d.Submit,
		Form:   markup,
		State:  st,
		Notice: notice,
	}
	if c.social != nil {
		page.Providers = c.social.Providers()
	}
	if err := c.view.Render(w, status, c.Name(), "login", page); err != nil {
		c.serverError(w, r, err)
	}
}

// emailOnly prefills a re-rendered form after a submit.  The password is
// never echoed back once it has been sent for authentication.
func emailOnly(r *http.Request) map[string]string {
	p := form.Prefill(r)
	delete(p, "password")
	return p
}

// schemaErrors maps a credential schema failure onto the form's messages.
func schemaErrors(creds authn.Credentials) map[string]string {
	var fe authn.FieldError
	if !errors.As(creds.Validate(), &fe) {
		return nil
	}
	msg := "Invalid input."
	if fe.Rule == "max" {
		return map[string]string{fe.Field: "That is too long."}
	}
	if d, ok := form.Get(FormID); ok {
		for _, f := range d.Fields {
			if f.Name == fe.Field && f.ErrorMsg != "" {
				msg = f.ErrorMsg
			}
		}
	}
	return map[string]string{fe.Field: msg}
}

func (c *Component) serverError(w http.ResponseWriter, r *http.Request, err error) {
	c.logFor(r).Errorw("auth handler failed", "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// logFor returns the request logger enriched with client details.
func (c *Component) logFor(r *http.Request) *zap.SugaredLogger {
	ctx := r.Context()
	return logger.FromContext(ctx).With(requestinfo.FromContext(ctx).LogFields()...)
}
