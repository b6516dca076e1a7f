// internal/login/controller.go
//
// Credential form controller.
//
// Context
// -------
// A Controller owns the State of one rendered sign-in form and is the only
// code that mutates it.  The HTTP component creates one per request, which
// plays the role of a mounted view: state starts at its zero value and is
// discarded with the request.
//
// Workflow
// --------
//   Idle ──Submit──▶ Submitting ──▶ Idle            (success, view reloads)
//                               └─▶ Idle + banner   (signaled failure)
//                               └─▶ Idle            (thrown failure, logged)
//
//   •  Submit refuses input that fails the credential schema before any
//      transition happens.
//   •  IsLoading is cleared by a deferred finalizer on every exit path,
//      panics included.
//   •  The Reloader runs only on success and only after state has settled,
//      so a failure banner is never raced by a reload.
//   •  A thrown failure leaves the banner hidden unless a generic message
//      was configured with WithGenericFailureMessage.
//
// Notes
// -----
// • State is mutex-guarded.  Overlapping Submit calls on one Controller are
//   memory-safe but not serialised.
// • Oxford commas, two spaces after periods.

package login

import (
	"context"
	"sync"

	"github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/logger"
	"github.com/yanizio/adept-signin/internal/metrics"
)

// Outcome classifies a Submit call.  Values double as metric labels.
type Outcome string

const (
	OutcomeSuccess  Outcome = metrics.OutcomeSuccess
	OutcomeRejected Outcome = metrics.OutcomeRejected
	OutcomeError    Outcome = metrics.OutcomeError
	OutcomeInvalid  Outcome = metrics.OutcomeInvalid
)

// Reloader refreshes the hosting view after a successful sign-in.
type Reloader interface {
	Reload(ctx context.Context, res auth.Result)
}

// ReloadFunc adapts a plain function to Reloader.
type ReloadFunc func(ctx context.Context, res auth.Result)

// Reload implements Reloader.
func (f ReloadFunc) Reload(ctx context.Context, res auth.Result) { f(ctx, res) }

// Option configures a Controller.
type Option func(*Controller)

// WithReloader sets the success hook.
func WithReloader(r Reloader) Option { return func(c *Controller) { c.reload = r } }

// WithGenericFailureMessage sets the banner text for thrown failures.
func WithGenericFailureMessage(msg string) Option {
	return func(c *Controller) { c.genericFailure = msg }
}

// WithShowPassword restores the visibility toggle carried by the form.
func WithShowPassword(show bool) Option {
	return func(c *Controller) { c.state.ShowPassword = show }
}

// WithErrorMessage restores a banner the page was already showing.
func WithErrorMessage(msg string) Option {
	return func(c *Controller) { c.state.ErrorMessage = msg }
}

// Controller drives one sign-in form.
type Controller struct {
	authn          auth.Authenticator
	reload         Reloader
	genericFailure string

	mu    sync.Mutex
	state State
}

// New builds a Controller around an injected Authenticator.
func New(a auth.Authenticator, opts ...Option) *Controller {
	c := &Controller{authn: a}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot of the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ToggleVisibility flips ShowPassword and returns the new value.
func (c *Controller) ToggleVisibility() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowPassword = !c.state.ShowPassword
	return c.state.ShowPassword
}

// Submit authenticates creds and updates State.  It never returns an
// error: failures are reflected in State and the Outcome.
func (c *Controller) Submit(ctx context.Context, creds auth.Credentials) Outcome {
	if err := creds.Validate(); err != nil {
		logger.FromContext(ctx).Debugw("login blocked by schema", "err", err)
		metrics.LoginAttemptsTotal.WithLabelValues(string(OutcomeInvalid)).Inc()
		return OutcomeInvalid
	}

	res, outcome := c.submit(ctx, creds)
	metrics.LoginAttemptsTotal.WithLabelValues(string(outcome)).Inc()

	if outcome == OutcomeSuccess && c.reload != nil {
		c.reload.Reload(ctx, res)
	}
	return outcome
}

// submit brackets the authentication call with begin/finish.
func (c *Controller) submit(ctx context.Context, creds auth.Credentials) (auth.Result, Outcome) {
	c.begin()
	defer c.finish()

	res, err := c.authn.Authenticate(ctx, creds)
	switch {
	case err != nil:
		logger.FromContext(ctx).Errorw("login action failed",
			"email", creds.Email, "err", err)
		c.fail(c.genericFailure)
		return auth.Result{}, OutcomeError
	case res.Failed:
		c.fail(res.Message)
		return res, OutcomeRejected
	}
	return res, OutcomeSuccess
}

/*──────────────────────────── transitions ──────────────────────────────────*/

// begin enters Submitting and clears any stale banner.
func (c *Controller) begin() {
	c.mu.Lock()
	c.state.IsLoading = true
	c.state.ErrorMessage = ""
	c.mu.Unlock()
	metrics.LoginInFlight.Inc()
}

// fail records the banner text.  An empty msg keeps the banner hidden.
func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.state.ErrorMessage = msg
	c.mu.Unlock()
}

// finish returns to Idle.
func (c *Controller) finish() {
	c.mu.Lock()
	c.state.IsLoading = false
	c.mu.Unlock()
	metrics.LoginInFlight.Dec()
}
