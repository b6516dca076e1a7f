// internal/component/deps.go
package component

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/config"
	"github.com/yanizio/adept-signin/internal/session"
	"github.com/yanizio/adept-signin/internal/social"
	"github.com/yanizio/adept-signin/internal/view"
)

// Deps exposes shared resources to Components during Init.
type Deps struct {
	Config   *config.Config
	Auth     auth.Authenticator
	Sessions *session.Manager
	View     *view.Engine
	Log      *zap.SugaredLogger

	// Social runs GitHub and Google sign-in.  Nil when no provider is
	// configured.
	Social *social.Service

	// LoginGuard wraps credential POSTs, typically a rate limiter.  Nil
	// leaves them unguarded.
	LoginGuard func(http.Handler) http.Handler
}
