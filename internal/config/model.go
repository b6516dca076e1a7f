// internal/config/model.go
//
// Typed configuration model for the sign-in service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADEPT_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault references, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import (
	"fmt"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	// TrustProxy honours X-Forwarded-For and X-Real-IP.  Enable only
	// behind a proxy that overwrites them.
	TrustProxy bool `koanf:"trust_proxy"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host,
// port, or flags without touching Vault.  It carries exactly one `%s`
// verb where the password goes.  The *secret* (`Password`) is usually a
// `vault:` reference injected at runtime.
type Database struct {
	DSN          string `koanf:"dsn"            validate:"required,dsn_template"`
	Password     string `koanf:"password"       validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
	Migrate      bool   `koanf:"migrate"`
}

// ResolvedDSN substitutes the password into the DSN template.
func (d Database) ResolvedDSN() string {
	return fmt.Sprintf(d.DSN, d.Password)
}

//
// Session section
//

// Session configures the signed login cookie.
type Session struct {
	Name    string `koanf:"name"     validate:"required"`
	Secret  string `koanf:"secret"   validate:"required,min=32"`
	MaxAge  int    `koanf:"max_age"  validate:"gte=0"` // seconds, 0 = browser session
	Landing string `koanf:"landing"  validate:"required,startswith=/"`
}

//
// Login section
//

// Login tunes the credential form behaviour.
type Login struct {
	// GenericFailureMessage is shown when the authentication call itself
	// errors.  Empty keeps the banner hidden, which matches the original
	// product behaviour.
	GenericFailureMessage string        `koanf:"generic_failure_message"`
	AttemptsPerMinute     float64       `koanf:"attempts_per_minute" validate:"gt=0"`
	Burst                 int           `koanf:"burst"               validate:"gt=0"`
	LimiterIdle           time.Duration `koanf:"limiter_idle"`

	// MinFill and FormMaxAge bound the time between rendering the form
	// and posting it.  A zero MinFill disables the "too fast" check.
	MinFill    time.Duration `koanf:"min_fill"     validate:"gte=0"`
	FormMaxAge time.Duration `koanf:"form_max_age" validate:"gt=0"`
}

//
// Social sign-in section
//

// OAuthApp holds one provider's client registration.  Either value may be a
// `vault:` reference.
type OAuthApp struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// Enabled reports whether both halves of the registration are present.
func (a OAuthApp) Enabled() bool { return a.ClientID != "" && a.ClientSecret != "" }

// Social configures GitHub and Google sign-in.  A provider without a client
// id and secret is left out; with none configured the buttons disappear.
type Social struct {
	// CallbackBase is the public origin the providers redirect back to,
	// e.g. https://signin.example.com.
	CallbackBase string   `koanf:"callback_base" validate:"omitempty,url"`
	GitHub       OAuthApp `koanf:"github"`
	Google       OAuthApp `koanf:"google"`
}

//
// Log and request-info sections
//

// Log selects the minimum zap level.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // ADEPT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Session  Session  `koanf:"session"`
	Login    Login    `koanf:"login"`
	Social   Social   `koanf:"social"`
	Log      Log      `koanf:"log"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"`
}
