// cmd/web/main.go
//
// Sign-in service – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Bootstrap console logger so early failures are visible.
//
//  2. Connect to Vault when VAULT_ADDR is set; config values prefixed
//     `vault:` are resolved through it.
//
//  3. Load config (defaults → conf/global.yaml → ADEPT_ env), then switch
//     to the daily rotating file logger at the configured level.
//
//  4. Open the user database and, with -migrate or database.migrate,
//     apply embedded schema migrations.
//
//  5. Build the authenticator, session manager, view engine, the per-IP
//     login limiter, and any configured GitHub/Google sign-in, then mount
//     every registered component.
//
//  6. Serve until SIGINT/SIGTERM, then drain within the shutdown grace.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	authn "github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/component"
	"github.com/yanizio/adept-signin/internal/config"
	"github.com/yanizio/adept-signin/internal/database"
	"github.com/yanizio/adept-signin/internal/form"
	"github.com/yanizio/adept-signin/internal/logger"
	"github.com/yanizio/adept-signin/internal/middleware"
	"github.com/yanizio/adept-signin/internal/requestinfo"
	"github.com/yanizio/adept-signin/internal/server"
	"github.com/yanizio/adept-signin/internal/session"
	"github.com/yanizio/adept-signin/internal/social"
	"github.com/yanizio/adept-signin/internal/user"
	"github.com/yanizio/adept-signin/internal/vault"
	"github.com/yanizio/adept-signin/internal/view"

	_ "github.com/yanizio/adept-signin/components/auth" // sign-in pages
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	migrateFlag := flag.Bool("migrate", false, "apply database migrations before serving")
	devFlag := flag.Bool("dev", false, "re-parse templates on every request")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrateFlag, *devFlag); err != nil {
		zap.S().Errorw("fatal", "err", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, migrateNow, dev bool) error {
	boot := logger.Bootstrap()

	//
	// ── 1.  Secrets and config ──────────────────────────────────────────
	//
	var resolve config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, boot.Infof)
		if err != nil {
			return err
		}
		resolve = vc.Resolve
	}

	cfg, err := config.Load(ctx, resolve)
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.Log.Level)
	if err != nil {
		log.Printf("file logger unavailable, staying on console: %v", err)
		lg = boot
	}
	defer func() { _ = lg.Sync() }()

	form.MinFill = cfg.Login.MinFill
	form.MaxAge = cfg.Login.FormMaxAge
	if !form.SetSecret([]byte(cfg.Session.Secret)) {
		lg.Warnw("session secret too short for csrf, using ephemeral key")
	}
	if err := form.RegisterDir(cfg.Paths.Root); err != nil {
		return err
	}

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	dsn := cfg.Database.ResolvedDSN()
	opts := database.DefaultOptions()
	if cfg.Database.MaxOpenConns > 0 {
		opts.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		opts.MaxIdleConns = cfg.Database.MaxIdleConns
	}

	lg.Infow("connecting to user database")
	db, err := database.OpenWithOptions(ctx, dsn, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateNow || cfg.Database.Migrate {
		if err := database.Migrate(dsn); err != nil {
			return err
		}
		lg.Infow("migrations applied")
	}

	//
	// ── 3.  Request-info enrichment ─────────────────────────────────────
	//
	enricher := &requestinfo.Enricher{TrustProxy: cfg.HTTP.TrustProxy}
	if cfg.Geo.DBPath != "" {
		geo, err := requestinfo.OpenGeo(cfg.Geo.DBPath)
		if err != nil {
			lg.Warnw("geolocation disabled", "err", err)
		} else {
			enricher.Geo = geo
			defer geo.Close()
		}
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	policy := view.CacheDefault
	if dev {
		policy = view.CacheSkip
	}
	sessions := session.NewManager(cfg.Session.Name, []byte(cfg.Session.Secret), cfg.Session.MaxAge, cfg.HTTP.ForceHTTPS)
	limiter := middleware.NewRateLimiter(cfg.Login.AttemptsPerMinute, cfg.Login.Burst, cfg.Login.LimiterIdle)

	users := user.NewRepository(db)
	oauth, err := social.Setup(cfg.Social, sessions.Store(), users)
	if err != nil {
		return err
	}
	if oauth != nil {
		lg.Infow("social sign-in enabled", "providers", len(oauth.Providers()))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(lg))
	r.Use(chimw.Recoverer)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS(cfg.HTTP.TrustProxy))
	}
	r.Use(middleware.Security)
	r.Use(enricher.Handler)
	r.Use(sessions.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(db))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	deps := component.Deps{
		Config:     cfg,
		Auth:       authn.NewPasswordAuthenticator(users),
		Sessions:   sessions,
		View:       view.NewEngine(cfg.Paths.Root, policy),
		Social:     oauth,
		Log:        lg,
		LoginGuard: limiter.Handler,
	}
	if err := component.MountAll(r, deps); err != nil {
		return err
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, r), lg)
}

// healthz reports 200 when the database answers a ping.
func healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.FromContext(r.Context()).Warnw("health check failed", "err", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}
