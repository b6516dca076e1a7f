package auth

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth"

	authn "github.com/yanizio/adept-signin/internal/auth"
	"github.com/yanizio/adept-signin/internal/component"
	"github.com/yanizio/adept-signin/internal/config"
	"github.com/yanizio/adept-signin/internal/form"
	"github.com/yanizio/adept-signin/internal/session"
	"github.com/yanizio/adept-signin/internal/social"
	"github.com/yanizio/adept-signin/internal/user"
	"github.com/yanizio/adept-signin/internal/view"
)

func TestMain(m *testing.M) {
	form.MinFill = 0
	os.Exit(m.Run())
}

// fakeAuth returns a canned result and counts calls.
type fakeAuth struct {
	res   authn.Result
	err   error
	calls int
	got   authn.Credentials
}

func (f *fakeAuth) Authenticate(_ context.Context, c authn.Credentials) (authn.Result, error) {
	f.calls++
	f.got = c
	return f.res, f.err
}

func newRouter(t *testing.T, a authn.Authenticator, generic string, mods ...func(*component.Deps)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Session: config.Session{Landing: "/account"},
		Login:   config.Login{GenericFailureMessage: generic},
	}
	deps := component.Deps{
		Config:   cfg,
		Auth:     a,
		Sessions: session.NewManager("adept_session", []byte("0123456789abcdef0123456789abcdef"), 0, false),
		View:     view.NewEngine("", view.CacheDefault),
	}
	for _, m := range mods {
		m(&deps)
	}

	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatalf("Init: %v", err)
	}
	r := chi.NewRouter()
	c.Routes(r)
	return r
}

// loginBody builds a POST body that passes CSRF and timing checks.
func loginBody(t *testing.T, kv ...string) url.Values {
	t.Helper()
	tok, err := form.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}
	v := url.Values{
		"csrf_token": {tok},
		"render_ts":  {strconv.FormatInt(time.Now().Add(-3*time.Second).UnixMicro(), 10)},
	}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func post(h http.Handler, path string, body url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func banners(body string) int { return strings.Count(body, `role="alert"`) }

/*──────────────────────────── GET /login ───────────────────────────────────*/

func TestLoginPage_Initial(t *testing.T) {
	a := &fakeAuth{}
	rr := get(newRouter(t, a, ""), "/login")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`type="email"`,
		`type="password"`,
		`href="/reset-password"`,
		`href="/signup"`,
		`formaction="/login/visibility"`,
		`<span class="spinner" aria-hidden="true" hidden></span><span class="label">Sign in</span></button>`,
		`<script src="/assets/auth/login.js" defer></script>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
	if banners(body) != 0 {
		t.Error("banner on a fresh page")
	}
	if strings.Contains(body, `href="/auth/`) {
		t.Error("social buttons without configured providers")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("login page is cacheable")
	}
	if a.calls != 0 {
		t.Error("authenticator called on GET")
	}
}

/*──────────────────────────── POST /login ──────────────────────────────────*/

func TestSubmit_SignaledFailureShowsExactMessage(t *testing.T) {
	const msg = "That account is locked."
	a := &fakeAuth{res: authn.Result{Failed: true, Message: msg}}
	rr := post(newRouter(t, a, ""), "/login", loginBody(t, "email", "a@b.com", "password", "pw"))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if banners(body) != 1 || !strings.Contains(body, `role="alert">`+msg+`</div>`) {
		t.Fatalf("banner not exactly %q:\n%s", msg, body)
	}
	if a.got.Email != "a@b.com" || a.got.Password != "pw" {
		t.Fatalf("credentials = %+v", a.got)
	}
	if !strings.Contains(body, `value="a@b.com"`) || strings.Contains(body, `value="pw"`) {
		t.Fatal("prefill wrong: email must stay, password must not")
	}
	if strings.Contains(body, "aria-busy") {
		t.Fatal("still loading after the call")
	}
}

func TestSubmit_ThrownFailureShowsNoBanner(t *testing.T) {
	a := &fakeAuth{err: errors.New("db unreachable")}
	rr := post(newRouter(t, a, ""), "/login", loginBody(t, "email", "a@b.com", "password", "pw"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if banners(rr.Body.String()) != 0 {
		t.Fatal("thrown failure rendered a banner")
	}
	if strings.Contains(rr.Body.String(), "aria-busy") {
		t.Fatal("still loading after the call")
	}
}

func TestSubmit_ThrownFailureGenericMessage(t *testing.T) {
	a := &fakeAuth{err: errors.New("db unreachable")}
	rr := post(newRouter(t, a, "Something went wrong."), "/login", loginBody(t, "email", "a@b.com", "password", "pw"))

	if !strings.Contains(rr.Body.String(), `role="alert">Something went wrong.</div>`) {
		t.Fatal("generic failure message not shown")
	}
}

func TestSubmit_InvalidEmailBlocked(t *testing.T) {
	for _, email := range []string{"", "not-an-email"} {
		a := &fakeAuth{}
		rr := post(newRouter(t, a, ""), "/login", loginBody(t, "email", email, "password", "pw"))

		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%q: status = %d", email, rr.Code)
		}
		if a.calls != 0 {
			t.Fatalf("%q: authenticator called", email)
		}
		if !strings.Contains(rr.Body.String(), "Please enter a valid email address.") {
			t.Fatalf("%q: field error missing", email)
		}
	}
}

func TestSubmit_BadCSRF(t *testing.T) {
	a := &fakeAuth{}
	body := loginBody(t, "email", "a@b.com", "password", "pw")
	body.Set("csrf_token", "forged")

	rr := post(newRouter(t, a, ""), "/login", body)
	if rr.Code != http.StatusUnprocessableEntity || a.calls != 0 {
		t.Fatalf("status = %d, calls = %d", rr.Code, a.calls)
	}
	if !strings.Contains(rr.Body.String(), `role="status"`) {
		t.Fatal("form-level notice missing")
	}
}

func TestSubmit_SuccessSignsInAndReloads(t *testing.T) {
	a := &fakeAuth{res: authn.Result{User: &user.Record{ID: 9, Email: "a@b.com"}}}
	h := newRouter(t, a, "")

	rr := post(h, "/login", loginBody(t, "email", "a@b.com", "password", "pw"))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/account" {
		t.Fatalf("status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}
	cookies := rr.Result().Cookies()

	acct := get(h, "/account", cookies...)
	if acct.Code != http.StatusOK || !strings.Contains(acct.Body.String(), "a@b.com") {
		t.Fatalf("account = %d\n%s", acct.Code, acct.Body.String())
	}

	if again := get(h, "/login", cookies...); again.Code != http.StatusSeeOther {
		t.Fatalf("signed-in GET /login = %d", again.Code)
	}
}

/*──────────────────────────── Visibility ───────────────────────────────────*/

func TestToggleVisibility_FlipsInputType(t *testing.T) {
	a := &fakeAuth{}
	h := newRouter(t, a, "")

	rr := post(h, "/login/visibility", url.Values{
		"email": {"a@b.com"}, "password": {"typed"}, "show_password": {"false"},
	})
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, `name="password" type="text"`) {
		t.Fatalf("not revealed (%d):\n%s", rr.Code, body)
	}
	if !strings.Contains(body, `value="typed"`) || !strings.Contains(body, `name="show_password" value="true"`) {
		t.Fatal("typed password or toggle state lost")
	}

	rr = post(h, "/login/visibility", url.Values{"password": {"typed"}, "show_password": {"true"}})
	body = rr.Body.String()
	if !strings.Contains(body, `name="password" type="password"`) {
		t.Fatalf("not masked:\n%s", body)
	}
	if !strings.Contains(body, `value="typed"`) {
		t.Fatal("masking dropped the typed password")
	}

	if a.calls != 0 {
		t.Fatal("toggle called the authenticator")
	}
}

func TestToggleVisibility_KeepsBanner(t *testing.T) {
	a := &fakeAuth{res: authn.Result{Failed: true, Message: authn.MsgInvalidCredentials}}
	h := newRouter(t, a, "")

	rr := post(h, "/login", loginBody(t, "email", "a@b.com", "password", "pw"))
	cookies := rr.Result().Cookies()

	rr = post(h, "/login/visibility", url.Values{"show_password": {"false"}}, cookies...)
	if banners(rr.Body.String()) != 1 {
		t.Fatal("toggle dropped the banner")
	}

	// A fresh GET is a new view and starts clean.
	rr = get(h, "/login", cookies...)
	if banners(rr.Body.String()) != 0 {
		t.Fatal("banner survived a fresh page load")
	}
}

var (
	renderTSRe = regexp.MustCompile(`name="render_ts" value="(\d+)"`)
	csrfRe     = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)
)

func hidden(t *testing.T, re *regexp.Regexp, body string) string {
	t.Helper()
	m := re.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("%s not found in:\n%s", re, body)
	}
	return m[1]
}

func TestToggleVisibility_KeepsRenderStamp(t *testing.T) {
	form.MinFill = time.Second
	defer func() { form.MinFill = 0 }()

	a := &fakeAuth{res: authn.Result{Failed: true, Message: authn.MsgInvalidCredentials}}
	h := newRouter(t, a, "")

	first := strconv.FormatInt(time.Now().Add(-3*time.Second).UnixMicro(), 10)
	rr := post(h, "/login/visibility", url.Values{
		"email": {"a@b.com"}, "password": {"pw"}, "show_password": {"false"}, "render_ts": {first},
	})
	body := rr.Body.String()
	if got := hidden(t, renderTSRe, body); got != first {
		t.Fatalf("toggle restamped the form: %s, want %s", got, first)
	}

	// Submitting straight after the toggle is not "too quick".
	rr = post(h, "/login", url.Values{
		"csrf_token": {hidden(t, csrfRe, body)},
		"render_ts":  {hidden(t, renderTSRe, body)},
		"email":      {"a@b.com"},
		"password":   {"pw"},
	})
	if rr.Code != http.StatusUnauthorized || a.calls != 1 {
		t.Fatalf("status = %d, calls = %d\n%s", rr.Code, a.calls, rr.Body.String())
	}
}

/*──────────────────────────── Busy-state script ────────────────────────────*/

func TestScriptServed(t *testing.T) {
	rr := get(newRouter(t, &fakeAuth{}, ""), "/assets/auth/login.js")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"aria-busy"`) {
		t.Fatal("script does not set the busy state")
	}
}

/*──────────────────────────── Social sign-in ───────────────────────────────*/

type finder map[string]*user.Record

func (f finder) FindByEmail(_ context.Context, email string) (*user.Record, bool, error) {
	rec, ok := f[email]
	return rec, ok, nil
}

func withSocial(gu goth.User, err error) func(*component.Deps) {
	users := finder{"a@b.com": {ID: 9, Email: "a@b.com"}}
	return func(d *component.Deps) {
		d.Social = social.New(users, []string{"github", "google"}, social.WithCompleter(
			func(http.ResponseWriter, *http.Request) (goth.User, error) { return gu, err }))
	}
}

func TestSocial_ButtonsRendered(t *testing.T) {
	body := get(newRouter(t, &fakeAuth{}, "", withSocial(goth.User{}, nil)), "/login").Body.String()
	for _, want := range []string{`href="/auth/github">Sign in with GitHub`, `href="/auth/google">Sign in with Google`} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestSocial_CallbackSignsIn(t *testing.T) {
	h := newRouter(t, &fakeAuth{}, "", withSocial(goth.User{Email: "a@b.com", Provider: "github"}, nil))

	rr := get(h, "/auth/github/callback?state=s&code=c")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/account" {
		t.Fatalf("status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}
	acct := get(h, "/account", rr.Result().Cookies()...)
	if acct.Code != http.StatusOK || !strings.Contains(acct.Body.String(), "a@b.com") {
		t.Fatalf("account = %d", acct.Code)
	}
}

func TestSocial_CallbackFailures(t *testing.T) {
	cases := []struct {
		name   string
		gu     goth.User
		err    error
		status int
		msg    string
	}{
		{"unknown email", goth.User{Email: "x@y.com"}, nil, http.StatusUnauthorized, social.MsgNoAccount},
		{"provider error", goth.User{}, errors.New("state mismatch"), http.StatusBadGateway, social.MsgProviderFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(newRouter(t, &fakeAuth{}, "", withSocial(tc.gu, tc.err)), "/auth/google/callback")
			if rr.Code != tc.status {
				t.Fatalf("status = %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), `role="alert">`+template.HTMLEscapeString(tc.msg)+`</div>`) {
				t.Fatalf("banner %q missing:\n%s", tc.msg, rr.Body.String())
			}
		})
	}
}

func TestSocial_UnknownProvider(t *testing.T) {
	h := newRouter(t, &fakeAuth{}, "", withSocial(goth.User{}, nil))
	for _, path := range []string{"/auth/facebook", "/auth/facebook/callback"} {
		if rr := get(h, path); rr.Code != http.StatusNotFound {
			t.Errorf("%s = %d", path, rr.Code)
		}
	}
}

func TestSocial_RoutesAbsentWhenDisabled(t *testing.T) {
	if rr := get(newRouter(t, &fakeAuth{}, ""), "/auth/github"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

/*──────────────────────────── Logout ───────────────────────────────────────*/

func TestLogout(t *testing.T) {
	a := &fakeAuth{res: authn.Result{User: &user.Record{ID: 9, Email: "a@b.com"}}}
	h := newRouter(t, a, "")
	cookies := post(h, "/login", loginBody(t, "email", "a@b.com", "password", "pw")).Result().Cookies()

	if rr := post(h, "/logout", url.Values{"csrf_token": {"bad"}}, cookies...); rr.Code != http.StatusForbidden {
		t.Fatalf("logout without token = %d", rr.Code)
	}

	tok, _ := form.GenerateToken()
	rr := post(h, "/logout", url.Values{"csrf_token": {tok}}, cookies...)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	if acct := get(h, "/account", rr.Result().Cookies()...); acct.Code != http.StatusSeeOther {
		t.Fatalf("account after logout = %d", acct.Code)
	}
}

func TestInit_RequiresDeps(t *testing.T) {
	if err := (&Component{}).Init(component.Deps{}); err == nil {
		t.Fatal("expected error")
	}
}
