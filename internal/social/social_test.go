package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"

	"github.com/yanizio/adept-signin/internal/config"
	"github.com/yanizio/adept-signin/internal/user"
)

type fakeFinder struct {
	users map[string]*user.Record
	err   error
}

func (f *fakeFinder) FindByEmail(_ context.Context, email string) (*user.Record, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	rec, ok := f.users[email]
	return rec, ok, nil
}

func completer(u goth.User, err error) Completer {
	return func(http.ResponseWriter, *http.Request) (goth.User, error) { return u, err }
}

func complete(t *testing.T, s *Service, provider string) (bool, string, uint64, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, CallbackPath(provider)+"?state=x&code=y", nil)
	res, err := s.Complete(httptest.NewRecorder(), req, provider)
	var id uint64
	if res.User != nil {
		id = res.User.ID
	}
	return res.Failed, res.Message, id, err
}

func TestComplete(t *testing.T) {
	finder := &fakeFinder{users: map[string]*user.Record{
		"ada@example.com": {ID: 7, Email: "ada@example.com"},
	}}

	cases := []struct {
		name    string
		gu      goth.User
		gerr    error
		failed  bool
		msg     string
		id      uint64
		wantErr bool
	}{
		{name: "linked account", gu: goth.User{Email: "ada@example.com"}, id: 7},
		{name: "unknown email", gu: goth.User{Email: "bob@example.com"}, failed: true, msg: MsgNoAccount},
		{name: "no email", gu: goth.User{NickName: "ada"}, failed: true, msg: MsgNoEmail},
		{name: "handshake error", gerr: errors.New("state mismatch"), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(finder, []string{"github"}, WithCompleter(completer(tc.gu, tc.gerr)))
			failed, msg, id, err := complete(t, s, "github")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if failed != tc.failed || msg != tc.msg || id != tc.id {
				t.Fatalf("got failed=%v msg=%q id=%d", failed, msg, id)
			}
		})
	}
}

func TestComplete_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	s := New(&fakeFinder{err: boom}, []string{"google"}, WithCompleter(completer(goth.User{Email: "a@b.com"}, nil)))
	if _, _, _, err := complete(t, s, "google"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestUnknownProvider(t *testing.T) {
	s := New(&fakeFinder{}, []string{"github"}, WithCompleter(completer(goth.User{}, nil)))

	if _, _, _, err := complete(t, s, "facebook"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Complete err = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/facebook", nil)
	if err := s.Begin(httptest.NewRecorder(), req, "facebook"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Begin err = %v", err)
	}
}

func TestProviders(t *testing.T) {
	got := New(&fakeFinder{}, []string{"github", "google"}).Providers()
	if len(got) != 2 || got[0] != (Provider{"github", "GitHub", "/auth/github"}) || got[1].Label != "Google" {
		t.Fatalf("Providers = %+v", got)
	}
}

func TestSetup(t *testing.T) {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	s, err := Setup(config.Social{}, store, &fakeFinder{})
	if s != nil || err != nil {
		t.Fatalf("unconfigured Setup = %v, %v", s, err)
	}

	gh := config.OAuthApp{ClientID: "id", ClientSecret: "secret"}
	if _, err := Setup(config.Social{GitHub: gh}, store, &fakeFinder{}); err == nil {
		t.Fatal("expected error without callback_base")
	}

	s, err = Setup(config.Social{CallbackBase: "https://signin.example.com/", GitHub: gh}, store, &fakeFinder{})
	if err != nil {
		t.Fatal(err)
	}
	if ps := s.Providers(); len(ps) != 1 || ps[0].Name != "github" {
		t.Fatalf("Providers = %+v", ps)
	}
	if _, err := goth.GetProvider("github"); err != nil {
		t.Fatalf("github not registered with goth: %v", err)
	}
}
