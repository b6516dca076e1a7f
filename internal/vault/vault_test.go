package vault

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeKV struct {
	calls int
	data  map[string]any
	err   error
	mount string
	rel   string
}

func (f *fakeKV) ReadKV(_ context.Context, mount, rel string) (map[string]any, error) {
	f.calls++
	f.mount, f.rel = mount, rel
	return f.data, f.err
}

func TestResolve_CachesWithinTTL(t *testing.T) {
	kv := &fakeKV{data: map[string]any{"db_password": "pw"}}
	c := newClient(kv, nil)

	for i := 0; i < 3; i++ {
		got, err := c.Resolve(context.Background(), "secret/signin#db_password")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got != "pw" {
			t.Fatalf("got %q", got)
		}
	}
	if kv.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", kv.calls)
	}
	if kv.mount != "secret" || kv.rel != "signin" {
		t.Fatalf("mount/rel = %q/%q", kv.mount, kv.rel)
	}
}

func TestGetKV_NoCacheWhenTTLZero(t *testing.T) {
	kv := &fakeKV{data: map[string]any{"k": "v"}}
	c := newClient(kv, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.GetKV(context.Background(), "secret/app", "k", 0); err != nil {
			t.Fatal(err)
		}
	}
	if kv.calls != 2 {
		t.Fatalf("backend calls = %d, want 2", kv.calls)
	}
}

func TestResolve_Errors(t *testing.T) {
	c := newClient(&fakeKV{data: map[string]any{"n": 42}}, nil)

	if _, err := c.Resolve(context.Background(), "secret/app"); !errors.Is(err, ErrBadRef) {
		t.Fatalf("err = %v, want ErrBadRef", err)
	}
	if _, err := c.Resolve(context.Background(), "secret/app#missing"); err == nil {
		t.Fatal("expected missing-key error")
	}
	if _, err := c.GetKV(context.Background(), "secret/app", "n", time.Minute); err == nil {
		t.Fatal("expected non-string error")
	}

	boom := errors.New("sealed")
	c = newClient(&fakeKV{err: boom}, nil)
	if _, err := c.Resolve(context.Background(), "secret/app#k"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped sealed", err)
	}
}
