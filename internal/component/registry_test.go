package component

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fake struct {
	name    string
	initErr error
	got     *Deps
}

func (f *fake) Name() string { return f.name }

func (f *fake) Routes(r chi.Router) {
	r.Get("/"+f.name, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func (f *fake) Init(d Deps) error {
	f.got = &d
	return f.initErr
}

func TestMount_InitThenRoutes(t *testing.T) {
	a, b := &fake{name: "a"}, &fake{name: "b"}
	r := chi.NewRouter()
	deps := Deps{Log: zap.NewNop().Sugar()}

	if err := mount(r, deps, []Component{a, b}); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if a.got == nil || b.got == nil {
		t.Fatal("Init not called")
	}

	for _, p := range []string{"/a", "/b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s = %d", p, rr.Code)
		}
	}
}

func TestMount_InitError(t *testing.T) {
	boom := errors.New("boom")
	err := mount(chi.NewRouter(), Deps{}, []Component{&fake{name: "x", initErr: boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterAndAllSorted(t *testing.T) {
	Register(&fake{name: "zz-test"})
	Register(&fake{name: "aa-test"})

	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Name() > all[i].Name() {
			t.Fatalf("not sorted: %s > %s", all[i-1].Name(), all[i].Name())
		}
	}
}
