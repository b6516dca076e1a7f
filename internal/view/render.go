// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Engine.Render         – write rendered HTML to an http.ResponseWriter.
//   - Engine.RenderToString – return template.HTML (fragments, e-mails).
//
// Lookup precedence (first hit wins):
//   1. <override>/components/<comp>/templates/<tpl>.html   (on disk)
//   2. the fs.FS the component mounted, usually embedded
//
// All templates in the same directory are parsed as one set so sub-templates
// ({{ template "layout" . }}) work out-of-the-box.
//
// execName() chooses the template to execute:
//   – If the set contains "<name>.html", we run that (file has no define).
//   – Else we fall back to "<name>" (root template defined via {{ define }}).
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
	"text/template/parse"

	"github.com/yanizio/adept-signin/internal/cache"
)

//
// cache definitions
//

// CachePolicy hints how the caller wants this template cached.
type CachePolicy int

const (
	CacheDefault CachePolicy = iota // cache parsed sets
	CacheSkip                       // always re-parse (dev, tests)
)

// DefaultCacheSize bounds the parsed-set LRU.
const DefaultCacheSize = 256

//
// Engine
//

// Engine resolves and executes component templates.
type Engine struct {
	override string
	policy   CachePolicy

	mu      sync.RWMutex
	sources map[string]fs.FS

	sets  *cache.LRU[string, *template.Template]
	funcs template.FuncMap
}

// NewEngine returns an Engine.  override may be empty to disable on-disk
// overrides.
func NewEngine(override string, policy CachePolicy) *Engine {
	return &Engine{
		override: override,
		policy:   policy,
		sources:  make(map[string]fs.FS),
		sets:     cache.New[string, *template.Template](DefaultCacheSize),
		funcs: template.FuncMap{
			"dict": dict,
		},
	}
}

// Mount registers fsys as the template source for comp.  fsys must hold
// the *.html files at its root; use fs.Sub on an embed.FS.
func (e *Engine) Mount(comp string, fsys fs.FS) {
	e.mu.Lock()
	e.sources[comp] = fsys
	e.mu.Unlock()
}

// Render executes the template set and writes it to w.  The page is
// rendered into a buffer first so a template error never leaves a half
// page on the wire.
func (e *Engine) Render(w http.ResponseWriter, status int, comp, name string, data any) error {
	var buf bytes.Buffer
	if err := e.execute(&buf, comp, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderToString executes and returns HTML.
func (e *Engine) RenderToString(comp, name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.execute(&buf, comp, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (e *Engine) execute(buf *bytes.Buffer, comp, name string, data any) error {
	t, err := e.load(comp, name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(buf, execName(t, name), data)
}

//
// internal: load
//

// load finds and (if necessary) parses the template set for comp and name.
func (e *Engine) load(comp, name string) (*template.Template, error) {
	key := comp + "::" + name

	if e.policy != CacheSkip {
		if t, ok := e.sets.Get(key); ok {
			return t, nil
		}
	}

	fsys, err := e.source(comp, name)
	if err != nil {
		return nil, err
	}

	t, err := template.New(name).Funcs(e.funcs).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse %s/%s: %w", comp, name, err)
	}

	if e.policy != CacheSkip {
		e.sets.Add(key, t)
	}
	return t, nil
}

// source picks the first location that holds <name>.html.
func (e *Engine) source(comp, name string) (fs.FS, error) {
	file := name + ".html"

	if e.override != "" {
		dir := filepath.Join(e.override, "components", comp, "templates")
		if _, err := os.Stat(filepath.Join(dir, file)); err == nil {
			return os.DirFS(dir), nil
		}
	}

	e.mu.RLock()
	fsys, ok := e.sources[comp]
	e.mu.RUnlock()
	if ok {
		if _, err := fs.Stat(fsys, path.Clean(file)); err == nil {
			return fsys, nil
		}
	}
	return nil, fmt.Errorf("view: template %s/%s: %w", comp, name, fs.ErrNotExist)
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has a non-empty "<name>.html" (file-based template), run
//     that.
//  2. Otherwise, fall back to "<name>" (root template via {{ define }}).
func execName(t *template.Template, name string) string {
	if f := t.Lookup(name + ".html"); f != nil && f.Tree != nil && !parse.IsEmptyTree(f.Tree.Root) {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
