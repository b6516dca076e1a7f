// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file that names its fields and
//   their validation rules.  Components embed their `forms/*.yaml` and call
//   LoadFS at init, so the definitions ship inside the binary.  Operators
//   may still drop overrides on disk and load them with RegisterDir; a
//   later registration for the same ID wins.
//
// Workflow
//   •  Structs mirror the YAML schema: Def → FieldDef.
//   •  Parse decodes and checks structural rules without touching the
//      registry.
//   •  LoadFS / RegisterDir discover files and Register the result.
//   •  Get offers read-only access by ID.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Def is one form definition.  ID is namespaced by component, e.g.
// “auth/login”.
type Def struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Action string     `yaml:"action"` // POST target, defaults to current URL
	Submit string     `yaml:"submit"` // submit button label
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef describes a single input control.  Validation metadata lives
// inline so the server enforces the same rules the browser hints at.
type FieldDef struct {
	Name         string `yaml:"name"`
	Label        string `yaml:"label"`
	Type         string `yaml:"type"` // text, email, password, checkbox, hidden
	Placeholder  string `yaml:"placeholder"`
	Autocomplete string `yaml:"autocomplete"`
	Required     bool   `yaml:"required"`
	MinLength    int    `yaml:"minlength"`
	MaxLength    int    `yaml:"maxlength"`
	Pattern      string `yaml:"pattern"`
	ErrorMsg     string `yaml:"error"`

	// ToggleAction, on a password field, renders a reveal/mask button that
	// posts to this path instead of the form's own action.
	ToggleAction string `yaml:"toggle_action"`
}

var knownTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"password": true,
	"checkbox": true,
	"hidden":   true,
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Def)
)

// Get returns a parsed Def by ID.  The boolean is false when unknown.
func Get(id string) (*Def, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[id]
	return d, ok
}

// Register inserts or replaces d.  Callers must pass a Def from Parse.
func Register(d *Def) {
	registryMu.Lock()
	registry[d.ID] = d
	registryMu.Unlock()
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// Parse decodes raw YAML and validates its structure.  src names the
// origin in error messages.
func Parse(raw []byte, src string) (*Def, error) {
	var d Def
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateDef(&d, src); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFS registers every “*.yaml” directly under dir in fsys.
func LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read forms dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p := path.Join(dir, e.Name())
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		d, err := Parse(raw, p)
		if err != nil {
			return err
		}
		Register(d)
	}
	return nil
}

// RegisterDir loads on-disk overrides from <root>/forms.  A missing
// directory is not an error.
func RegisterDir(root string) error {
	err := LoadFS(os.DirFS(root), "forms")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

func validateDef(d *Def, src string) error {
	if d.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("form definition %s: no fields", src)
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if err := validateField(f, src); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func validateField(f *FieldDef, src string) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("form %s: field missing 'name'", src)
	case f.Type == "":
		return fmt.Errorf("form %s: field '%s' missing 'type'", src, f.Name)
	case !knownTypes[f.Type]:
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", src, f.Name, f.Type)
	case f.Label == "" && f.Type != "hidden":
		return fmt.Errorf("form %s: field '%s' missing 'label'", src, f.Name)
	case f.ToggleAction != "" && f.Type != "password":
		return fmt.Errorf("form %s: field '%s' toggle_action only applies to password", src, f.Name)
	}

	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", src, f.Name, err)
		}
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", src, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", src, f.Name)
	}
	return nil
}
