// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, validates input,
//   and returns the clean map or a ValidationError.  HandleSubmit provides
//   that so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ValidationError carries every field failure from one submit.
type ValidationError struct {
	Fields []ErrorField
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Name+": "+f.Message)
	}
	return "form validation failed: " + strings.Join(parts, "; ")
}

// FormLevel returns the first error not tied to a field, if any.
func (e *ValidationError) FormLevel() (string, bool) {
	for _, f := range e.Fields {
		if f.Name == "" {
			return f.Message, true
		}
	}
	return "", false
}

// HandleSubmit parses r, validates against formID, and returns the
// sanitized data.  On validation failure it returns a *ValidationError
// (check with AsValidationError).  Other errors are system failures.
func HandleSubmit(formID string, r *http.Request) (map[string]any, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	clean, errs := Validate(formID, r.PostForm)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return clean, nil
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// RenderedAt returns the posted render_ts, or the zero time when it is
// missing, malformed, or in the future.  Handlers that re-render without a
// submit pass it to RenderOptions.RenderedAt.
func RenderedAt(r *http.Request) time.Time {
	us, err := strconv.ParseInt(r.PostForm.Get("render_ts"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	ts := time.UnixMicro(us)
	if ts.After(time.Now()) {
		return time.Time{}
	}
	return ts
}

// String returns clean[name] as a string, or "" when absent.
func String(clean map[string]any, name string) string {
	s, _ := clean[name].(string)
	return s
}

// Prefill converts posted values into RenderOptions.Prefill, skipping the
// hidden meta inputs.
func Prefill(r *http.Request) map[string]string {
	m := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		switch k {
		case "csrf_token", "render_ts", "show_password":
			continue
		}
		if len(v) > 0 {
			m[k] = v[0]
		}
	}
	return m
}
