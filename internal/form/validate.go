// internal/form/validate.go
//
// Forms subsystem: server-side validation and sanitization.
//
// Context
//   The renderer outputs a CSRF token and a render timestamp.  When the
//   browser posts, Validate checks the token, the timing window, and every
//   field rule declared in YAML.  It returns a map of clean values that
//   handlers can trust, or []ErrorField for the template to highlight.
//
// Workflow
//   •  Form-level checks first: CSRF, then timing.  Either failure stops
//      per-field work.
//   •  Each field is trimmed (passwords excepted), length-checked, and
//      type-checked.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Timing bounds between render and submit.  A zero MinFill disables the
// “too fast” check.
var (
	MinFill = 2 * time.Second
	MaxAge  = 30 * time.Minute
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure.  An empty Name is a
// form-level problem (CSRF, timing, unknown form).
type ErrorField struct {
	Name    string
	Message string
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate checks posted values for formID.  A non-empty error slice means
// the form must be re-rendered.
func Validate(formID string, posted url.Values) (map[string]any, []ErrorField) {
	d, ok := Get(formID)
	if !ok {
		return nil, []ErrorField{{Message: "Unknown form."}}
	}

	if !verifyCSRF(posted.Get("csrf_token")) {
		return nil, []ErrorField{{Message: "Security token invalid.  Please refresh and try again."}}
	}
	if msg := checkTiming(posted.Get("render_ts"), time.Now()); msg != "" {
		return nil, []ErrorField{{Message: msg}}
	}

	var errs []ErrorField
	clean := make(map[string]any, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		raw := posted.Get(f.Name)
		if f.Type != "password" {
			raw = strings.TrimSpace(raw)
		}

		if raw == "" {
			if f.Required {
				errs = append(errs, ErrorField{f.Name, requiredMsg(f)})
			} else if f.Type == "checkbox" {
				clean[f.Name] = false
			}
			continue
		}

		val, msg := sanitize(f, raw)
		if msg != "" {
			errs = append(errs, ErrorField{f.Name, msg})
			continue
		}
		clean[f.Name] = val
	}
	return clean, errs
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

func verifyCSRF(token string) bool {
	return token != "" && VerifyToken(token)
}

// checkTiming returns a user-visible message when the form came back too
// fast or too late.
func checkTiming(tsRaw string, now time.Time) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	delta := now.Sub(time.UnixMicro(ts))
	switch {
	case MinFill > 0 && delta < MinFill:
		return "Form submitted too quickly.  Please try again."
	case delta > MaxAge:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

func sanitize(f *FieldDef, val string) (any, string) {
	if f.Type == "checkbox" {
		return val != "false" && val != "0", ""
	}

	if msg := lengthCheck(f, val); msg != "" {
		return nil, msg
	}
	if f.Pattern != "" && !regexp.MustCompile(f.Pattern).MatchString(val) {
		return nil, patternMsg(f)
	}

	if f.Type == "email" {
		addr, err := mail.ParseAddress(val)
		if err != nil || addr.Address != val {
			return nil, invalidMsg(f)
		}
	}
	return val, ""
}

func lengthCheck(f *FieldDef, s string) string {
	n := utf8.RuneCountInString(s)
	if f.MinLength > 0 && n < f.MinLength {
		return fmt.Sprintf("Must be at least %d characters.", f.MinLength)
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return fmt.Sprintf("Must be at most %d characters.", f.MaxLength)
	}
	return ""
}

func requiredMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "This field is required."
}

func invalidMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Invalid input."
}

func patternMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Input does not match required format."
}
