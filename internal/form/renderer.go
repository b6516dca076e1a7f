// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Given a registered Def this file converts the definition into safe,
//   accessible HTML markup.  The renderer applies HTML5 validation
//   attributes, injects a CSRF token and render-timestamp hidden inputs,
//   and honours pre-fill data and per-field error messages from a previous
//   submit.
//
// Workflow
//   •  RenderForm looks up the Def by ID and writes each field via
//      writeField.
//   •  A password field with ToggleAction gets a reveal/mask button.  The
//      button posts to ToggleAction via `formaction` with `formnovalidate`,
//      so flipping visibility never triggers validation or submission.
//      When Reveal is set the input renders as type="text".  A toggle
//      round-trip sets KeepPassword so the typed value survives in both
//      states; re-renders after a submit never echo a password.
//   •  Hidden csrf_token, render_ts, and show_password inputs close the
//      block.  RenderedAt carries the first render time across toggles
//      so the fill-time check measures the whole visit.
//
// Style
//   Output HTML is plain, no framework classes.  Each input gets
//   id="fld-{name}" and is wrapped in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// RenderOptions bundles optional parameters influencing HTML output.
type RenderOptions struct {
	// Prefill provides initial field values keyed by field name.
	Prefill map[string]string
	// Errors maps field name to message.  The empty key is ignored here;
	// form-level errors belong in the page banner.
	Errors map[string]string
	// Reveal renders toggleable password fields as plain text.
	Reveal bool
	// KeepPassword echoes a prefilled password even while masked.
	KeepPassword bool
	// RenderedAt overrides the render_ts stamp.  Zero means now.
	RenderedAt time.Time
}

// ErrorMap folds a slice of ErrorField into RenderOptions.Errors form.
func ErrorMap(errs []ErrorField) map[string]string {
	m := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, dup := m[e.Name]; !dup {
			m[e.Name] = e.Message
		}
	}
	return m
}

// RenderForm returns the HTML markup for formID.  Callers drop the result
// into a page template as template.HTML.
func RenderForm(formID string, opts RenderOptions) (template.HTML, error) {
	d, ok := Get(formID)
	if !ok {
		return "", fmt.Errorf("RenderForm: unknown form %q", formID)
	}

	token, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("RenderForm: csrf token: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`<div class="adept-form">` + "\n")

	for i := range d.Fields {
		if err := writeField(&buf, &d.Fields[i], opts); err != nil {
			return "", err
		}
	}

	fmt.Fprintf(&buf, `<input type="hidden" name="csrf_token" value="%s">`+"\n", html.EscapeString(token))
	stamp := opts.RenderedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	fmt.Fprintf(&buf, `<input type="hidden" name="render_ts" value="%d">`+"\n", stamp.UnixMicro())
	fmt.Fprintf(&buf, `<input type="hidden" name="show_password" value="%t">`+"\n", opts.Reveal)

	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// writeField emits HTML for one field into buf.
func writeField(buf *bytes.Buffer, f *FieldDef, opts RenderOptions) error {
	val := opts.Prefill[f.Name]
	name := html.EscapeString(f.Name)

	if f.Type == "hidden" {
		buf.WriteString(`<input type="hidden" name="` + name + `" value="` + html.EscapeString(val) + `">` + "\n")
		return nil
	}

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	attrs := ` id="fld-` + name + `" name="` + name + `"`
	msg, hasErr := opts.Errors[f.Name]
	if hasErr {
		attrs += ` aria-invalid="true" aria-describedby="err-` + name + `"`
	}

	switch f.Type {
	case "text", "email", "password":
		typ := f.Type
		revealed := f.Type == "password" && f.ToggleAction != "" && opts.Reveal
		if revealed {
			typ = "text"
		}

		buf.WriteString(`<input` + attrs + ` type="` + typ + `"`)
		writeConstraints(buf, f)
		if val != "" && (f.Type != "password" || revealed || opts.KeepPassword) {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

		if f.Type == "password" && f.ToggleAction != "" {
			writeToggle(buf, f, revealed)
		}

	case "checkbox":
		checked := ""
		if val != "" && strings.ToLower(val) != "false" {
			checked = ` checked`
		}
		buf.WriteString(`<input` + attrs + ` type="checkbox" value="true"` + checked)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	buf.WriteString(`<span class="error" id="err-` + name + `" aria-live="polite">`)
	if hasErr {
		buf.WriteString(html.EscapeString(msg))
	}
	buf.WriteString(`</span>` + "\n")

	buf.WriteString(`</div>` + "\n")
	return nil
}

func writeConstraints(buf *bytes.Buffer, f *FieldDef) {
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.Autocomplete != "" {
		buf.WriteString(` autocomplete="` + html.EscapeString(f.Autocomplete) + `"`)
	}
	if f.Required {
		buf.WriteString(` required`)
	}
	if f.MinLength > 0 {
		buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
	}
	if f.MaxLength > 0 {
		buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
	}
	if f.Pattern != "" {
		buf.WriteString(` pattern="` + html.EscapeString(f.Pattern) + `"`)
	}
}

// writeToggle renders the reveal/mask button.
func writeToggle(buf *bytes.Buffer, f *FieldDef, revealed bool) {
	label, pressed := "Show password", "false"
	if revealed {
		label, pressed = "Hide password", "true"
	}
	buf.WriteString(`<button type="submit" class="toggle-visibility" formaction="` +
		html.EscapeString(f.ToggleAction) + `" formnovalidate aria-controls="fld-` +
		html.EscapeString(f.Name) + `" aria-pressed="` + pressed + `">` + label + `</button>` + "\n")
}
