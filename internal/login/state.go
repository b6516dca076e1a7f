package login

// State is the view state owned by one Controller.  The zero value is the
// freshly mounted form: idle, no banner, password masked.
type State struct {
	IsLoading    bool
	ErrorMessage string // empty means no banner
	ShowPassword bool
}

// HasError reports whether the banner should render.
func (s State) HasError() bool { return s.ErrorMessage != "" }

// Phase names the state-machine position for log lines.
func (s State) Phase() string {
	switch {
	case s.IsLoading:
		return "submitting"
	case s.HasError():
		return "error"
	default:
		return "idle"
	}
}
