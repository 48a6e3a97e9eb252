package enums

// SaveState is the terminal progress indicator of a batch commit pass.
type SaveState string

const (
	SaveStateIdle       SaveState = "idle"
	SaveStateInProgress SaveState = "in-progress"
	SaveStateSuccess    SaveState = "success"
	SaveStateError      SaveState = "error"
	SaveStateAborted    SaveState = "aborted"
)

// String implements fmt.Stringer.
func (s SaveState) String() string {
	return string(s)
}

// Terminal reports whether the commit pass has finished.
func (s SaveState) Terminal() bool {
	switch s {
	case SaveStateSuccess, SaveStateError:
		return true
	default:
		return false
	}
}
