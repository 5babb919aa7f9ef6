package job

type Status int

const (
	// NotFound means the process could not be classified: it is not (or no
	// longer) a child of the shell. It is terminal.
	NotFound Status = iota
	Running
	Stopped
	Exited
	Signaled

	// Continued is only ever reported by the Resolver. The table stores a
	// continued job as Running.
	Continued

	// NoChange is returned by a non-blocking resolve that observed no
	// transition. It is never stored.
	NoChange
)

// NOTE: keep in sync with the Status values above.
var statusNames = []string{
	"Not found",
	"Running",
	"Stopped",
	"Exited",
	"Terminated by signal",
	"Continued",
	"No change",
}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return statusNames[NotFound]
	}

	return statusNames[s]
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == Exited || s == Signaled || s == NotFound
}

// canTransition reports whether a stored job may move from s to next.
// Repeating the current status is allowed and is a no-op.
func (s Status) canTransition(next Status) bool {
	if s == next {
		return true
	}

	switch s {
	case Running:
		return next == Stopped || next.Terminal()
	case Stopped:
		return next == Running || next.Terminal()
	default:
		return false
	}
}
