package completion

// EventKind identifies a condition a caller may want to signal to the user.
type EventKind int

const (
	// EventNoMatch is raised when nothing matches the query.
	EventNoMatch EventKind = iota
	// EventPartialMatch is raised when Manual or Shell completion stops at a
	// branch point.
	EventPartialMatch
	// EventRotation is raised when stepping wraps around the match list.
	EventRotation
	// EventMultipleMatches is raised when a completion ran into a branch point.
	EventMultipleMatches
	// EventMatches carries the full match list of a repeated Shell query.
	EventMatches
)

func (k EventKind) String() string {
	switch k {
	case EventNoMatch:
		return "no_match"
	case EventPartialMatch:
		return "partial_match"
	case EventRotation:
		return "rotation"
	case EventMultipleMatches:
		return "multiple_matches"
	case EventMatches:
		return "matches"
	}
	return "unknown"
}

// Event is delivered to a Notifier.
type Event struct {
	Kind    EventKind
	Mode    Mode
	Matches []string
}

// Notifier receives completion events.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }
