// Package diag holds the reporting and error-context plumbing shared by every
// part of the module system.
//
// A Reporter fans events out to actions registered per level. Errors carry an
// ordered list of source locations, innermost first, that grows as the error
// is returned up the stack; Unwind hands the whole chain to a Reporter.
package diag

import (
	"fmt"
	"sync"
)

// Level is the severity of a reported event
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Action observes reported events
type Action func(level Level, message string, loc Location)

// Reporter delivers events to the actions registered for their level.
// The zero value is ready to use and safe for concurrent use.
//
// Actions run with the reporter's lock held, so an action must not call
// back into the same Reporter.
type Reporter struct {
	mu      sync.Mutex
	actions map[Level][]Action
}

// NewReporter creates an empty reporter
func NewReporter() *Reporter {
	return &Reporter{
		actions: make(map[Level][]Action),
	}
}

// AddAction appends an action for a level. Actions run in registration order.
func (r *Reporter) AddAction(level Level, action Action) {
	if action == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.actions == nil {
		r.actions = make(map[Level][]Action)
	}
	r.actions[level] = append(r.actions[level], action)
}

// Apply delivers an event to every action registered for level.
// A level without actions is a no-op.
func (r *Reporter) Apply(level Level, message string, loc Location) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, action := range r.actions[level] {
		action(level, message, loc)
	}
}

// Reportf formats a message and applies it with the caller's location
func (r *Reporter) Reportf(level Level, module, format string, args ...any) {
	r.Apply(level, fmt.Sprintf(format, args...), caller(module, 2))
}

// AttachAll registers action on min and every more severe level
func AttachAll(r *Reporter, min Level, action Action) {
	for l := min; l <= LevelError; l++ {
		r.AddAction(l, action)
	}
}
