package diag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a failure. Kind implements error so that callers can match
// with errors.Is(err, diag.ModuleNotFound).
type Kind int

const (
	Internal Kind = iota
	MalformedIdentifier
	LoadFailure
	EntryPointMissing
	InitializationFailure
	ModuleNotFound
	ImplementationNotFound
	DuplicateModule
	NotFound
	AmbiguousName
	TraitMismatch
)

var kindStrings = [...]string{
	Internal:               "internal error",
	MalformedIdentifier:    "malformed identifier",
	LoadFailure:            "failed to load module image",
	EntryPointMissing:      "module entry point not found",
	InitializationFailure:  "module initialization failed",
	ModuleNotFound:         "module not found",
	ImplementationNotFound: "implementation not found",
	DuplicateModule:        "module already registered",
	NotFound:               "no matching function",
	AmbiguousName:          "ambiguous function name",
	TraitMismatch:          "object does not implement trait",
}

// ErrorString returns the fixed description of a kind
func ErrorString(k Kind) string {
	if k < 0 || int(k) >= len(kindStrings) {
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
	return kindStrings[k]
}

func (k Kind) String() string {
	return ErrorString(k)
}

func (k Kind) Error() string {
	return ErrorString(k)
}

// Error is a classified failure with the chain of locations it passed through
type Error struct {
	Kind   Kind
	Msg    string
	Err    error
	Frames []Location
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New creates an error whose first frame is the caller
func New(kind Kind, module, msg string) error {
	return &Error{
		Kind:   kind,
		Msg:    msg,
		Frames: []Location{caller(module, 2)},
	}
}

// Errorf is New with a formatted message
func Errorf(kind Kind, module, format string, args ...any) error {
	return &Error{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Frames: []Location{caller(module, 2)},
	}
}

// Wrap classifies a cause. The cause's own frames stay inner to the new ones.
func Wrap(err error, kind Kind, module, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Err:    err,
		Frames: []Location{caller(module, 2)},
	}
}

// Trace returns err with the caller's location appended. err itself is
// left untouched. Errors from outside this package are wrapped first.
func Trace(err error, module string) error {
	if err == nil {
		return nil
	}
	loc := caller(module, 2)
	if e, ok := err.(*Error); ok {
		traced := *e
		traced.Frames = append(slices.Clip(e.Frames), loc)
		return &traced
	}
	return &Error{
		Kind:   KindOf(err),
		Err:    err,
		Frames: []Location{loc},
	}
}

// KindOf returns the kind of the outermost classified error in err's tree,
// or Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Internal
}

// Frames returns every location recorded in err's chain, innermost first
func Frames(err error) []Location {
	var out []Location
	collectFrames(err, &out)
	return out
}

func collectFrames(err error, out *[]Location) {
	if err == nil {
		return
	}
	if e, ok := err.(*Error); ok {
		collectFrames(e.Err, out)
		*out = append(*out, e.Frames...)
		return
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		collectFrames(u.Unwrap(), out)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			collectFrames(inner, out)
		}
	}
}

// Unwind reports err at error level, once per frame, innermost first.
// An error without frames is reported once with an empty location.
func Unwind(r *Reporter, err error) {
	if err == nil {
		return
	}
	frames := Frames(err)
	if len(frames) == 0 {
		r.Apply(LevelError, err.Error(), Location{})
		return
	}
	r.Apply(LevelError, err.Error(), frames[0])
	for _, loc := range frames[1:] {
		r.Apply(LevelError, "  from "+loc.Function, loc)
	}
}
