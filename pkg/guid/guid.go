// Package guid implements the 128-bit identifiers that name interfaces,
// modules and implementation classes.
//
// The only accepted text form is braced, dash-grouped hexadecimal:
//
//	{XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}
//
// Input may use either case; String always renders upper case.
package guid

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/systemshift/bus/pkg/diag"
)

const textLen = 38

// GUID is an immutable 128-bit identifier
type GUID struct {
	High uint64
	Low  uint64
}

// Nil is the all-zero identifier
var Nil GUID

// Parse reads the canonical text form
func Parse(s string) (GUID, error) {
	if len(s) != textLen || s[0] != '{' || s[textLen-1] != '}' {
		return Nil, diag.Errorf(diag.MalformedIdentifier, "guid", "bad GUID %q", s)
	}
	// uuid.Parse also takes the braced form and checks dash positions and
	// hex digits.
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, diag.Wrap(err, diag.MalformedIdentifier, "guid", "bad GUID %q", s)
	}
	return FromUUID(u), nil
}

// MustParse is Parse for package-level identifiers; it panics on bad input
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// New returns a random identifier
func New() GUID {
	return FromUUID(uuid.New())
}

// NewSHA1 derives a stable identifier for name within the namespace of g
func (g GUID) NewSHA1(name string) GUID {
	return FromUUID(uuid.NewSHA1(g.UUID(), []byte(name)))
}

// FromUUID converts a uuid.UUID, reading it big-endian
func FromUUID(u uuid.UUID) GUID {
	return GUID{
		High: binary.BigEndian.Uint64(u[:8]),
		Low:  binary.BigEndian.Uint64(u[8:]),
	}
}

// UUID converts g to a uuid.UUID
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], g.High)
	binary.BigEndian.PutUint64(u[8:], g.Low)
	return u
}

// String renders the canonical upper-case braced form
func (g GUID) String() string {
	return fmt.Sprintf("{%08X-%04X-%04X-%04X-%012X}",
		g.High>>32,
		(g.High>>16)&0xFFFF,
		g.High&0xFFFF,
		g.Low>>48,
		g.Low&0xFFFFFFFFFFFF)
}

// IsNil reports whether g is the all-zero identifier
func (g GUID) IsNil() bool {
	return g == Nil
}

// Compare orders identifiers by their 128-bit value
func Compare(a, b GUID) int {
	switch {
	case a.High < b.High:
		return -1
	case a.High > b.High:
		return 1
	case a.Low < b.Low:
		return -1
	case a.Low > b.Low:
		return 1
	}
	return 0
}

// Canonical upper-cases valid text without otherwise changing it
func Canonical(s string) (string, error) {
	if _, err := Parse(s); err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// MarshalText implements encoding.TextMarshaler
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
