// Package interp loads modules from Go source through the yaegi interpreter.
// A source module is a single .go file declaring BusInitModule with the
// same signature a compiled plugin exports.
package interp

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/systemshift/bus/pkg/bus"
)

// Opener is a bus.Opener for Go source files
type Opener struct {
	// Exports are made available to module sources in addition to the
	// standard library and Symbols
	Exports []interp.Exports
}

// Open implements bus.Opener. Packages the source imports are looked up
// under the first "src" directory found on the search path.
func (o Opener) Open(path string, sp *bus.SearchPath) (bus.Image, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
	if err != nil {
		return nil, err
	}

	var opts interp.Options
	if sp != nil {
		if dir, ok := sp.Find("src", filepath.Dir(path)); ok {
			opts.GoPath = filepath.Dir(dir)
		}
	}

	i := interp.New(opts)
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("loading bus symbols: %w", err)
	}
	for _, exports := range o.Exports {
		if err := i.Use(exports); err != nil {
			return nil, fmt.Errorf("loading exports: %w", err)
		}
	}

	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", path, err)
	}

	return &image{i: i, pkg: f.Name.Name}, nil
}

var errClosed = errors.New("interpreter closed")

type image struct {
	i   *interp.Interpreter
	pkg string
}

func (m *image) Lookup(symbol string) (any, error) {
	if m.i == nil {
		return nil, errClosed
	}
	v, err := m.i.Eval(m.pkg + "." + symbol)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil()) {
		return nil, fmt.Errorf("symbol %s not found in package %s", symbol, m.pkg)
	}
	return v.Interface(), nil
}

// Close drops the interpreter; its memory goes with the last reference
func (m *image) Close() error {
	m.i = nil
	return nil
}
