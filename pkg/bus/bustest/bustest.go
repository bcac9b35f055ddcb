// Package bustest provides an in-memory platform facility and small modules
// for testing code built on package bus without real shared objects.
package bustest

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// Image is a fake mapped module. It records how often it was closed.
type Image struct {
	Symbols  map[string]any
	OnClose  func()
	CloseErr error

	mu     sync.Mutex
	closes int
}

// Entry returns an image exporting fn as the entry symbol
func Entry(fn bus.EntryFunc) *Image {
	return &Image{Symbols: map[string]any{
		bus.EntrySymbol: func(path string, sys *bus.System) (bus.Module, error) {
			return fn(path, sys)
		},
	}}
}

// Serve returns an image whose entry point always returns mod
func Serve(mod bus.Module) *Image {
	return Entry(func(string, *bus.System) (bus.Module, error) {
		return mod, nil
	})
}

// Lookup implements bus.Image
func (i *Image) Lookup(symbol string) (any, error) {
	sym, ok := i.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found in image", symbol)
	}
	return sym, nil
}

// Close implements bus.Image
func (i *Image) Close() error {
	i.mu.Lock()
	i.closes++
	i.mu.Unlock()

	if i.OnClose != nil {
		i.OnClose()
	}
	return i.CloseErr
}

// Closed reports whether Close was called
func (i *Image) Closed() bool {
	return i.CloseCount() > 0
}

// CloseCount reports how often Close was called
func (i *Image) CloseCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closes
}

// Opener maps paths to fake images
type Opener struct {
	mu     sync.Mutex
	images map[string]*Image
	opened []string
}

// NewOpener creates an empty opener
func NewOpener() *Opener {
	return &Opener{images: make(map[string]*Image)}
}

// Add makes img available at path and returns the absolute path
func (o *Opener) Add(path string, img *Image) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.images[abs] = img
	return abs
}

// Open implements bus.Opener
func (o *Opener) Open(path string, _ *bus.SearchPath) (bus.Image, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	img, ok := o.images[path]
	if !ok {
		return nil, fmt.Errorf("%s: cannot open shared object file: no such file or directory", path)
	}
	o.opened = append(o.opened, path)
	return img, nil
}

// Opened returns the paths opened so far, in order
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// NewModule builds a module offering names for iface. Every function
// instantiates an Object named after it.
func NewModule(id guid.GUID, name string, iface guid.GUID, names ...string) *bus.Static {
	mod := &bus.Static{
		Meta: bus.ModuleInfo{
			Name:       name,
			GUID:       id,
			BusVersion: "0.0.1",
			Version:    "1.0.0",
		},
	}
	for _, n := range names {
		mod.Functions = append(mod.Functions, bus.Function{
			Interface: iface,
			Name:      n,
			New:       NewObject(n),
		})
	}
	return mod
}

// Object is an implementation exposing the Display and Drop traits
type Object struct {
	Name  string
	Drops int
}

// NewObject returns a constructor for Objects called name
func NewObject(name string) func() trait.Object {
	return func() trait.Object {
		return &Object{Name: name}
	}
}

var (
	displayTable = &trait.DisplayVTable{
		Display: func(obj trait.Object, _ trait.OpID) trait.Data {
			return trait.Data{Bytes: []byte(obj.(*Object).Name)}
		},
		DisplayID: trait.Display.OpID("display"),
	}
	dropTable = &trait.DropVTable{
		Drop: func(obj trait.Object, _ trait.OpID) {
			obj.(*Object).Drops++
		},
		DropID: trait.Drop.OpID("drop"),
	}
)

// VTable implements trait.Object
func (o *Object) VTable(id guid.GUID) any {
	switch id {
	case trait.Display.ID:
		return displayTable
	case trait.Drop.ID:
		return dropTable
	}
	return nil
}
