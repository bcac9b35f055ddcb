// Package bus implements the module registry: the module abstraction, the
// loader that turns a file into a live module, and the System that owns every
// loaded module and resolves names to implementations.
//
// System is not internally synchronized. Embedders that load or instantiate
// from several goroutines must serialize those calls themselves.
package bus

import (
	"fmt"

	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// ModuleInfo describes a loaded module. It is produced once at load time.
type ModuleInfo struct {
	Name        string    `json:"name"`
	GUID        guid.GUID `json:"guid"`
	BusVersion  string    `json:"busVersion"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Copyright   string    `json:"copyright,omitempty"`
	// SearchPaths are relative to the directory the module was loaded from
	SearchPaths []string `json:"searchPaths,omitempty"`
	Path        string   `json:"path,omitempty"`
}

// Module is the live representation of a loaded unit of code
type Module interface {
	// Info returns the module's metadata
	Info() ModuleInfo

	// List returns the implementation names offered for an interface
	List(iface guid.GUID) []string

	// Instantiate creates a fresh implementation, or returns nil if the
	// name is unknown
	Instantiate(name string) trait.Object
}

// ClassLister is implemented by modules whose implementations belong to
// classes other than their own implementation id
type ClassLister interface {
	Class(iface guid.GUID, name string) (guid.GUID, bool)
}

// Generator builds a built-in module
type Generator func(sys *System) (Module, error)

// FunctionID names one instantiable implementation
type FunctionID struct {
	Module guid.GUID
	Name   string
}

func (id FunctionID) String() string {
	return fmt.Sprintf("%s.%s", id.Module, id.Name)
}

// ImplID is the stable implementation id derived from the pair
func (id FunctionID) ImplID() guid.GUID {
	return id.Module.NewSHA1(id.Name)
}

// IsZero reports whether id names nothing
func (id FunctionID) IsZero() bool {
	return id.Module.IsNil() && id.Name == ""
}

// Function is one entry of a Static module
type Function struct {
	Interface guid.GUID
	Name      string
	// Class defaults to the implementation id when nil
	Class guid.GUID
	New   func() trait.Object
}

// Static is a Module backed by a fixed function table. Most modules only
// need to fill one in and return it from their entry point.
type Static struct {
	Meta      ModuleInfo
	Functions []Function
}

// Info implements Module
func (s *Static) Info() ModuleInfo {
	return s.Meta
}

// List implements Module
func (s *Static) List(iface guid.GUID) []string {
	var names []string
	seen := make(map[string]bool)
	for _, fn := range s.Functions {
		if fn.Interface != iface || seen[fn.Name] {
			continue
		}
		seen[fn.Name] = true
		names = append(names, fn.Name)
	}
	return names
}

// Instantiate implements Module
func (s *Static) Instantiate(name string) trait.Object {
	for _, fn := range s.Functions {
		if fn.Name == name && fn.New != nil {
			return fn.New()
		}
	}
	return nil
}

// Class implements ClassLister
func (s *Static) Class(iface guid.GUID, name string) (guid.GUID, bool) {
	for _, fn := range s.Functions {
		if fn.Interface == iface && fn.Name == name && !fn.Class.IsNil() {
			return fn.Class, true
		}
	}
	return guid.Nil, false
}

// FunctionBase gives implementation objects access to the module that
// created them
type FunctionBase struct {
	path string
	sys  *System
}

// NewFunctionBase binds an implementation to its module path and system
func NewFunctionBase(path string, sys *System) FunctionBase {
	return FunctionBase{path: path, sys: sys}
}

// ModulePath returns the file the module was loaded from
func (b FunctionBase) ModulePath() string {
	return b.path
}

// System returns the owning registry
func (b FunctionBase) System() *System {
	return b.sys
}

// Reporter returns the owning registry's reporter
func (b FunctionBase) Reporter() *diag.Reporter {
	if b.sys == nil {
		return nil
	}
	return b.sys.Reporter()
}
