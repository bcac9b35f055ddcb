package bus

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

const reportModule = "BusSystem"

// System owns every loaded module, keyed by module GUID
type System struct {
	reporter  *diag.Reporter
	search    *SearchPath
	openers   map[string]Opener
	onFailure FailureHandler

	libs  map[guid.GUID]*Library
	order []guid.GUID
}

// Option configures a System
type Option func(*System)

// WithOpener maps files with extension ext (".so", ".go") through o.
// The empty extension registers a fallback.
func WithOpener(ext string, o Opener) Option {
	return func(s *System) {
		s.openers[ext] = o
	}
}

// WithFailureHandler sets the callback run when an entry point fails
func WithFailureHandler(h FailureHandler) Option {
	return func(s *System) {
		s.onFailure = h
	}
}

// WithSearchPath replaces the default search path
func WithSearchPath(sp *SearchPath) Option {
	return func(s *System) {
		if sp != nil {
			s.search = sp
		}
	}
}

// NewSystem creates an empty registry. Native Go plugins (".so") are
// handled unless an option overrides them.
func NewSystem(reporter *diag.Reporter, opts ...Option) *System {
	if reporter == nil {
		reporter = diag.NewReporter()
	}
	s := &System{
		reporter: reporter,
		search:   NewSearchPath(),
		openers:  map[string]Opener{".so": PluginOpener{}},
		libs:     make(map[guid.GUID]*Library),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reporter returns the diagnostic sink shared with every module
func (s *System) Reporter() *diag.Reporter {
	return s.reporter
}

// SearchPath returns the dependency search set
func (s *System) SearchPath() *SearchPath {
	return s.search
}

// Extensions returns the file extensions that have an opener, sorted
func (s *System) Extensions() []string {
	exts := make([]string, 0, len(s.openers))
	for ext := range s.openers {
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

func (s *System) openerFor(path string) (Opener, bool) {
	if o, ok := s.openers[filepath.Ext(path)]; ok && o != nil {
		return o, true
	}
	o, ok := s.openers[""]
	return o, ok && o != nil
}

// LoadModuleFile loads the module at path and registers it. A module whose
// GUID is already registered is rejected and its image released.
func (s *System) LoadModuleFile(path string) error {
	lib, err := s.load(path)
	if err != nil {
		return diag.Trace(err, reportModule)
	}
	return diag.Trace(s.register(lib), reportModule)
}

// WrapBuiltin registers a module living in this binary
func (s *System) WrapBuiltin(gen Generator) error {
	if gen == nil {
		return diag.New(diag.InitializationFailure, reportModule, "nil generator")
	}
	mod, err := callGenerator(gen, s)
	if err != nil {
		return diag.Wrap(err, diag.InitializationFailure, reportModule, "failed to init builtin module")
	}
	if mod == nil {
		return diag.New(diag.InitializationFailure, reportModule, "builtin generator returned no module")
	}
	info, err := readInfo(mod)
	if err != nil {
		return diag.Wrap(err, diag.InitializationFailure, reportModule, "failed to init builtin module")
	}
	s.checkVersion(info)
	return diag.Trace(s.register(newLibrary(mod, info, nil, "")), reportModule)
}

func (s *System) register(lib *Library) error {
	info := lib.info
	if info.GUID.IsNil() {
		s.release(lib)
		return diag.Errorf(diag.InitializationFailure, reportModule, "module %s declares a nil GUID", info.Name)
	}
	if prev, ok := s.libs[info.GUID]; ok {
		if prev.Alive() {
			s.release(lib)
			return diag.Errorf(diag.DuplicateModule, reportModule, "module %s [name=%s] is already registered by %s",
				info.GUID, info.Name, prev.info.Name)
		}
		// closed behind our back; its slot is free
		s.forget(info.GUID)
	}
	s.libs[info.GUID] = lib
	s.order = append(s.order, info.GUID)
	return nil
}

func (s *System) forget(id guid.GUID) {
	delete(s.libs, id)
	s.order = slices.DeleteFunc(s.order, func(g guid.GUID) bool { return g == id })
}

// live returns the libraries that have not been torn down, in load order
func (s *System) live() []*Library {
	libs := make([]*Library, 0, len(s.order))
	for _, id := range s.order {
		if lib := s.libs[id]; lib.Alive() {
			libs = append(libs, lib)
		}
	}
	return libs
}

// lookup returns a registered library that has not been torn down
func (s *System) lookup(id guid.GUID) (*Library, bool) {
	lib, ok := s.libs[id]
	if !ok || !lib.Alive() {
		return nil, false
	}
	return lib, true
}

func (s *System) release(lib *Library) {
	if err := lib.Close(); err != nil {
		s.reporter.Reportf(diag.LevelError, reportModule, "failed to free module %s: %v", lib.Path(), err)
	}
}

// Module returns a registered module
func (s *System) Module(id guid.GUID) (Module, bool) {
	lib, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	return lib.module, true
}

// Library returns the library holding a registered module
func (s *System) Library(id guid.GUID) (*Library, bool) {
	return s.lookup(id)
}

// Loaded reports whether a module file at path is registered
func (s *System) Loaded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, lib := range s.live() {
		if lib.Path() == abs {
			return true
		}
	}
	return false
}

// ListModules returns the metadata of every module in load order. Path is
// the file each module was loaded from.
func (s *System) ListModules() []ModuleInfo {
	libs := s.live()
	infos := make([]ModuleInfo, 0, len(libs))
	for _, lib := range libs {
		infos = append(infos, lib.Info())
	}
	return infos
}

// ListFunctions returns every implementation of iface in load order
func (s *System) ListFunctions(iface guid.GUID) []FunctionID {
	var funcs []FunctionID
	for _, lib := range s.live() {
		for _, name := range lib.module.List(iface) {
			funcs = append(funcs, FunctionID{Module: lib.GUID(), Name: name})
		}
	}
	return funcs
}

// Instantiate creates the implementation named by id
func (s *System) Instantiate(id FunctionID) (*Instance, error) {
	lib, ok := s.lookup(id.Module)
	if !ok {
		return nil, diag.Errorf(diag.ModuleNotFound, reportModule, "no module's GUID is %s", id.Module)
	}

	obj, err := create(lib.module, id.Name)
	if err != nil {
		return nil, diag.Wrap(err, diag.InitializationFailure, reportModule, "failed to instantiate %s", id)
	}
	if obj == nil {
		return nil, diag.Errorf(diag.ImplementationNotFound, reportModule, "module %s [name=%s] doesn't have function called %s",
			id.Module, lib.info.Name, id.Name)
	}
	return &Instance{obj: obj, lib: lib, id: id}, nil
}

func create(mod Module, name string) (obj trait.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return mod.Instantiate(name), nil
}

// Unload drops one module: the module first, then its image
func (s *System) Unload(id guid.GUID) error {
	lib, ok := s.libs[id]
	if !ok {
		return diag.Errorf(diag.ModuleNotFound, reportModule, "no module's GUID is %s", id)
	}
	s.forget(id)
	return lib.Close()
}

// Close unloads every module in reverse load order
func (s *System) Close() error {
	var errs []error
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		errs = append(errs, s.libs[id].Close())
		delete(s.libs, id)
	}
	s.order = nil
	return errors.Join(errs...)
}
