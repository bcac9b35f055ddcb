package bus

import (
	"fmt"
	"path/filepath"

	"github.com/systemshift/bus/internal/version"
	"github.com/systemshift/bus/pkg/diag"
)

// EntrySymbol is the one symbol looked up in every module image
const EntrySymbol = "BusInitModule"

// EntryFunc is the signature EntrySymbol must have. Plugins export it as a
// plain function:
//
//	func BusInitModule(path string, sys *bus.System) (bus.Module, error)
type EntryFunc func(path string, sys *System) (Module, error)

// FailureHandler observes entry points that fail or panic, before the load
// is reported as failed
type FailureHandler func(path string, err error)

// load maps the image at path and runs its entry point. The image is closed
// on every failure path; on success it belongs to the returned Library.
func (s *System) load(path string) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, diag.Wrap(err, diag.LoadFailure, reportModule, "failed to load module %s", path)
	}

	opener, ok := s.openerFor(abs)
	if !ok {
		return nil, diag.Errorf(diag.LoadFailure, reportModule, "failed to load module %s: no opener for %q files", abs, filepath.Ext(abs))
	}

	img, err := opener.Open(abs, s.search)
	if err != nil {
		return nil, diag.Wrap(err, diag.LoadFailure, reportModule, "failed to load module %s", abs)
	}

	owned := false
	defer func() {
		if owned {
			return
		}
		if err := img.Close(); err != nil {
			s.reporter.Reportf(diag.LevelError, reportModule, "failed to free module %s: %v", abs, err)
		}
	}()

	sym, err := img.Lookup(EntrySymbol)
	if err != nil {
		return nil, diag.Wrap(err, diag.EntryPointMissing, reportModule, "failed to init module %s", abs)
	}
	entry, ok := entryPoint(sym)
	if !ok {
		return nil, diag.Errorf(diag.EntryPointMissing, reportModule, "failed to init module %s: %s has type %T", abs, EntrySymbol, sym)
	}

	mod, err := callEntry(entry, abs, s)
	if err != nil {
		if s.onFailure != nil {
			s.onFailure(abs, err)
		}
		return nil, diag.Wrap(err, diag.InitializationFailure, reportModule, "failed to init module %s", abs)
	}
	if mod == nil {
		return nil, diag.Errorf(diag.InitializationFailure, reportModule, "failed to init module %s: no module returned", abs)
	}

	info, err := readInfo(mod)
	if err != nil {
		if s.onFailure != nil {
			s.onFailure(abs, err)
		}
		return nil, diag.Wrap(err, diag.InitializationFailure, reportModule, "failed to init module %s", abs)
	}
	base := filepath.Dir(abs)
	for _, p := range info.SearchPaths {
		dir := p
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, p)
		}
		if err := s.search.Add(dir); err != nil {
			s.reporter.Reportf(diag.LevelError, reportModule, "failed to add search path for %s: %v", info.Name, err)
		}
	}
	s.checkVersion(info)

	owned = true
	return newLibrary(mod, info, img, abs), nil
}

func (s *System) checkVersion(info ModuleInfo) {
	if version.Compatible(info.BusVersion) {
		return
	}
	s.reporter.Reportf(diag.LevelWarning, reportModule,
		"module %s [guid=%s] was built against bus %q, running %s", info.Name, info.GUID, info.BusVersion, version.Bus)
}

func entryPoint(sym any) (EntryFunc, bool) {
	switch fn := sym.(type) {
	case func(string, *System) (Module, error):
		return fn, fn != nil
	case *func(string, *System) (Module, error):
		if fn != nil && *fn != nil {
			return *fn, true
		}
	case EntryFunc:
		return fn, fn != nil
	}
	return nil, false
}

func callEntry(entry EntryFunc, path string, sys *System) (mod Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return entry(path, sys)
}

// readInfo is the only call to Module.Info; the result is kept on the
// Library. A typed nil module panics here too.
func readInfo(mod Module) (info ModuleInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			info, err = ModuleInfo{}, fmt.Errorf("panic: %v", r)
		}
	}()
	return mod.Info(), nil
}

func callGenerator(gen Generator, sys *System) (mod Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return gen(sys)
}
