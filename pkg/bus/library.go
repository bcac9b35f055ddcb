package bus

import (
	"errors"
	"io"
	"slices"
	"sync/atomic"

	"github.com/systemshift/bus/pkg/guid"
)

// Library binds a module to whatever keeps its code mapped. Built-in modules
// have no image.
type Library struct {
	module Module
	info   ModuleInfo
	image  Image
	path   string
	closed atomic.Bool
}

func newLibrary(mod Module, info ModuleInfo, img Image, path string) *Library {
	if path != "" {
		info.Path = path
	}
	return &Library{module: mod, info: info, image: img, path: path}
}

// Info returns the metadata read when the module was loaded. Path is the
// file it was loaded from; built-ins keep whatever they declared.
func (l *Library) Info() ModuleInfo {
	info := l.info
	info.SearchPaths = slices.Clone(info.SearchPaths)
	return info
}

// GUID returns the module's id
func (l *Library) GUID() guid.GUID {
	return l.info.GUID
}

// Module returns the live module, or nil once the library is closed
func (l *Library) Module() Module {
	if l.closed.Load() {
		return nil
	}
	return l.module
}

// Path returns the file the module was loaded from; empty for built-ins
func (l *Library) Path() string {
	return l.path
}

// Builtin reports whether the module was wrapped in-process
func (l *Library) Builtin() bool {
	return l.path == ""
}

// Alive reports whether the library has not started teardown
func (l *Library) Alive() bool {
	return !l.closed.Load()
}

// Close drops the module and then releases the image. Modules implementing
// io.Closer are closed first. Close is idempotent. A registered library
// closed directly stays in its System but is skipped by every lookup until
// it is unloaded.
func (l *Library) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	mod := l.module
	l.module = nil
	if c, ok := mod.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	if l.image != nil {
		errs = append(errs, l.image.Close())
		l.image = nil
	}

	return errors.Join(errs...)
}
