// Package discovery finds module files in directories and loads them into
// a bus System, once at startup or continuously as files appear.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/systemshift/bus/pkg/diag"
)

const reportModule = "Discovery"

// Loader is the part of *bus.System discovery drives
type Loader interface {
	LoadModuleFile(path string) error
	Loaded(path string) bool
	Extensions() []string
	Reporter() *diag.Reporter
}

// Observer is told the outcome of every load attempt
type Observer func(path string, err error)

// Scan loads every file in dir whose extension has an opener, in lexical
// order. A failed load is reported and the scan goes on; the failures are
// returned joined. Files already loaded are skipped.
func Scan(l Loader, dir string, observe Observer) error {
	return ScanLocked(l, nopLocker{}, dir, observe)
}

// ScanLocked is Scan with every load made while holding guard
func ScanLocked(l Loader, guard sync.Locker, dir string, observe Observer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = diag.Wrap(err, diag.LoadFailure, reportModule, "failed to scan %s", dir)
		diag.Unwind(l.Reporter(), err)
		return err
	}

	guard.Lock()
	exts := extensionSet(l.Extensions())
	guard.Unlock()

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !exts[filepath.Ext(entry.Name())] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		guard.Lock()
		err := load(l, path, observe)
		guard.Unlock()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func load(l Loader, path string, observe Observer) error {
	if l.Loaded(path) {
		return nil
	}
	err := l.LoadModuleFile(path)
	if err != nil {
		diag.Unwind(l.Reporter(), err)
	} else {
		l.Reporter().Reportf(diag.LevelInfo, reportModule, "loaded %s", path)
	}
	if observe != nil {
		observe(path, err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[ext] = true
	}
	return set
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}
