package diag

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Location identifies where an event was reported or an error was raised
type Location struct {
	Module   string
	File     string
	Function string
	Line     int
}

// Here returns the location of its caller
func Here(module string) Location {
	return caller(module, 2)
}

func (l Location) String() string {
	return fmt.Sprintf("%s %s:%d (%s)", l.Module, filepath.Base(l.File), l.Line, l.Function)
}

// caller returns the location skip frames above caller itself
func caller(module string, skip int) Location {
	loc := Location{Module: module}
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return loc
	}
	loc.File = file
	loc.Line = line
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = fn.Name()
	}
	return loc
}
