package bus

import (
	"slices"
	"strings"

	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
)

// ResolveName turns a human supplied name into a FunctionID. It accepts
//
//	name            a function name offered by exactly one module
//	Module.name     scoped to modules whose display name is Module
//	{GUID}.name     scoped to the module with that GUID
//
// The text is split at the last '.'. Every failure is reported through the
// reporter at error level and returned, so callers can retry with a more
// qualified name.
func (s *System) ResolveName(text string, iface guid.GUID) (FunctionID, error) {
	pos := strings.LastIndexByte(text, '.')
	if pos < 0 {
		return s.resolveBare(text, iface)
	}

	prefix, name := text[:pos], text[pos+1:]
	if id, err := guid.Parse(prefix); err == nil {
		return s.resolveByGUID(id, name, iface)
	}
	return s.resolveByDisplayName(prefix, name, iface)
}

func (s *System) resolveBare(name string, iface guid.GUID) (FunctionID, error) {
	match, count := s.scan(name, iface, func(*Library) bool { return true })
	switch count {
	case 0:
		return s.fail(diag.Errorf(diag.NotFound, reportModule, "no function called %s [interface=%s]", name, iface))
	case 1:
		return FunctionID{Module: match, Name: name}, nil
	default:
		return s.fail(diag.Errorf(diag.AmbiguousName, reportModule,
			"function %s is defined by more than one module [interface=%s]; qualify it with a module name or GUID", name, iface))
	}
}

func (s *System) resolveByDisplayName(module, name string, iface guid.GUID) (FunctionID, error) {
	match, count := s.scan(name, iface, func(lib *Library) bool { return lib.info.Name == module })
	switch count {
	case 0:
		return s.fail(diag.Errorf(diag.NotFound, reportModule, "no function called %s.%s [interface=%s]", module, name, iface))
	case 1:
		return FunctionID{Module: match, Name: name}, nil
	default:
		return s.fail(diag.Errorf(diag.AmbiguousName, reportModule,
			"more than one module named %s offers %s [interface=%s]; use the module GUID instead", module, name, iface))
	}
}

func (s *System) resolveByGUID(id guid.GUID, name string, iface guid.GUID) (FunctionID, error) {
	lib, ok := s.lookup(id)
	if !ok {
		return s.fail(diag.Errorf(diag.ModuleNotFound, reportModule, "no module's GUID is %s", id))
	}
	if !slices.Contains(lib.module.List(iface), name) {
		return s.fail(diag.Errorf(diag.ImplementationNotFound, reportModule,
			"module %s [name=%s] doesn't have function called %s [interface=%s]", id, lib.info.Name, name, iface))
	}
	return FunctionID{Module: id, Name: name}, nil
}

// scan counts the modules accepted by keep that offer name, stopping as
// soon as a second one is found
func (s *System) scan(name string, iface guid.GUID, keep func(*Library) bool) (guid.GUID, int) {
	var match guid.GUID
	count := 0
	for _, lib := range s.live() {
		if !keep(lib) || !slices.Contains(lib.module.List(iface), name) {
			continue
		}
		count++
		if count > 1 {
			break
		}
		match = lib.GUID()
	}
	return match, count
}

func (s *System) fail(err error) (FunctionID, error) {
	diag.Unwind(s.reporter, err)
	return FunctionID{}, err
}

// InstantiateByName resolves text and instantiates the result
func (s *System) InstantiateByName(text string, iface guid.GUID) (*Instance, error) {
	id, err := s.ResolveName(text, iface)
	if err != nil {
		return nil, diag.Trace(err, reportModule)
	}
	return s.Instantiate(id)
}

// InstantiateOne instantiates the only implementation of iface across all
// modules
func (s *System) InstantiateOne(iface guid.GUID) (*Instance, error) {
	funcs := s.ListFunctions(iface)
	switch len(funcs) {
	case 0:
		return nil, diag.Errorf(diag.NotFound, reportModule, "no implementation of interface %s", iface)
	case 1:
		return s.Instantiate(funcs[0])
	default:
		return nil, diag.Errorf(diag.AmbiguousName, reportModule,
			"interface %s has %d implementations; pick one by name or with a selector", iface, len(funcs))
	}
}
