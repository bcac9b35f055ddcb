package interp

import (
	"go/constant"
	"go/token"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// Symbols exposes the framework packages to interpreted modules, keyed the
// way yaegi expects: import path, then package name.
var Symbols = interp.Exports{
	"github.com/systemshift/bus/pkg/bus/bus": {
		// function, constant and variable definitions
		"EntrySymbol":     reflect.ValueOf(constant.MakeFromLiteral("\"BusInitModule\"", token.STRING, 0)),
		"NewFunctionBase": reflect.ValueOf(bus.NewFunctionBase),

		// type definitions
		"ClassLister":  reflect.ValueOf((*bus.ClassLister)(nil)),
		"EntryFunc":    reflect.ValueOf((*bus.EntryFunc)(nil)),
		"Function":     reflect.ValueOf((*bus.Function)(nil)),
		"FunctionBase": reflect.ValueOf((*bus.FunctionBase)(nil)),
		"FunctionID":   reflect.ValueOf((*bus.FunctionID)(nil)),
		"Generator":    reflect.ValueOf((*bus.Generator)(nil)),
		"Instance":     reflect.ValueOf((*bus.Instance)(nil)),
		"Module":       reflect.ValueOf((*bus.Module)(nil)),
		"ModuleInfo":   reflect.ValueOf((*bus.ModuleInfo)(nil)),
		"Static":       reflect.ValueOf((*bus.Static)(nil)),
		"System":       reflect.ValueOf((*bus.System)(nil)),

		// interface wrapper definitions
		"_ClassLister": reflect.ValueOf((*_github_com_systemshift_bus_pkg_bus_ClassLister)(nil)),
		"_Module":      reflect.ValueOf((*_github_com_systemshift_bus_pkg_bus_Module)(nil)),
	},
	"github.com/systemshift/bus/pkg/guid/guid": {
		"MustParse": reflect.ValueOf(guid.MustParse),
		"New":       reflect.ValueOf(guid.New),
		"Nil":       reflect.ValueOf(&guid.Nil).Elem(),
		"Parse":     reflect.ValueOf(guid.Parse),

		"GUID": reflect.ValueOf((*guid.GUID)(nil)),
	},
	"github.com/systemshift/bus/pkg/trait/trait": {
		"BigEndian":     reflect.ValueOf(trait.BigEndian),
		"Display":       reflect.ValueOf(&trait.Display).Elem(),
		"DisplayString": reflect.ValueOf(trait.DisplayString),
		"Hash":          reflect.ValueOf(&trait.Hash).Elem(),
		"Implements":    reflect.ValueOf(trait.Implements),
		"LittleEndian":  reflect.ValueOf(trait.LittleEndian),

		"Data":          reflect.ValueOf((*trait.Data)(nil)),
		"DisplayVTable": reflect.ValueOf((*trait.DisplayVTable)(nil)),
		"Endian":        reflect.ValueOf((*trait.Endian)(nil)),
		"HashVTable":    reflect.ValueOf((*trait.HashVTable)(nil)),
		"Object":        reflect.ValueOf((*trait.Object)(nil)),
		"OpID":          reflect.ValueOf((*trait.OpID)(nil)),
		"Tables":        reflect.ValueOf((*trait.Tables)(nil)),

		"_Object": reflect.ValueOf((*_github_com_systemshift_bus_pkg_trait_Object)(nil)),
	},
	"github.com/systemshift/bus/pkg/diag/diag": {
		"LevelDebug":   reflect.ValueOf(diag.LevelDebug),
		"LevelError":   reflect.ValueOf(diag.LevelError),
		"LevelInfo":    reflect.ValueOf(diag.LevelInfo),
		"LevelWarning": reflect.ValueOf(diag.LevelWarning),
		"New":          reflect.ValueOf(diag.New),
		"Errorf":       reflect.ValueOf(diag.Errorf),

		"Level":    reflect.ValueOf((*diag.Level)(nil)),
		"Reporter": reflect.ValueOf((*diag.Reporter)(nil)),
	},
}

// _github_com_systemshift_bus_pkg_bus_ClassLister is an interface wrapper for ClassLister type
type _github_com_systemshift_bus_pkg_bus_ClassLister struct {
	IValue interface{}
	WClass func(iface guid.GUID, name string) (guid.GUID, bool)
}

func (W _github_com_systemshift_bus_pkg_bus_ClassLister) Class(iface guid.GUID, name string) (guid.GUID, bool) {
	return W.WClass(iface, name)
}

// _github_com_systemshift_bus_pkg_bus_Module is an interface wrapper for Module type
type _github_com_systemshift_bus_pkg_bus_Module struct {
	IValue       interface{}
	WInfo        func() bus.ModuleInfo
	WInstantiate func(name string) trait.Object
	WList        func(iface guid.GUID) []string
}

func (W _github_com_systemshift_bus_pkg_bus_Module) Info() bus.ModuleInfo {
	return W.WInfo()
}
func (W _github_com_systemshift_bus_pkg_bus_Module) Instantiate(name string) trait.Object {
	return W.WInstantiate(name)
}
func (W _github_com_systemshift_bus_pkg_bus_Module) List(iface guid.GUID) []string {
	return W.WList(iface)
}

// _github_com_systemshift_bus_pkg_trait_Object is an interface wrapper for Object type
type _github_com_systemshift_bus_pkg_trait_Object struct {
	IValue  interface{}
	WVTable func(id guid.GUID) any
}

func (W _github_com_systemshift_bus_pkg_trait_Object) VTable(id guid.GUID) any {
	return W.WVTable(id)
}
