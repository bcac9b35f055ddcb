package bus

import (
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// Instance is an implementation object leased from a loaded module. It
// stops answering once the module's library starts teardown.
type Instance struct {
	obj     trait.Object
	lib     *Library
	id      FunctionID
	dropped bool
}

// VTable implements trait.Object
func (i *Instance) VTable(id guid.GUID) any {
	if !i.Valid() {
		return nil
	}
	return i.obj.VTable(id)
}

// Target implements trait.Lease
func (i *Instance) Target() trait.Object {
	return i.obj
}

// Valid implements trait.Lease
func (i *Instance) Valid() bool {
	return !i.dropped && i.lib.Alive()
}

// ID returns the function the instance was created from
func (i *Instance) ID() FunctionID {
	return i.id
}

// Drop releases the object through its Drop table, if it has one. Further
// calls are no-ops.
func (i *Instance) Drop() {
	if !i.Valid() {
		return
	}
	d, err := trait.ViewAs(i.obj, trait.Drop)
	i.dropped = true
	if err != nil {
		return
	}
	d.VTable.Drop(d.Handle, d.VTable.DropID)
}

// View returns the instance's table for d. The result becomes invalid once
// the owning module is unloaded.
func View[V any](inst *Instance, d *trait.Descriptor[V]) (trait.Trait[V], error) {
	if inst == nil {
		return trait.ViewAs[V](nil, d)
	}
	return trait.ViewAs[V](inst, d)
}
