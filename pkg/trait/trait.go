// Package trait implements the binary-contract side of the module system.
//
// A trait is an identifier plus an ordered set of operations. Providers hand
// out opaque Objects; a consumer asks an Object for the function table of a
// trait it knows and calls through the table, passing the Object back as the
// first argument and the operation's id as the second. Tables only ever grow
// at the end, so a consumer that knows an older, shorter shape keeps working.
package trait

import (
	"fmt"

	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
)

// OpID identifies an operation within a trait. IDs never change while the
// process runs.
type OpID uint64

// Op is one operation of a trait
type Op struct {
	Name string
	ID   OpID
}

// Object is an opaque implementation handle. Consumers only pass it back to
// the functions of a table obtained from it.
type Object interface {
	// VTable returns the table for the trait id, or nil if unsupported
	VTable(id guid.GUID) any
}

// Lease is an Object whose usability depends on something it does not own,
// such as the library that produced it.
type Lease interface {
	Object
	Target() Object
	Valid() bool
}

// Tables is a ready-made Object: a map from trait id to table
type Tables map[guid.GUID]any

// VTable implements Object
func (t Tables) VTable(id guid.GUID) any {
	return t[id]
}

// Descriptor fixes a trait's identity and operations. V is the table shape.
type Descriptor[V any] struct {
	ID   guid.GUID
	Name string
	Ops  []Op
}

// Define declares a trait. Operation ids follow declaration order, starting at 1.
func Define[V any](id, name string, ops ...string) *Descriptor[V] {
	d := &Descriptor[V]{
		ID:   guid.MustParse(id),
		Name: name,
		Ops:  make([]Op, len(ops)),
	}
	for i, op := range ops {
		d.Ops[i] = Op{Name: op, ID: OpID(i + 1)}
	}
	return d
}

// OpID returns the id of the named operation, or 0
func (d *Descriptor[V]) OpID(name string) OpID {
	for _, op := range d.Ops {
		if op.Name == name {
			return op.ID
		}
	}
	return 0
}

func (d *Descriptor[V]) String() string {
	return fmt.Sprintf("%s %s", d.Name, d.ID)
}

// Trait is a handle paired with one of its tables
type Trait[V any] struct {
	Handle Object
	VTable *V
	lease  Lease
}

// Valid reports whether the trait may still be called through
func (t Trait[V]) Valid() bool {
	if t.VTable == nil {
		return false
	}
	return t.lease == nil || t.lease.Valid()
}

// ViewAs asks obj for the table of d. Leases are looked through, and the
// returned trait stays tied to the lease's validity.
func ViewAs[V any](obj Object, d *Descriptor[V]) (Trait[V], error) {
	if obj == nil {
		return Trait[V]{}, diag.Errorf(diag.TraitMismatch, "trait", "nil object has no %s table", d)
	}

	handle := obj
	lease, leased := obj.(Lease)
	if leased {
		if !lease.Valid() {
			return Trait[V]{}, diag.Errorf(diag.TraitMismatch, "trait", "object for %s outlived its module", d)
		}
		handle = lease.Target()
	}

	table, ok := handle.VTable(d.ID).(*V)
	if !ok || table == nil {
		return Trait[V]{}, diag.Errorf(diag.TraitMismatch, "trait", "%T does not implement %s", handle, d)
	}

	t := Trait[V]{Handle: handle, VTable: table}
	if leased {
		t.lease = lease
	}
	return t, nil
}

// Implements reports whether obj offers a table for the trait id
func Implements(obj Object, id guid.GUID) bool {
	if obj == nil {
		return false
	}
	if lease, ok := obj.(Lease); ok {
		if !lease.Valid() {
			return false
		}
		obj = lease.Target()
	}
	return obj.VTable(id) != nil
}
