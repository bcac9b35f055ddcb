package trait

import "github.com/systemshift/bus/pkg/guid"

// Select picks one implementation among several candidates for a trait.
// The caller sets the target, offers every candidate, then asks for the best.
var Select = Define[SelectVTable]("{64AEA631-683B-40CD-BB9A-B42F8482B0DA}", "Select", "setTarget", "addPotential", "best")

type SelectVTable struct {
	SetTarget      func(obj Object, op OpID, trait guid.GUID)
	SetTargetID    OpID
	AddPotential   func(obj Object, op OpID, module, impl, class guid.GUID)
	AddPotentialID OpID
	Best           func(obj Object, op OpID) guid.GUID
	BestID         OpID
}

// SetTarget starts a selection round for a trait
func SetTarget(t Trait[SelectVTable], id guid.GUID) {
	t.VTable.SetTarget(t.Handle, t.VTable.SetTargetID, id)
}

// AddPotential offers one candidate
func AddPotential(t Trait[SelectVTable], module, impl, class guid.GUID) {
	t.VTable.AddPotential(t.Handle, t.VTable.AddPotentialID, module, impl, class)
}

// Best returns the chosen identifier, or guid.Nil
func Best(t Trait[SelectVTable]) guid.GUID {
	return t.VTable.Best(t.Handle, t.VTable.BestID)
}
