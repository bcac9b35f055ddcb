package bus

import (
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// Candidate is one implementation offered to a selector
type Candidate struct {
	Function FunctionID
	Impl     guid.GUID
	Class    guid.GUID
}

// Candidates lists every implementation of iface with its implementation
// and class ids, in load order
func (s *System) Candidates(iface guid.GUID) []Candidate {
	var cands []Candidate
	for _, lib := range s.live() {
		classes, _ := lib.module.(ClassLister)
		for _, name := range lib.module.List(iface) {
			fn := FunctionID{Module: lib.GUID(), Name: name}
			c := Candidate{Function: fn, Impl: fn.ImplID(), Class: fn.ImplID()}
			if classes != nil {
				if class, ok := classes.Class(iface, name); ok {
					c.Class = class
				}
			}
			cands = append(cands, c)
		}
	}
	return cands
}

// SelectAndInstantiate lets sel choose among every implementation of iface.
// The selector's answer may name an implementation id, a module id (its
// first implementation is used) or a class id (the first implementation of
// that class is used).
func (s *System) SelectAndInstantiate(iface guid.GUID, sel trait.Trait[trait.SelectVTable]) (*Instance, error) {
	if !sel.Valid() {
		return nil, diag.New(diag.TraitMismatch, reportModule, "selector is not usable")
	}

	cands := s.Candidates(iface)
	trait.SetTarget(sel, iface)
	for _, c := range cands {
		trait.AddPotential(sel, c.Function.Module, c.Impl, c.Class)
	}
	best := trait.Best(sel)

	if c, ok := pick(cands, func(c Candidate) bool { return c.Impl == best }); ok {
		return s.Instantiate(c.Function)
	}
	if c, ok := pick(cands, func(c Candidate) bool { return c.Function.Module == best }); ok {
		return s.Instantiate(c.Function)
	}
	if c, ok := pick(cands, func(c Candidate) bool { return c.Class == best }); ok {
		return s.Instantiate(c.Function)
	}
	return nil, diag.Errorf(diag.NotFound, reportModule,
		"selector chose %s, which is not one of %d candidates for interface %s", best, len(cands), iface)
}

func pick(cands []Candidate, match func(Candidate) bool) (Candidate, bool) {
	for _, c := range cands {
		if match(c) {
			return c, true
		}
	}
	return Candidate{}, false
}

// HasImplFor reports whether any module offers an implementation of iface
// belonging to class
func (s *System) HasImplFor(iface, class guid.GUID) bool {
	_, ok := pick(s.Candidates(iface), func(c Candidate) bool { return c.Class == class })
	return ok
}
