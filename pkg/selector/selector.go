// Package selector provides Select trait implementations that choose one
// implementation when several modules offer the same interface.
package selector

import (
	"golang.org/x/mod/semver"

	"github.com/systemshift/bus/internal/version"
	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/guid"
	"github.com/systemshift/bus/pkg/trait"
)

// Candidate is one implementation offered to a selector
type Candidate struct {
	Module guid.GUID
	Impl   guid.GUID
	Class  guid.GUID
}

// Policy picks among the candidates offered for target. It returns false
// when none is acceptable.
type Policy func(target guid.GUID, cands []Candidate) (guid.GUID, bool)

// Selector collects candidates and applies a Policy to them
type Selector struct {
	policy Policy
	target guid.GUID
	cands  []Candidate
}

var table = &trait.SelectVTable{
	SetTarget: func(obj trait.Object, _ trait.OpID, id guid.GUID) {
		s := obj.(*Selector)
		s.target = id
		s.cands = s.cands[:0]
	},
	SetTargetID: trait.Select.OpID("setTarget"),
	AddPotential: func(obj trait.Object, _ trait.OpID, module, impl, class guid.GUID) {
		s := obj.(*Selector)
		s.cands = append(s.cands, Candidate{Module: module, Impl: impl, Class: class})
	},
	AddPotentialID: trait.Select.OpID("addPotential"),
	Best: func(obj trait.Object, _ trait.OpID) guid.GUID {
		s := obj.(*Selector)
		if best, ok := s.policy(s.target, s.cands); ok {
			return best
		}
		return guid.Nil
	},
	BestID: trait.Select.OpID("best"),
}

// New returns a Select trait backed by policy
func New(policy Policy) trait.Trait[trait.SelectVTable] {
	return trait.Trait[trait.SelectVTable]{
		Handle: &Selector{policy: policy},
		VTable: table,
	}
}

// VTable implements trait.Object
func (s *Selector) VTable(id guid.GUID) any {
	if id == trait.Select.ID {
		return table
	}
	return nil
}

// First picks the first candidate offered, which is the earliest loaded module
func First(_ guid.GUID, cands []Candidate) (guid.GUID, bool) {
	if len(cands) == 0 {
		return guid.Nil, false
	}
	return cands[0].Impl, true
}

// HighestVersion picks the candidate whose module declares the highest
// semantic version. Modules without a valid version lose to any module with
// one; ties go to the earliest loaded module.
func HighestVersion(sys *bus.System) Policy {
	return func(_ guid.GUID, cands []Candidate) (guid.GUID, bool) {
		var best guid.GUID
		bestVersion := ""
		found := false
		for _, c := range cands {
			v := ""
			if lib, ok := sys.Library(c.Module); ok {
				v = version.Canonical(lib.Info().Version)
			}
			if !found || semver.Compare(v, bestVersion) > 0 {
				best, bestVersion, found = c.Impl, v, true
			}
		}
		return best, found
	}
}

// Prefer tries ids in order and picks the first candidate whose
// implementation, module or class id matches
func Prefer(ids ...guid.GUID) Policy {
	return func(_ guid.GUID, cands []Candidate) (guid.GUID, bool) {
		for _, id := range ids {
			for _, c := range cands {
				if c.Impl == id || c.Module == id || c.Class == id {
					return c.Impl, true
				}
			}
		}
		return guid.Nil, false
	}
}

// Class picks the first candidate of the given class
func Class(class guid.GUID) Policy {
	return func(_ guid.GUID, cands []Candidate) (guid.GUID, bool) {
		for _, c := range cands {
			if c.Class == class {
				return c.Impl, true
			}
		}
		return guid.Nil, false
	}
}

// Chain tries each policy in turn
func Chain(policies ...Policy) Policy {
	return func(target guid.GUID, cands []Candidate) (guid.GUID, bool) {
		for _, p := range policies {
			if best, ok := p(target, cands); ok {
				return best, true
			}
		}
		return guid.Nil, false
	}
}
