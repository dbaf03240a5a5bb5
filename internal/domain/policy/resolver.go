package policy

import (
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown leave type")

// Thresholds bound one leave type. Totals at or below Allocation are
// approved, totals at or above Ceiling are rejected, anything between waits
// for a reviewer.
type Thresholds struct {
	Allocation int `json:"allocation"`
	Ceiling    int `json:"ceiling"`
}

func (t Thresholds) Resolve(total int) Status {
	switch {
	case total <= t.Allocation:
		return StatusApproved
	case total < t.Ceiling:
		return StatusPending
	default:
		return StatusRejected
	}
}

// Margin is the number of days above the allocation that still go to review.
func (t Thresholds) Margin() int {
	return t.Ceiling - t.Allocation
}

type Policy map[LeaveType]Thresholds

func DefaultPolicy() Policy {
	return Policy{
		TypeAnnual:   {Allocation: 20, Ceiling: 35},
		TypeSick:     {Allocation: 12, Ceiling: 27},
		TypePersonal: {Allocation: 5, Ceiling: 20},
	}
}

func (p Policy) Thresholds(t LeaveType) (Thresholds, error) {
	th, ok := p[t]
	if !ok {
		return Thresholds{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return th, nil
}

func (p Policy) Resolve(t LeaveType, total int) (Status, error) {
	th, err := p.Thresholds(t)
	if err != nil {
		return "", err
	}
	return th.Resolve(total), nil
}

// ForAllocation returns a copy of p where each type's allocation is replaced
// by the user's allocation and the ceiling moves with it, keeping the margin.
// Zero allocations keep the policy default.
func (p Policy) ForAllocation(a Allocation) Policy {
	out := make(Policy, len(p))
	for t, th := range p {
		custom := a.Of(t)
		if custom <= 0 {
			out[t] = th
			continue
		}
		out[t] = Thresholds{Allocation: custom, Ceiling: custom + th.Margin()}
	}
	return out
}

// Resolve classifies a total against the default policy.
func Resolve(t LeaveType, total int) (Status, error) {
	return DefaultPolicy().Resolve(t, total)
}

// Allocation is a user's standard allocation per leave type.
type Allocation struct {
	Annual   int `json:"annual"`
	Sick     int `json:"sick"`
	Personal int `json:"personal"`
}

func DefaultAllocation() Allocation {
	p := DefaultPolicy()
	return Allocation{
		Annual:   p[TypeAnnual].Allocation,
		Sick:     p[TypeSick].Allocation,
		Personal: p[TypePersonal].Allocation,
	}
}

func (a Allocation) Of(t LeaveType) int {
	switch t {
	case TypeAnnual:
		return a.Annual
	case TypeSick:
		return a.Sick
	case TypePersonal:
		return a.Personal
	}
	return 0
}
