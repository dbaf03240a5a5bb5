package policy

import (
	"errors"
	"testing"
)

func TestResolveBoundaries(t *testing.T) {
	cases := []struct {
		leaveType LeaveType
		total     int
		want      Status
	}{
		{TypeAnnual, 20, StatusApproved},
		{TypeAnnual, 21, StatusPending},
		{TypeAnnual, 34, StatusPending},
		{TypeAnnual, 35, StatusRejected},
		{TypeSick, 12, StatusApproved},
		{TypeSick, 13, StatusPending},
		{TypeSick, 26, StatusPending},
		{TypeSick, 27, StatusRejected},
		{TypePersonal, 5, StatusApproved},
		{TypePersonal, 6, StatusPending},
		{TypePersonal, 19, StatusPending},
		{TypePersonal, 20, StatusRejected},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.leaveType, tc.total)
		if err != nil {
			t.Fatalf("%s/%d: unexpected error: %v", tc.leaveType, tc.total, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%d: expected %s, got %s", tc.leaveType, tc.total, tc.want, got)
		}
	}
}

func TestResolveUnknownType(t *testing.T) {
	_, err := Resolve(LeaveType("sabbatical"), 1)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestForAllocationKeepsMargin(t *testing.T) {
	p := DefaultPolicy().ForAllocation(Allocation{Annual: 25, Sick: 0, Personal: 8})

	if th := p[TypeAnnual]; th.Allocation != 25 || th.Ceiling != 40 {
		t.Fatalf("unexpected annual thresholds: %+v", th)
	}
	if th := p[TypeSick]; th.Allocation != 12 || th.Ceiling != 27 {
		t.Fatalf("expected default sick thresholds, got %+v", th)
	}
	if th := p[TypePersonal]; th.Allocation != 8 || th.Ceiling != 23 {
		t.Fatalf("unexpected personal thresholds: %+v", th)
	}

	status, err := p.Resolve(TypeAnnual, 25)
	if err != nil || status != StatusApproved {
		t.Fatalf("expected approved at custom allocation, got %s (%v)", status, err)
	}
	if DefaultPolicy()[TypeAnnual].Allocation != 20 {
		t.Fatal("ForAllocation must not mutate the receiver")
	}
}

func TestDefaultAllocationMatchesPolicy(t *testing.T) {
	a := DefaultAllocation()
	if a.Annual != 20 || a.Sick != 12 || a.Personal != 5 {
		t.Fatalf("unexpected default allocation: %+v", a)
	}
	if len(DefaultPolicy().ForAllocation(a)) != len(Types) {
		t.Fatal("expected every type in policy")
	}
}

func TestParseTypeAndStatus(t *testing.T) {
	if lt, ok := ParseType(" Annual "); !ok || lt != TypeAnnual {
		t.Fatalf("expected annual, got %q %v", lt, ok)
	}
	if _, ok := ParseType("unpaid"); ok {
		t.Fatal("expected unpaid to be rejected")
	}
	if s, ok := ParseStatus("REJECTED"); !ok || s != StatusRejected {
		t.Fatalf("expected rejected, got %q %v", s, ok)
	}
	if _, ok := ParseStatus("cancelled"); ok {
		t.Fatal("expected cancelled to be rejected")
	}
}
