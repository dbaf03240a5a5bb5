// Package policy holds the leave-balance rules shared by every path that
// classifies or reports on leave requests. It has no storage or transport
// dependencies.
package policy

import (
	"strings"
	"time"
)

type LeaveType string

const (
	TypeAnnual   LeaveType = "annual"
	TypeSick     LeaveType = "sick"
	TypePersonal LeaveType = "personal"
)

// Types lists the supported leave types in display order.
var Types = []LeaveType{TypeAnnual, TypeSick, TypePersonal}

func ParseType(value string) (LeaveType, bool) {
	t := LeaveType(strings.ToLower(strings.TrimSpace(value)))
	switch t {
	case TypeAnnual, TypeSick, TypePersonal:
		return t, true
	}
	return "", false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

// Counts reports whether a request with this status draws on the balance.
func (s Status) Counts() bool {
	return s == StatusApproved || s == StatusPending
}

// Entry is the view of a leave request the aggregator needs.
type Entry struct {
	ID        string
	OwnerID   string
	Type      LeaveType
	StartDate time.Time
	EndDate   time.Time
	Status    Status
}
