package leave

import (
	"time"

	"leavetrack/internal/domain/auth"
	"leavetrack/internal/domain/policy"
)

type LeaveRequest struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"ownerId"`
	Type       policy.LeaveType `json:"type"`
	StartDate  time.Time        `json:"startDate"`
	EndDate    time.Time        `json:"endDate"`
	Days       int              `json:"days"`
	Reason     string           `json:"reason"`
	Status     policy.Status    `json:"status"`
	ReviewedBy string           `json:"reviewedBy,omitempty"`
	ReviewNote string           `json:"reviewNote,omitempty"`
	Comments   []Comment        `json:"comments"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (r LeaveRequest) Entry() policy.Entry {
	return policy.Entry{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Type:      r.Type,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Status:    r.Status,
	}
}

func entries(reqs []LeaveRequest) []policy.Entry {
	out := make([]policy.Entry, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Entry())
	}
	return out
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Scope string

const (
	ScopeMine       Scope = "mine"
	ScopeAll        Scope = "all"
	ScopeDepartment Scope = "department"
)

// ListFilter is what the store understands. An empty OwnerIDs means every
// owner.
type ListFilter struct {
	OwnerIDs []string
	Status   policy.Status
	Type     policy.LeaveType
	Limit    int
	Offset   int
}

type ListQuery struct {
	Scope  Scope
	Status policy.Status
	Type   policy.LeaveType
	Limit  int
	Offset int
}

type RequestListResult struct {
	Requests []LeaveRequest
	Total    int
}

type SubmitInput struct {
	Type      policy.LeaveType
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

type EditInput = SubmitInput

type ReviewInput struct {
	Status policy.Status
	Note   string
}

type BalanceSummary struct {
	UserID     string               `json:"userId"`
	Allocation policy.Allocation    `json:"allocation"`
	Types      []policy.TypeBalance `json:"types"`
}

// Statement is one user's balance and request history.
type Statement struct {
	User     auth.User      `json:"user"`
	Balance  BalanceSummary `json:"balance"`
	Requests []LeaveRequest `json:"requests"`
}
