package policy

// ConsumedDays sums the inclusive spans of the user's approved and pending
// requests of the given type.
func ConsumedDays(entries []Entry, userID string, t LeaveType) int {
	return ConsumedDaysExcluding(entries, userID, t, "")
}

// ConsumedDaysExcluding is ConsumedDays without the request identified by
// excludeID, so an edited request is not counted against itself.
func ConsumedDaysExcluding(entries []Entry, userID string, t LeaveType, excludeID string) int {
	total := 0
	for _, e := range entries {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		if e.OwnerID != userID || e.Type != t || !e.Status.Counts() {
			continue
		}
		total += Days(e.StartDate, e.EndDate)
	}
	return total
}

// Decision is the outcome of classifying a candidate request.
type Decision struct {
	Days     int    `json:"days"`
	Consumed int    `json:"consumed"`
	Total    int    `json:"total"`
	Status   Status `json:"status"`
}

// Decide classifies candidate against the owner's existing entries. When the
// candidate already exists (an edit) its stored version is skipped.
func (p Policy) Decide(entries []Entry, candidate Entry) (Decision, error) {
	th, err := p.Thresholds(candidate.Type)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Days:     Days(candidate.StartDate, candidate.EndDate),
		Consumed: ConsumedDaysExcluding(entries, candidate.OwnerID, candidate.Type, candidate.ID),
	}
	d.Total = d.Consumed + d.Days
	d.Status = th.Resolve(d.Total)
	return d, nil
}

// TypeBalance is the per-type balance view shown to users.
type TypeBalance struct {
	Type                  LeaveType `json:"type"`
	Allocation            int       `json:"allocation"`
	Ceiling               int       `json:"ceiling"`
	ApprovedDays          int       `json:"approvedDays"`
	PendingDays           int       `json:"pendingDays"`
	ConsumedDays          int       `json:"consumedDays"`
	RemainingBeforeReview int       `json:"remainingBeforeReview"`
	RemainingBeforeReject int       `json:"remainingBeforeReject"`
}

func (p Policy) Summarize(entries []Entry, userID string) []TypeBalance {
	out := make([]TypeBalance, 0, len(Types))
	for _, t := range Types {
		th, ok := p[t]
		if !ok {
			continue
		}
		b := TypeBalance{Type: t, Allocation: th.Allocation, Ceiling: th.Ceiling}
		for _, e := range entries {
			if e.OwnerID != userID || e.Type != t {
				continue
			}
			switch e.Status {
			case StatusApproved:
				b.ApprovedDays += Days(e.StartDate, e.EndDate)
			case StatusPending:
				b.PendingDays += Days(e.StartDate, e.EndDate)
			}
		}
		b.ConsumedDays = b.ApprovedDays + b.PendingDays
		b.RemainingBeforeReview = th.Allocation - b.ConsumedDays
		b.RemainingBeforeReject = th.Ceiling - b.ConsumedDays
		out = append(out, b)
	}
	return out
}
