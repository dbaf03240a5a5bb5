package audit

import (
	"context"
	"encoding/json"
	"time"
)

const (
	ActionLeaveCreate  = "leave.create"
	ActionLeaveUpdate  = "leave.update"
	ActionLeaveReview  = "leave.review"
	ActionLeaveComment = "leave.comment"
	ActionLeaveDelete  = "leave.delete"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type StoreAPI interface {
	Insert(ctx context.Context, evt Event) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error)
}
