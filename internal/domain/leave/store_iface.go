package leave

import "context"

type StoreAPI interface {
	CreateRequest(ctx context.Context, req LeaveRequest) error
	GetRequest(ctx context.Context, id string) (LeaveRequest, error)
	UpdateRequest(ctx context.Context, req LeaveRequest) error
	DeleteRequest(ctx context.Context, id string) error
	// ListByOwner returns every request of the owner without comments.
	ListByOwner(ctx context.Context, ownerID string) ([]LeaveRequest, error)
	ListRequests(ctx context.Context, filter ListFilter) (RequestListResult, error)
	AddComment(ctx context.Context, requestID string, comment Comment) error
}
