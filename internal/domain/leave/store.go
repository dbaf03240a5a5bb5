package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leavetrack/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const requestColumns = `id, owner_id, type, start_date, end_date, days, reason, status, COALESCE(reviewed_by, ''), review_note, created_at, updated_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	err := row.Scan(&req.ID, &req.OwnerID, &req.Type, &req.StartDate, &req.EndDate, &req.Days, &req.Reason,
		&req.Status, &req.ReviewedBy, &req.ReviewNote, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	return req, err
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) CreateRequest(ctx context.Context, req LeaveRequest) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_requests (id, owner_id, type, start_date, end_date, days, reason, status, reviewed_by, review_note, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
  `, req.ID, req.OwnerID, req.Type, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status,
		nullString(req.ReviewedBy), req.ReviewNote, req.CreatedAt, req.UpdatedAt)
	return err
}

func (s *Store) GetRequest(ctx context.Context, id string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = $1", id))
	if err != nil {
		return LeaveRequest{}, err
	}
	comments, err := s.listComments(ctx, []string{id})
	if err != nil {
		return LeaveRequest{}, err
	}
	req.Comments = commentsOrEmpty(comments[id])
	return req, nil
}

func (s *Store) UpdateRequest(ctx context.Context, req LeaveRequest) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET type = $1, start_date = $2, end_date = $3, days = $4, reason = $5, status = $6,
        reviewed_by = $7, review_note = $8, updated_at = $9
    WHERE id = $10
  `, req.Type, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status,
		nullString(req.ReviewedBy), req.ReviewNote, req.UpdatedAt, req.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leave_requests WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE owner_id = $1", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) ListRequests(ctx context.Context, filter ListFilter) (RequestListResult, error) {
	where, args := buildFilter(filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := "SELECT " + requestColumns + " FROM leave_requests" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	var ids []string
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		requests = append(requests, req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return RequestListResult{}, err
	}

	comments, err := s.listComments(ctx, ids)
	if err != nil {
		return RequestListResult{}, err
	}
	for i := range requests {
		requests[i].Comments = commentsOrEmpty(comments[requests[i].ID])
	}
	return RequestListResult{Requests: requests, Total: total}, nil
}

func buildFilter(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if len(filter.OwnerIDs) > 0 {
		args = append(args, filter.OwnerIDs)
		where += fmt.Sprintf(" AND owner_id = ANY($%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	return where, args
}

func (s *Store) AddComment(ctx context.Context, requestID string, comment Comment) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_comments (id, leave_request_id, user_id, text, created_at)
    VALUES ($1,$2,$3,$4,$5)
  `, comment.ID, requestID, comment.UserID, comment.Text, comment.CreatedAt)
	return err
}

func (s *Store) listComments(ctx context.Context, requestIDs []string) (map[string][]Comment, error) {
	out := map[string][]Comment{}
	if len(requestIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT leave_request_id, id, user_id, text, created_at
    FROM leave_comments
    WHERE leave_request_id = ANY($1)
    ORDER BY created_at, id
  `, requestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var requestID string
		var c Comment
		if err := rows.Scan(&requestID, &c.ID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[requestID] = append(out[requestID], c)
	}
	return out, rows.Err()
}

func commentsOrEmpty(c []Comment) []Comment {
	if c == nil {
		return []Comment{}
	}
	return c
}
