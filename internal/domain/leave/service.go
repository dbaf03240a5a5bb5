package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"leavetrack/internal/domain/audit"
	"leavetrack/internal/domain/auth"
	"leavetrack/internal/domain/policy"
	"leavetrack/internal/requestctx"
)

const (
	entityType       = "leave_request"
	balanceKeyPrefix = "leave:balance:"
	exportPageSize   = 500
)

func BalanceCacheKey(userID string) string {
	return balanceKeyPrefix + userID
}

type EditMode string

const (
	EditModeReresolve EditMode = "reresolve"
	EditModeReview    EditMode = "review"
)

// Directory resolves users for allocation and department checks.
type Directory interface {
	UserByID(ctx context.Context, id string) (auth.User, error)
	UserIDsByDepartment(ctx context.Context, department string) ([]string, error)
}

type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

type BalanceCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type DecisionRecorder interface {
	RecordDecision(status string)
}

type Options struct {
	Policy      policy.Policy
	EditMode    EditMode
	Locker      Locker
	LockTimeout time.Duration
	Cache       BalanceCache
	CacheTTL    time.Duration
	Audit       Auditor
	Metrics     DecisionRecorder
	Logger      *zap.Logger
	Now         func() time.Time
}

type Service struct {
	Store       StoreAPI
	Directory   Directory
	policy      policy.Policy
	editMode    EditMode
	locker      Locker
	lockTimeout time.Duration
	cache       BalanceCache
	cacheTTL    time.Duration
	audit       Auditor
	metrics     DecisionRecorder
	sf          *singleflight.Group
	logger      *zap.Logger
	now         func() time.Time

	genMu sync.Mutex
	gens  map[string]uint64
}

func NewService(store StoreAPI, directory Directory, opts Options) *Service {
	s := &Service{
		Store:       store,
		Directory:   directory,
		policy:      opts.Policy,
		editMode:    opts.EditMode,
		locker:      opts.Locker,
		lockTimeout: opts.LockTimeout,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		audit:       opts.Audit,
		metrics:     opts.Metrics,
		sf:          &singleflight.Group{},
		gens:        map[string]uint64{},
		logger:      zap.L().Named("leave.service"),
		now:         opts.Now,
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.Named("leave.service")
	}
	if s.policy == nil {
		s.policy = policy.DefaultPolicy()
	}
	if s.editMode == "" {
		s.editMode = EditModeReresolve
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = 5 * time.Second
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = time.Minute
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Submit classifies and stores a new request for the caller.
func (s *Service) Submit(ctx context.Context, actor auth.UserContext, in SubmitInput) (LeaveRequest, error) {
	in, err := s.prepareInput(in)
	if err != nil {
		return LeaveRequest{}, err
	}
	pol, err := s.policyFor(ctx, actor.UserID)
	if err != nil {
		return LeaveRequest{}, err
	}

	unlock, err := s.lock(ctx, actor.UserID, in.Type)
	if err != nil {
		return LeaveRequest{}, err
	}
	defer unlock()

	existing, err := s.Store.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("list owner requests: %w", err)
	}

	now := s.now()
	req := LeaveRequest{
		ID:        uuid.NewString(),
		OwnerID:   actor.UserID,
		Type:      in.Type,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Reason:    in.Reason,
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	decision, err := pol.Decide(entries(existing), req.Entry())
	if err != nil {
		return LeaveRequest{}, err
	}
	req.Days = decision.Days
	req.Status = decision.Status

	if err := s.Store.CreateRequest(ctx, req); err != nil {
		s.logger.Error("create leave request failed", zap.String("request_id", requestctx.GetRequestID(ctx)), zap.Error(err))
		return LeaveRequest{}, fmt.Errorf("create leave request: %w", err)
	}

	s.logger.Info("leave request submitted",
		zap.String("request_id", requestctx.GetRequestID(ctx)),
		zap.String("leave_id", req.ID),
		zap.String("owner_id", req.OwnerID),
		zap.String("type", string(req.Type)),
		zap.Int("days", decision.Days),
		zap.Int("total", decision.Total),
		zap.String("status", string(req.Status)),
	)
	s.recordDecision(req.Status)
	s.after(ctx, actor.UserID, audit.ActionLeaveCreate, req.ID, nil, req, req.OwnerID)
	return req, nil
}

// Edit changes type, dates or reason of a request. The owner and admins may
// edit. Depending on the edit mode the status is recomputed or reset to
// pending.
func (s *Service) Edit(ctx context.Context, actor auth.UserContext, id string, in EditInput) (LeaveRequest, error) {
	in, err := s.prepareInput(in)
	if err != nil {
		return LeaveRequest{}, err
	}
	current, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if current.OwnerID != actor.UserID && !actor.IsAdmin() {
		return LeaveRequest{}, ErrForbidden
	}
	pol, err := s.policyFor(ctx, current.OwnerID)
	if err != nil {
		return LeaveRequest{}, err
	}

	unlock, err := s.lock(ctx, current.OwnerID, in.Type)
	if err != nil {
		return LeaveRequest{}, err
	}
	defer unlock()

	// Re-read under the lock; a concurrent delete or review may have landed.
	current, err = s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	existing, err := s.Store.ListByOwner(ctx, current.OwnerID)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("list owner requests: %w", err)
	}

	updated := current
	updated.Type = in.Type
	updated.StartDate = in.StartDate
	updated.EndDate = in.EndDate
	updated.Reason = in.Reason
	updated.ReviewedBy = ""
	updated.ReviewNote = ""
	updated.UpdatedAt = s.now()

	decision, err := pol.Decide(entries(existing), updated.Entry())
	if err != nil {
		return LeaveRequest{}, err
	}
	updated.Days = decision.Days
	updated.Status = decision.Status
	if s.editMode == EditModeReview {
		updated.Status = policy.StatusPending
	}

	if err := s.Store.UpdateRequest(ctx, updated); err != nil {
		return LeaveRequest{}, fmt.Errorf("update leave request: %w", err)
	}

	s.logger.Info("leave request edited",
		zap.String("request_id", requestctx.GetRequestID(ctx)),
		zap.String("leave_id", id),
		zap.String("mode", string(s.editMode)),
		zap.Int("total", decision.Total),
		zap.String("status", string(updated.Status)),
	)
	s.recordDecision(updated.Status)
	s.after(ctx, actor.UserID, audit.ActionLeaveUpdate, id, current, updated, current.OwnerID)
	return updated, nil
}

// Review sets the status by hand. Managers may review requests of their own
// department except their own; admins may review anything.
func (s *Service) Review(ctx context.Context, actor auth.UserContext, id string, in ReviewInput) (LeaveRequest, error) {
	if _, ok := policy.ParseStatus(string(in.Status)); !ok {
		return LeaveRequest{}, ErrInvalidStatus
	}
	if !actor.IsAdmin() && !actor.IsManager() {
		return LeaveRequest{}, ErrForbidden
	}
	current, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !actor.IsAdmin() {
		if current.OwnerID == actor.UserID {
			return LeaveRequest{}, ErrForbidden
		}
		same, err := s.sameDepartment(ctx, actor.UserID, current.OwnerID)
		if err != nil {
			return LeaveRequest{}, err
		}
		if !same {
			return LeaveRequest{}, ErrForbidden
		}
	}

	unlock, err := s.lock(ctx, current.OwnerID, current.Type)
	if err != nil {
		return LeaveRequest{}, err
	}
	defer unlock()

	current, err = s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	updated := current
	updated.Status = in.Status
	updated.ReviewedBy = actor.UserID
	updated.ReviewNote = strings.TrimSpace(in.Note)
	updated.UpdatedAt = s.now()

	if err := s.Store.UpdateRequest(ctx, updated); err != nil {
		return LeaveRequest{}, fmt.Errorf("update leave request: %w", err)
	}
	if updated.ReviewNote != "" {
		c := Comment{ID: uuid.NewString(), UserID: actor.UserID, Text: updated.ReviewNote, CreatedAt: updated.UpdatedAt}
		if err := s.Store.AddComment(ctx, id, c); err != nil {
			return LeaveRequest{}, fmt.Errorf("add review comment: %w", err)
		}
		updated.Comments = append(updated.Comments, c)
	}

	s.logger.Info("leave request reviewed",
		zap.String("request_id", requestctx.GetRequestID(ctx)),
		zap.String("leave_id", id),
		zap.String("reviewer_id", actor.UserID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)
	s.after(ctx, actor.UserID, audit.ActionLeaveReview, id, current, updated, current.OwnerID)
	return updated, nil
}

func (s *Service) Comment(ctx context.Context, actor auth.UserContext, id, text string) (LeaveRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return LeaveRequest{}, ErrEmptyComment
	}
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	c := Comment{ID: uuid.NewString(), UserID: actor.UserID, Text: text, CreatedAt: s.now()}
	if err := s.Store.AddComment(ctx, id, c); err != nil {
		return LeaveRequest{}, fmt.Errorf("add comment: %w", err)
	}
	req.Comments = append(req.Comments, c)
	if s.audit != nil {
		if err := s.audit.Record(ctx, actor.UserID, audit.ActionLeaveComment, entityType, id, nil, c); err != nil {
			s.logger.Warn("audit leave.comment failed", zap.Error(err))
		}
	}
	return req, nil
}

// Delete removes a request. Owners may only delete pending requests.
func (s *Service) Delete(ctx context.Context, actor auth.UserContext, id string) error {
	current, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := canDelete(actor, current); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, current.OwnerID, current.Type)
	if err != nil {
		return err
	}
	defer unlock()

	// A review may have landed while we waited for the lock.
	current, err = s.Store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := canDelete(actor, current); err != nil {
		return err
	}

	if err := s.Store.DeleteRequest(ctx, id); err != nil {
		return err
	}
	s.logger.Info("leave request deleted",
		zap.String("request_id", requestctx.GetRequestID(ctx)),
		zap.String("leave_id", id),
		zap.String("actor_id", actor.UserID),
	)
	s.after(ctx, actor.UserID, audit.ActionLeaveDelete, id, current, nil, current.OwnerID)
	return nil
}

func canDelete(actor auth.UserContext, req LeaveRequest) error {
	switch {
	case actor.IsAdmin():
		return nil
	case req.OwnerID == actor.UserID:
		if req.Status != policy.StatusPending {
			return ErrInvalidState
		}
		return nil
	default:
		return ErrForbidden
	}
}

// Get returns a request visible to the caller: the owner, an admin, or a
// manager of the owner's department.
func (s *Service) Get(ctx context.Context, actor auth.UserContext, id string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := s.canView(ctx, actor, req.OwnerID); err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, actor auth.UserContext, q ListQuery) (RequestListResult, error) {
	filter := ListFilter{Status: q.Status, Type: q.Type, Limit: q.Limit, Offset: q.Offset}
	switch q.Scope {
	case ScopeMine, "":
		filter.OwnerIDs = []string{actor.UserID}
	case ScopeAll:
		if !actor.IsAdmin() && !actor.IsManager() {
			return RequestListResult{}, ErrForbidden
		}
	case ScopeDepartment:
		if !actor.IsAdmin() && !actor.IsManager() {
			return RequestListResult{}, ErrForbidden
		}
		me, err := s.Directory.UserByID(ctx, actor.UserID)
		if err != nil {
			return RequestListResult{}, err
		}
		if me.Department == "" {
			return RequestListResult{Requests: []LeaveRequest{}}, nil
		}
		ids, err := s.Directory.UserIDsByDepartment(ctx, me.Department)
		if err != nil {
			return RequestListResult{}, err
		}
		if len(ids) == 0 {
			return RequestListResult{Requests: []LeaveRequest{}}, nil
		}
		filter.OwnerIDs = ids
	default:
		return RequestListResult{}, ErrInvalidState
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	res, err := s.Store.ListRequests(ctx, filter)
	if err != nil {
		return RequestListResult{}, err
	}
	if res.Requests == nil {
		res.Requests = []LeaveRequest{}
	}
	return res, nil
}

// ListAll pages through every request in scope. Used by exports.
func (s *Service) ListAll(ctx context.Context, actor auth.UserContext, q ListQuery) ([]LeaveRequest, error) {
	var out []LeaveRequest
	q.Limit = exportPageSize
	for q.Offset = 0; ; q.Offset += exportPageSize {
		page, err := s.List(ctx, actor, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Requests...)
		if len(page.Requests) < exportPageSize || len(out) >= page.Total {
			return out, nil
		}
	}
}

// Balance returns the per-type summary of userID. Callers other than the
// user need the admin role.
func (s *Service) Balance(ctx context.Context, actor auth.UserContext, userID string) (BalanceSummary, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.IsAdmin() {
		return BalanceSummary{}, ErrForbidden
	}
	return s.balance(ctx, userID)
}

func (s *Service) balance(ctx context.Context, userID string) (BalanceSummary, error) {
	key := BalanceCacheKey(userID)
	if s.cache != nil {
		var cached BalanceSummary
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("balance cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		gen := s.generation(userID)
		user, err := s.Directory.UserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		reqs, err := s.Store.ListByOwner(ctx, userID)
		if err != nil {
			return nil, err
		}
		summary := BalanceSummary{
			UserID:     userID,
			Allocation: user.Allocation,
			Types:      s.policy.ForAllocation(user.Allocation).Summarize(entries(reqs), userID),
		}
		if s.cache != nil && s.generation(userID) == gen {
			if err := s.cache.SetJSON(ctx, key, summary, s.cacheTTL); err != nil {
				s.logger.Warn("balance cache write failed", zap.String("user_id", userID), zap.Error(err))
			}
			// An invalidation between the check and the write must still win.
			if s.generation(userID) != gen {
				s.dropBalance(ctx, userID)
			}
		}
		return summary, nil
	})
	if err != nil {
		return BalanceSummary{}, err
	}
	return v.(BalanceSummary), nil
}

// InvalidateBalance drops the cached summary of userID. Allocation changes
// call it too. Summaries computed before the call are not written back by
// this process; other replicas may still write one, bounded by the cache TTL.
func (s *Service) InvalidateBalance(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.gens[userID]++
	s.genMu.Unlock()
	s.dropBalance(ctx, userID)
}

func (s *Service) dropBalance(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, BalanceCacheKey(userID)); err != nil {
		s.logger.Warn("balance cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

// Statement collects what the PDF statement prints for userID.
func (s *Service) Statement(ctx context.Context, actor auth.UserContext, userID string) (Statement, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.IsAdmin() {
		return Statement{}, ErrForbidden
	}
	user, err := s.Directory.UserByID(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	bal, err := s.balance(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	res, err := s.ListAll(ctx, auth.UserContext{UserID: userID}, ListQuery{Scope: ScopeMine})
	if err != nil {
		return Statement{}, err
	}
	return Statement{User: user, Balance: bal, Requests: res}, nil
}

// prepareInput trims the reason and reduces both dates to UTC calendar days
// before validating.
func (s *Service) prepareInput(in SubmitInput) (SubmitInput, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.StartDate = policy.CalendarDate(in.StartDate)
	in.EndDate = policy.CalendarDate(in.EndDate)
	if _, err := s.policy.Thresholds(in.Type); err != nil {
		return in, err
	}
	if in.Reason == "" {
		return in, ErrMissingReason
	}
	if in.EndDate.Before(in.StartDate) {
		return in, ErrInvalidRange
	}
	return in, nil
}

func (s *Service) policyFor(ctx context.Context, userID string) (policy.Policy, error) {
	user, err := s.Directory.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return s.policy.ForAllocation(user.Allocation), nil
}

func (s *Service) lock(ctx context.Context, ownerID string, t policy.LeaveType) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, lockKey(ownerID, t))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("leave lock not acquired", zap.String("owner_id", ownerID), zap.String("type", string(t)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return unlock, nil
}

func (s *Service) canView(ctx context.Context, actor auth.UserContext, ownerID string) error {
	if actor.IsAdmin() || ownerID == actor.UserID {
		return nil
	}
	if actor.IsManager() {
		same, err := s.sameDepartment(ctx, actor.UserID, ownerID)
		if err != nil {
			return err
		}
		if same {
			return nil
		}
	}
	return ErrForbidden
}

func (s *Service) sameDepartment(ctx context.Context, managerID, ownerID string) (bool, error) {
	manager, err := s.Directory.UserByID(ctx, managerID)
	if err != nil {
		return false, err
	}
	owner, err := s.Directory.UserByID(ctx, ownerID)
	if errors.Is(err, auth.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return manager.Department != "" && manager.Department == owner.Department, nil
}

func (s *Service) recordDecision(status policy.Status) {
	if s.metrics != nil {
		s.metrics.RecordDecision(string(status))
	}
}

func (s *Service) after(ctx context.Context, actorID, action, id string, prev, next any, ownerID string) {
	s.InvalidateBalance(ctx, ownerID)
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actorID, action, entityType, id, prev, next); err != nil {
		s.logger.Warn("audit "+action+" failed", zap.String("leave_id", id), zap.Error(err))
	}
}
