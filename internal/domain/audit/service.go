package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leavetrack/internal/requestctx"
)

type Service struct {
	Store  StoreAPI
	logger *zap.Logger
}

func New(store StoreAPI, logger ...*zap.Logger) *Service {
	l := zap.L().Named("audit.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.service")
	}
	return &Service{Store: store, logger: l}
}

// Record stores one audit event. The request id and client ip are taken from
// ctx when the HTTP middleware put them there.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	evt := Event{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.GetClientIP(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		evt.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		evt.After = payload
	}
	if err := s.Store.Insert(ctx, evt); err != nil {
		s.logger.Warn("audit insert failed", zap.String("action", action), zap.String("entity_id", entityID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.Store.Count(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	return s.Store.List(ctx, filter, includeDetails, limit, offset)
}
