package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/accomplishment-service/internal/events"
)

// AuditService writes an audit trail for account events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handleAccountRegistered)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventAccountLocked, a.handleAccountLocked)
	a.dispatcher.Subscribe(events.EventAccountUpdated, a.handleAccountChanged)
	a.dispatcher.Subscribe(events.EventAccountDeleted, a.handleAccountChanged)
}

func (a *AuditService) handleAccountRegistered(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.AccountRegisteredPayload); ok {
		fields = append(fields, zap.String("employee_id", p.EmployeeID), zap.String("role", string(p.Role)))
	}
	a.logger.Info("AccountRegistered", fields...)
	return nil
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", a.baseFields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields,
			zap.Bool("known_account", p.KnownAccount),
			zap.Int("failed_attempts", p.FailedAttempts),
			zap.Int("remaining_attempts", p.RemainingAttempts))
	}
	a.logger.Info("LoginFailed", fields...)
	return nil
}

func (a *AuditService) handleAccountLocked(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.AccountLockedPayload); ok {
		fields = append(fields, zap.Int("failed_attempts", p.FailedAttempts), zap.Time("lock_until", p.LockUntil))
	}
	a.logger.Warn("AccountLocked", fields...)
	return nil
}

func (a *AuditService) handleAccountChanged(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.AccountChangedPayload); ok {
		fields = append(fields, zap.String("actor_id", p.ActorID), zap.String("employee_id", p.EmployeeID))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("account_id", event.AccountID),
	}
}
