// Package ledger implements the on-ledger state machine for the exchange:
// market creation, order placement, fill settlement, and market resolution.
// Every operation is an independent, atomic transition; all preconditions are
// re-checked against committed state on every call, and events are emitted
// only after the corresponding write has committed.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/probmarket/ledger/internal/domain"
)

// Service owns the four ledger transitions. Authorization is capability
// based: the settlement authority and each market's creator are plain
// identities compared per call, with no role hierarchy.
type Service struct {
	markets   domain.MarketStore
	orders    domain.OrderStore
	audit     domain.AuditStore
	bus       domain.EventBus
	authority string // normalized settlement authority address
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Service. settlementAuthority is the only identity permitted
// to apply fills.
func New(
	markets domain.MarketStore,
	orders domain.OrderStore,
	audit domain.AuditStore,
	bus domain.EventBus,
	settlementAuthority string,
	logger *slog.Logger,
) *Service {
	return &Service{
		markets:   markets,
		orders:    orders,
		audit:     audit,
		bus:       bus,
		authority: domain.NormalizeAddress(settlementAuthority),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// WithClock overrides the service clock. Resolution gating in tests depends
// on a controllable clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// emit publishes an event envelope on the bus channel and appends it to the
// matching durable stream. Called strictly after the state change committed;
// a bus failure is logged, not propagated, since the transition itself is
// already durable and the stream is replayable.
func (s *Service) emit(ctx context.Context, channel string, typ domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event", slog.String("type", string(typ)), slog.String("error", err.Error()))
		return
	}
	env := domain.Envelope{
		ID:        uuid.NewString(),
		Type:      typ,
		EmittedAt: s.now(),
		Data:      data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal envelope", slog.String("type", string(typ)), slog.String("error", err.Error()))
		return
	}
	if err := s.bus.StreamAppend(ctx, channel, raw); err != nil {
		s.logger.ErrorContext(ctx, "stream append failed",
			slog.String("channel", channel), slog.String("error", err.Error()))
	}
	if err := s.bus.Publish(ctx, channel, raw); err != nil {
		s.logger.ErrorContext(ctx, "publish failed",
			slog.String("channel", channel), slog.String("error", err.Error()))
	}
}

// record writes an audit row for a committed transition.
func (s *Service) record(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event), slog.String("error", err.Error()))
	}
}

func opErr(op string, err error) error {
	return fmt.Errorf("ledger: %s: %w", op, err)
}
