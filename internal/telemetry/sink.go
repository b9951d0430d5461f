// Package telemetry fans engine telemetry out to human-facing alerts and
// durable storage: periodic diagnostics and rejections are logged, fills
// are persisted as they happen, and settlements are persisted, audited and
// notified, with the market's fills archived at that point.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/engine"
	"github.com/onyxlabs/pmengine/internal/notify"
	"github.com/onyxlabs/pmengine/internal/reconcile"
	"github.com/onyxlabs/pmengine/internal/settlement"
)

// Archiver persists settlements and fills to cold storage. Implemented by
// internal/blob/s3.ArchiveImpl.
type Archiver interface {
	ArchiveMarketFills(ctx context.Context, marketSlug string) (int64, error)
}

// Sink implements engine.DiagnosticsSink. It is the single point where the
// engine's per-market runners hand off telemetry to the outside world.
type Sink struct {
	notifier    *notify.Notifier
	settlements domain.SettlementStore
	fills       domain.FillStore
	audit       domain.AuditStore
	archiver    Archiver
	logger      *slog.Logger
}

// New constructs a Sink. settlements, fills, audit, and archiver may be nil
// individually to run with a subset of durable sinks wired up (e.g. during
// local dry runs with no database configured); notifier must not be nil,
// use notify.NewNotifier(nil, nil, logger) for a no-op notifier.
func New(notifier *notify.Notifier, settlements domain.SettlementStore, fills domain.FillStore, audit domain.AuditStore, archiver Archiver, logger *slog.Logger) *Sink {
	return &Sink{
		notifier:    notifier,
		settlements: settlements,
		fills:       fills,
		audit:       audit,
		archiver:    archiver,
		logger:      logger.With(slog.String("component", "telemetry")),
	}
}

// EmitDiagnostics logs a periodic per-market health snapshot at debug level.
// Diagnostics are high-frequency and not archived; the audit log and
// settlement/fill stores capture the record that matters after the fact.
func (s *Sink) EmitDiagnostics(ctx context.Context, snap engine.Diagnostics) error {
	s.logger.DebugContext(ctx, "diagnostics",
		slog.String("market", snap.MarketSlug),
		slog.Int64("time_left_ms", snap.TimeLeftMs),
		slog.Float64("sigma", snap.Sigma),
		slog.Float64("z", snap.Z),
		slog.Float64("dist_frac", snap.DistFrac),
		slog.String("regime", string(snap.Regime)),
		slog.Bool("house_side_set", snap.HouseSideSet),
	)
	return nil
}

// EmitFill persists one accepted fill as it happens, so settlement can be
// recomputed from durable storage if the process restarts before the
// market closes.
func (s *Sink) EmitFill(ctx context.Context, marketSlug string, f domain.Fill) error {
	if s.fills == nil {
		return nil
	}
	if err := s.fills.Insert(ctx, marketSlug, f); err != nil {
		return fmt.Errorf("telemetry: persist fill: %w", err)
	}
	return nil
}

// EmitRejection logs a strategy signal that never became an order. These
// are frequent by design (most gate checks fail most of the time) so they
// are logged at debug rather than sent to the audit trail or notifier.
func (s *Sink) EmitRejection(ctx context.Context, marketSlug string, r reconcile.Rejection) error {
	s.logger.DebugContext(ctx, "signal rejected",
		slog.String("market", marketSlug),
		slog.String("strategy", r.Signal.StrategyID),
		slog.String("reason", string(r.Reason)),
	)
	return nil
}

// EmitSettlement persists the settlement record, writes an audit entry,
// archives the market's fills to cold storage, and notifies operators of
// the outcome. Persistence failures are collected and returned together so a
// caller can decide whether a partial write warrants a retry; the notifier
// is always attempted regardless of storage failures.
func (s *Sink) EmitSettlement(ctx context.Context, res settlement.Result) error {
	var errs []error

	if s.settlements != nil {
		if err := s.settlements.Insert(ctx, res.ToRecord()); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: persist settlement: %w", err))
		}
	}

	if s.audit != nil {
		detail := map[string]any{
			"market_slug": res.MarketSlug,
			"outcome":     string(res.Outcome),
			"market_pnl":  res.MarketPnL,
		}
		if err := s.audit.Log(ctx, "market.settled", detail); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: audit settlement: %w", err))
		}
	}

	if s.archiver != nil {
		if _, err := s.archiver.ArchiveMarketFills(ctx, res.MarketSlug); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: archive fills: %w", err))
		}
	}

	title := fmt.Sprintf("Market settled: %s", res.MarketSlug)
	body := fmt.Sprintf("outcome=%s market_pnl=%.2f settled_at=%s", res.Outcome, res.MarketPnL, res.SettledAt.Format(time.RFC3339))
	if err := s.notifier.Notify(ctx, "settlement", title, body); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: notify settlement: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry: %d error(s) emitting settlement for %s: %w", len(errs), res.MarketSlug, errs[0])
	}
	return nil
}

var _ engine.DiagnosticsSink = (*Sink)(nil)
