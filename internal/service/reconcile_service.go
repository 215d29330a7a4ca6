package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"go.uber.org/zap"
)

// SweepReport итог одного прохода сверки
type SweepReport struct {
	Checked   int
	Suspected int
	Released  int
}

// ReconcileService освобождает слоты, которые остались занятыми
// после отмены записи (например, если Release не прошёл).
//
// Слот освобождается только если он был помечен подозрительным
// на предыдущем проходе и по-прежнему не принадлежит ни одной записи.
type ReconcileService struct {
	appointments AppointmentStore
	slots        SlotStore
	lookback     time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	suspects map[model.SlotKey]struct{}
}

func NewReconcileService(appointments AppointmentStore, slots SlotStore, lookback time.Duration, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		appointments: appointments,
		slots:        slots,
		lookback:     lookback,
		logger:       logger,
		now:          time.Now,
		suspects:     make(map[model.SlotKey]struct{}),
	}
}

func (s *ReconcileService) Sweep(ctx context.Context) (*SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled, err := s.appointments.ListCancelledSince(ctx, s.now().Add(-s.lookback))
	if err != nil {
		return nil, fmt.Errorf("%w: list cancelled: %w", ErrPersistence, err)
	}

	report := &SweepReport{}
	next := make(map[model.SlotKey]struct{})
	seen := make(map[model.SlotKey]struct{}, len(cancelled))

	for _, appt := range cancelled {
		key := appt.Slot()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		report.Checked++

		orphaned, err := s.orphaned(ctx, key)
		if err != nil {
			return report, err
		}
		if !orphaned {
			continue
		}

		if _, flagged := s.suspects[key]; !flagged {
			next[key] = struct{}{}
			report.Suspected++
			continue
		}

		if err := s.slots.Release(ctx, key.DoctorID, key.Date, key.Time); err != nil {
			s.logger.Error("Failed to release orphaned slot",
				zap.String("slot", key.String()),
				zap.Error(err),
			)
			next[key] = struct{}{}
			continue
		}

		report.Released++
		metrics.SweepReleased.Inc()
		s.logger.Warn("Released orphaned slot reservation",
			zap.String("slot", key.String()),
			zap.String("cancelled_appointment_id", appt.ID.String()),
		)
	}

	s.suspects = next

	s.logger.Info("Reconcile sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("suspected", report.Suspected),
		zap.Int("released", report.Released),
	)

	return report, nil
}

// orphaned слот занят, но ни одна неотменённая запись его не держит
func (s *ReconcileService) orphaned(ctx context.Context, key model.SlotKey) (bool, error) {
	free, err := s.slots.IsFree(ctx, key.DoctorID, key.Date, key.Time)
	if err != nil {
		return false, fmt.Errorf("%w: check slot %s: %w", ErrPersistence, key, err)
	}
	if free {
		return false, nil
	}

	held, err := s.appointments.HasHolder(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: check slot holder %s: %w", ErrPersistence, key, err)
	}
	return !held, nil
}
