package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper задача сверки занятых слотов
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper Sweeper
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewScheduler создаёт новый планировщик. spec - расписание cron (например "@every 10m").
func NewScheduler(sweeper Sweeper, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		spec:    spec,
		timeout: 5 * time.Minute,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.String("sweep", s.spec))

	if _, err := s.cron.AddFunc(s.spec, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает фоновые задачи и ждёт завершения текущей
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// runSweep освобождает слоты, потерянные после отмен
func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("Reconcile sweep failed", zap.Error(err))
		return
	}

	if report.Released > 0 {
		s.logger.Warn("Reconcile sweep released slots", zap.Int("released", report.Released))
	}
}
