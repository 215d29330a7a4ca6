package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/api"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/Freeeeeet/clinic_booking/internal/controller"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// signatureHeaders заголовок с подписью вебхука для каждого шлюза
var signatureHeaders = map[string]string{
	payment.GatewayRazorpay: "X-Razorpay-Signature",
	payment.GatewayStripe:   "Stripe-Signature",
}

// App собранное приложение: хранилища, сервисы и транспорты
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool

	Users         *service.UserService
	Bookings      *service.BookingService
	Cancellations *service.CancellationService
	Payments      *service.PaymentService
	Availability  *service.AvailabilityService
	Reconcile     *service.ReconcileService

	gateways  *payment.Registry
	closeSlot func()
}

// New подключается к хранилищам и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := NewPool(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, err
	}

	slots, closeSlot, err := NewSlotStore(ctx, cfg, pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create slot store: %w", err)
	}

	gateways, err := NewGateways(cfg)
	if err != nil {
		closeSlot()
		pool.Close()
		return nil, fmt.Errorf("configure payment gateways: %w", err)
	}

	doctorRepo := repository.NewDoctorRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool, logger)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		gateways:  gateways,
		closeSlot: closeSlot,

		Users:         service.NewUserService(userRepo, logger),
		Bookings:      service.NewBookingService(doctorRepo, userRepo, appointmentRepo, slots, logger),
		Cancellations: service.NewCancellationService(appointmentRepo, slots, logger),
		Payments:      service.NewPaymentService(appointmentRepo, gateways, cfg.PaymentCurrency, cfg.PaymentTimeout, logger),
		Availability:  service.NewAvailabilityService(doctorRepo, availabilityRepo, slots, logger),
		Reconcile:     service.NewReconcileService(appointmentRepo, slots, cfg.SweepLookback, logger),
	}

	logger.Info("Application initialized",
		zap.String("slot_store", cfg.SlotStore),
		zap.Strings("gateways", gateways.Names()),
	)

	return a, nil
}

// Pool пул соединений для миграций
func (a *App) Pool() *pgxpool.Pool {
	return a.pool
}

// Webhooks парсеры уведомлений для настроенных шлюзов
func (a *App) Webhooks() map[string]api.Webhook {
	hooks := make(map[string]api.Webhook)
	for _, name := range a.gateways.Names() {
		gw, err := a.gateways.Get(name)
		if err != nil {
			continue
		}
		parser, ok := gw.(api.WebhookParser)
		if !ok {
			continue
		}
		hooks[name] = api.Webhook{Parser: parser, SignatureHeader: signatureHeaders[name]}
	}
	return hooks
}

// Run запускает HTTP API, фоновую сверку и (если задан токен) Telegram-бота.
// Блокируется до отмены ctx или ошибки HTTP-сервера.
func (a *App) Run(ctx context.Context) error {
	scheduler := NewScheduler(a.Reconcile, a.cfg.SweepCron, a.logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if a.cfg.TelegramToken != "" {
		if err := a.startBot(ctx); err != nil {
			return err
		}
	} else {
		a.logger.Warn("TELEGRAM_TOKEN is empty, bot disabled")
	}

	server := api.NewServer(api.Deps{
		Booking:      a.Bookings,
		Cancellation: a.Cancellations,
		Payments:     a.Payments,
		Availability: a.Availability,
		Webhooks:     a.Webhooks(),
		JWTSecret:    a.cfg.JWTSecret,
	}, a.logger)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.cfg.HTTPAddr))
		errCh <- server.Listen(a.cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (a *App) startBot(ctx context.Context) error {
	b, err := bot.New(a.cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	ctrl := controller.NewBotController(
		b,
		a.Users,
		a.Bookings,
		a.Cancellations,
		a.Payments,
		a.Availability,
		a.logger,
	)
	if err := ctrl.RegisterHandlers(ctx); err != nil {
		return fmt.Errorf("register bot handlers: %w", err)
	}

	go func() {
		_ = ctrl.Start(ctx)
	}()
	return nil
}

// Close освобождает соединения
func (a *App) Close() {
	a.closeSlot()
	a.pool.Close()
}
