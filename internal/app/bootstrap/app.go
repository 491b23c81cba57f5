package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/api/router"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/auth"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/slots"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// App is the fully wired API process.
type App struct {
	Handler http.Handler

	notifier *notify.AppointmentNotifier
	postgres *Postgres
	redis    *redis.Client
	logger   *logging.Logger
}

// Options overrides infrastructure that Build would otherwise create from
// config. Tests use it to inject an email sender and a private registry.
type Options struct {
	Registry    *prometheus.Registry
	EmailSender notify.EmailSender
	Redis       *redis.Client
}

// Build connects storage and wires every component behind the router.
// Without DATABASE_URL the rule and appointment stores are in-memory; without
// REDIS_ADDR the velocity limit is off and token revocation is process-local.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger = logging.OrDefault(logger)

	loc, err := LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.NewSchedulingMetrics(reg)

	app := &App{logger: logger}

	pg, err := ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	app.postgres = pg

	redisClient := opts.Redis
	if redisClient == nil {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
	}
	app.redis = redisClient

	var (
		ruleRepo availability.Repository
		apptRepo appointments.Repository
		reports  appointments.Reporter
	)
	if pg != nil {
		ruleRepo = availability.NewPostgresRepository(pg.Pool)
		apptRepo = appointments.NewPostgresRepository(pg.Pool)
		reports = appointments.NewReportStore(pg.DB)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		ruleRepo = availability.NewInMemoryRepository()
		mem := appointments.NewInMemoryRepository()
		apptRepo, reports = mem, mem
	}

	rules := availability.NewStore(ruleRepo, logger)
	generator, err := slots.NewGenerator(rules, cfg.SlotCacheSize, m, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: slot generator: %w", err)
	}

	sender := opts.EmailSender
	if sender == nil {
		sender, err = BuildEmailSender(ctx, cfg, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.notifier = notify.NewAppointmentNotifier(sender, notify.AppointmentNotifierConfig{
		ClinicName:  cfg.ClinicName,
		ClinicEmail: cfg.ClinicNotifyEmail,
		Location:    loc,
	}, m, logger)

	ledger := appointments.NewLedger(apptRepo, reports, logger,
		appointments.WithNotifier(app.notifier),
		appointments.WithMetrics(m),
	)

	serviceOpts := []scheduling.Option{scheduling.WithLocation(loc), scheduling.WithMetrics(m)}
	if redisClient != nil {
		limiter := scheduling.NewVelocityLimiter(redisClient, cfg.BookingMaxPerContact, cfg.BookingWindow, logger)
		serviceOpts = append(serviceOpts, scheduling.WithLimiter(limiter))
	}
	schedulingService := scheduling.NewService(generator, ledger, logger, serviceOpts...)

	var revocations auth.RevocationStore
	if redisClient != nil {
		revocations = auth.NewRedisRevocationStore(redisClient)
	}
	authService := auth.NewService(auth.Admin{
		Email:        cfg.AdminEmail,
		Name:         cfg.AdminName,
		PasswordHash: cfg.AdminPasswordHash,
	}, auth.NewIssuer(cfg.AdminJWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL), revocations, logger)
	if !authService.Enabled() {
		logger.Warn("admin auth disabled; set ADMIN_JWT_SECRET, ADMIN_EMAIL and ADMIN_PASSWORD_HASH")
	}

	health := map[string]router.HealthChecker{}
	if pg != nil {
		health["postgres"] = pg.Ping
	}
	if redisClient != nil {
		health["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	routerCfg := &router.Config{
		Logger:             logger,
		Availability:       availability.NewHandler(rules, logger),
		Scheduling:         scheduling.NewHandler(schedulingService, logger),
		Appointments:       appointments.NewHandler(ledger, logger),
		Auth:               auth.NewHandler(authService, logger),
		Authenticator:      authService,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       health,
	}
	if cfg.PublicRateLimitRPS > 0 {
		routerCfg.PublicRateLimiter = httpmiddleware.NewRateLimiter(cfg.PublicRateLimitRPS, cfg.PublicRateLimitBurst)
	}
	app.Handler = router.New(routerCfg)
	return app, nil
}

// Close waits for in-flight notification emails and releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.notifier != nil {
		a.notifier.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	a.postgres.Close()
}
