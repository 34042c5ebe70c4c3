package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/trainplan/internal/bot"
	"github.com/2beens/trainplan/internal/config"
	"github.com/2beens/trainplan/internal/db"
	"github.com/2beens/trainplan/internal/messaging"
	"github.com/2beens/trainplan/internal/middleware"
	"github.com/2beens/trainplan/internal/plan"
	"github.com/2beens/trainplan/internal/scheduler"
	"github.com/2beens/trainplan/internal/session"
	"github.com/2beens/trainplan/internal/streak"
	"github.com/2beens/trainplan/internal/telemetry/metrics"
	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/internal/users"
	"github.com/2beens/trainplan/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	apiToken          string
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	locations   *users.Locations
	ledger      *streak.Ledger
	leaderboard *streak.Leaderboard
	sessions    *session.Manager
	scheduler   *scheduler.Scheduler
	watcher     *plan.Watcher
	telegram    *messaging.Telegram // nil when telegram is disabled
	bot         *bot.Bot

	workersCancel context.CancelFunc
	workersWg     sync.WaitGroup

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	APIToken                string
	TelegramBotToken        string
	RedisPassword           string
	DBUser                  string
	DBPassword              string
	HoneycombTracingEnabled bool
}

type promptSender interface {
	Send(ctx context.Context, userID int64, prompt messaging.Prompt) error
}

type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ScheduledJobs  int    `json:"scheduledJobs"`
	ActiveSessions int    `json:"activeSessions"`
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	fallbackLocation, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load default timezone: %w", err)
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled)
	if err != nil {
		return nil, fmt.Errorf("honeycomb setup: %w", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         params.DBUser,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("trainplan", "main", promRegistry)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	s := &Server{
		config:         cfg,
		apiToken:       params.APIToken,
		versionInfo:    params.VersionInfo,
		dbPool:         dbPool,
		redisClient:    rdb,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	var channel promptSender = messaging.LogChannel{}
	if cfg.TelegramEnabled {
		tracedHttpClient := &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			// long polling keeps the request open for up to the updates timeout
			Timeout: time.Minute,
		}
		s.telegram, err = messaging.NewTelegram(params.TelegramBotToken, cfg.TelegramDebug, tracedHttpClient)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("new telegram client: %w", err), s.GracefulShutdown())
		}
		channel = s.telegram
	} else {
		log.Warnln("telegram disabled, prompts will only be logged")
	}

	usersRepo := users.NewRepo(dbPool)
	planRepo := plan.NewRepo(dbPool)
	streakRepo := streak.NewRepo(dbPool)

	s.locations = users.NewLocations(usersRepo, fallbackLocation)
	s.leaderboard = streak.NewLeaderboard(streakRepo, cfg.LeaderboardCacheTTL)
	s.ledger = streak.NewLedger(streak.NewLedgerParams{
		Repo:        streakRepo,
		Leaderboard: s.leaderboard,
		Metrics:     metricsManager,
	})
	s.sessions = session.NewManager(session.NewManagerParams{
		Channel:   channel,
		Ledger:    s.ledger,
		Locations: s.locations,
		Metrics:   metricsManager,
		Timeout:   cfg.SessionTimeout,
	})
	s.scheduler = scheduler.NewScheduler(scheduler.NewSchedulerParams{
		Plans:     planRepo,
		Sessions:  s.sessions,
		Locations: s.locations,
		Metrics:   metricsManager,
	})
	s.watcher = plan.NewWatcher(plan.NewWatcherParams{
		Scheduler: s.scheduler,
		Plans:     planRepo,
		Redis:     rdb,
		Metrics:   metricsManager,
	})
	if s.telegram != nil {
		s.bot = bot.NewBot(bot.NewBotParams{
			Telegram: s.telegram,
			Sessions: s.sessions,
			Starter:  s.scheduler,
			Users:    usersRepo,
			Plans:    s.watcher,
		})
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("trainplan-router"))

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	schedulerHandler := scheduler.NewHandler(s.scheduler)
	startNowRateLimit := middleware.RateLimit(reqRateLimiter, s.metricsManager, "start-now", s.config.StartRateLimitPerMin)
	r.Handle("/sessions/start", startNowRateLimit(http.HandlerFunc(schedulerHandler.HandleStartNow))).Methods("POST", "OPTIONS").Name("start-now")
	r.HandleFunc("/scheduler/jobs/{userId}", schedulerHandler.HandleJobs).Methods("GET", "OPTIONS").Name("scheduler-jobs")

	sessionHandler := session.NewHandler(s.sessions)
	r.HandleFunc("/sessions/action", sessionHandler.HandleAction).Methods("POST", "OPTIONS").Name("session-action")
	r.HandleFunc("/sessions/{userId}", sessionHandler.HandleActive).Methods("GET", "OPTIONS").Name("active-sessions")

	streakHandler := streak.NewHandler(streak.NewHandlerParams{
		Ledger:      s.ledger,
		Leaderboard: s.leaderboard,
		Locations:   s.locations,
	})
	r.HandleFunc("/streak/{userId}", streakHandler.HandleGetStreak).Methods("GET", "OPTIONS").Name("get-streak")
	r.HandleFunc("/progress/{userId}", streakHandler.HandleProgress).Methods("GET", "OPTIONS").Name("get-progress")
	r.HandleFunc("/leaderboard", streakHandler.HandleLeaderboard).Methods("GET", "OPTIONS").Name("leaderboard")

	planHandler := plan.NewHandler(s.watcher)
	r.HandleFunc("/plans/{userId}/saved", planHandler.HandlePlanSaved).Methods("POST", "OPTIONS").Name("plan-saved")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.apiToken)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins...))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, HealthResponse{
		Status:         "ok",
		Version:        s.versionInfo,
		ScheduledJobs:  s.scheduler.JobsCount(),
		ActiveSessions: s.sessions.ActiveCount(),
	}, http.StatusOK)
}

// Serve installs the triggers of all known users, starts the background
// workers (scheduler, plan watcher, telegram bot) and the http servers.
func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	if err := s.scheduler.Bootstrap(ctx); err != nil {
		// partial failures leave the other users scheduled
		log.Errorf("scheduler bootstrap: %s", err)
	}
	s.scheduler.Start()

	workersCtx, workersCancel := context.WithCancel(ctx)
	s.workersCancel = workersCancel

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()
		if err := s.watcher.Listen(workersCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("plan watcher stopped: %s", err)
		}
	}()

	if s.bot != nil {
		s.workersWg.Add(1)
		go func() {
			defer s.workersWg.Done()
			s.bot.Run(workersCtx)
		}()
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")
	if s.metricsManager != nil {
		s.metricsManager.GaugeLifeSignal.Set(0)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}

	// wait for in-flight fires before dropping the sessions they start
	if s.scheduler != nil {
		select {
		case <-s.scheduler.Stop().Done():
			log.Debugln("scheduler stopped")
		case <-ctx.Done():
			err = multierr.Append(err, errors.New("scheduler stop timed out"))
		}
	}
	if s.sessions != nil {
		s.sessions.Shutdown()
	}

	if s.workersCancel != nil {
		s.workersCancel()
		s.workersWg.Wait()
	}

	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return err
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	}
}
