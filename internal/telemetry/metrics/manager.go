package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterSessions            *prometheus.CounterVec
	CounterStaleActions        prometheus.Counter
	CounterPromptFailures      prometheus.Counter
	CounterSchedulerFires      *prometheus.CounterVec
	CounterSkippedScheduleDays prometheus.Counter
	CounterStreakRecordRetries prometheus.Counter
	CounterAchievementsGranted *prometheus.CounterVec
	CounterPlanSavedEvents     prometheus.Counter

	// gauges
	GaugeRequests       prometheus.Gauge
	GaugeLifeSignal     prometheus.Gauge
	GaugeScheduledJobs  prometheus.Gauge
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistogramSessionDuration prometheus.Histogram
}

// session outcome label values
const (
	SessionStarted   = "started"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

func NewTestManager() *Manager {
	return NewManager("trainplan", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("trainplan", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workout_sessions",
		Help:      "Workout sessions by outcome (started, completed, abandoned)",
	}, []string{"outcome"})
	counterStaleActions := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stale_actions",
		Help:      "User actions ignored because they did not match the current session step",
	})
	counterPromptFailures := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prompt_delivery_failures",
		Help:      "Prompts that could not be delivered after the retry",
	})
	counterSchedulerFires := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "scheduler_fires",
		Help:      "Scheduled workout triggers fired, by result",
	}, []string{"result"})
	counterSkippedScheduleDays := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "scheduler_skipped_days",
		Help:      "Plan days skipped during install because of invalid configuration",
	})
	counterStreakRecordRetries := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "streak_record_retries",
		Help:      "Streak updates re-applied after losing a race with a concurrent writer",
	})
	counterAchievementsGranted := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "achievements_granted",
		Help:      "Achievements granted, by type",
	}, []string{"type"})
	counterPlanSavedEvents := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "plan_saved_events",
		Help:      "Plan saved notifications handled by the watcher",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeScheduledJobs := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "scheduled_jobs",
		Help:      "Currently armed weekly workout triggers",
	})
	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Workout sessions currently in progress",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histogramSessionDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_duration_seconds",
		Help:      "Duration of completed workout sessions in seconds",
		Buckets:   []float64{60, 300, 600, 1200, 1800, 2700, 3600, 5400, 7200},
	})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterSessions:            counterSessions,
		CounterStaleActions:        counterStaleActions,
		CounterPromptFailures:      counterPromptFailures,
		CounterSchedulerFires:      counterSchedulerFires,
		CounterSkippedScheduleDays: counterSkippedScheduleDays,
		CounterStreakRecordRetries: counterStreakRecordRetries,
		CounterAchievementsGranted: counterAchievementsGranted,
		CounterPlanSavedEvents:     counterPlanSavedEvents,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		GaugeScheduledJobs:         gaugeScheduledJobs,
		GaugeActiveSessions:        gaugeActiveSessions,
		HistogramRequestDuration:   histogramRequestDuration,
		HistogramSessionDuration:   histogramSessionDuration,
	}
}
