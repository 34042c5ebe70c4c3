package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2beens/trainplan/internal/plan"
	"github.com/2beens/trainplan/internal/session"
	"github.com/2beens/trainplan/internal/telemetry/metrics"
	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=scheduler

var ErrNothingScheduled = errors.New("no workout planned for that day")

// fire results
const (
	fireStarted = "started"
	fireNoop    = "noop"
	fireError   = "error"
)

type planStore interface {
	GetPlan(ctx context.Context, userID int64) ([]plan.DayPlan, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type sessionStarter interface {
	Start(ctx context.Context, userID int64, dayOfWeek int, exercises []plan.Exercise) (*session.Session, error)
}

type locator interface {
	Location(ctx context.Context, userID int64) *time.Location
}

// Job is one weekly trigger of a user's plan day.
type Job struct {
	UserID    int64     `json:"userId"`
	DayOfWeek int       `json:"dayOfWeek"`
	FireTime  string    `json:"fireTime"`
	Location  string    `json:"location"`
	Spec      string    `json:"spec"`
	Next      time.Time `json:"next"`

	entryID cron.EntryID
}

// Scheduler keeps at most one cron entry per (user, plan day).
type Scheduler struct {
	cron      *cron.Cron
	plans     planStore
	sessions  sessionStarter
	locations locator
	metrics   *metrics.Manager
	userLocks *pkg.KeyedMutex[int64]
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[int64][]Job
}

type NewSchedulerParams struct {
	Plans     planStore
	Sessions  sessionStarter
	Locations locator
	Metrics   *metrics.Manager
}

func NewScheduler(params NewSchedulerParams) *Scheduler {
	cronLogger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		plans:     params.Plans,
		sessions:  params.Sessions,
		locations: params.Locations,
		metrics:   params.Metrics,
		userLocks: pkg.NewKeyedMutex[int64](),
		now:       time.Now,
		jobs:      make(map[int64][]Job),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("scheduler started with %d jobs", s.JobsCount())
}

// Stop cancels future fires. The returned context is done when running fires finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Install arms a weekly trigger for each active day of the plan.
// Days with a malformed notification time are skipped, the rest still install.
// Installing a day that already has a trigger replaces it.
func (s *Scheduler) Install(ctx context.Context, userID int64, days []plan.DayPlan) error {
	unlock := s.userLocks.Lock(userID)
	defer unlock()
	return s.installLocked(ctx, userID, days)
}

// Reinstall replaces all of the user's triggers with the ones for days.
// A fire already running is not interrupted.
func (s *Scheduler) Reinstall(ctx context.Context, userID int64, days []plan.DayPlan) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "scheduler.reinstall")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	unlock := s.userLocks.Lock(userID)
	defer unlock()

	removed := s.removeLocked(userID)
	if err := s.installLocked(ctx, userID, days); err != nil {
		return err
	}
	log.Debugf("user %d: reinstalled triggers, removed %d, now %d", userID, removed, len(s.Jobs(userID)))
	return nil
}

// Remove cancels every trigger of the user.
func (s *Scheduler) Remove(userID int64) int {
	unlock := s.userLocks.Lock(userID)
	defer unlock()
	return s.removeLocked(userID)
}

func (s *Scheduler) installLocked(ctx context.Context, userID int64, days []plan.DayPlan) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id: %d", userID)
	}

	loc := s.locations.Location(ctx, userID)
	for _, day := range days {
		if !day.Active() {
			continue
		}
		if !plan.ValidDayOfWeek(day.DayOfWeek) {
			s.skipDay(userID, day, fmt.Errorf("invalid day of week %d", day.DayOfWeek))
			continue
		}
		hour, minute, err := plan.ParseNotificationTime(day.NotificationTime)
		if err != nil {
			s.skipDay(userID, day, err)
			continue
		}

		s.removeDayLocked(userID, day.DayOfWeek)

		spec := fmt.Sprintf("CRON_TZ=%s %d %d * * %d", loc.String(), minute, hour, int(plan.Weekday(day.DayOfWeek)))
		dayOfWeek := day.DayOfWeek
		entryID, err := s.cron.AddFunc(spec, func() {
			s.fire(userID, dayOfWeek)
		})
		if err != nil {
			s.skipDay(userID, day, err)
			continue
		}

		s.mu.Lock()
		s.jobs[userID] = append(s.jobs[userID], Job{
			UserID:    userID,
			DayOfWeek: day.DayOfWeek,
			FireTime:  fmt.Sprintf("%02d:%02d", hour, minute),
			Location:  loc.String(),
			Spec:      spec,
			entryID:   entryID,
		})
		s.mu.Unlock()
	}

	s.updateJobsGauge()
	return nil
}

func (s *Scheduler) skipDay(userID int64, day plan.DayPlan, reason error) {
	log.Warnf("user %d: skipping day %d with time [%s]: %s", userID, day.DayOfWeek, day.NotificationTime, reason)
	if s.metrics != nil {
		s.metrics.CounterSkippedScheduleDays.Inc()
	}
}

func (s *Scheduler) removeLocked(userID int64) int {
	s.mu.Lock()
	jobs := s.jobs[userID]
	delete(s.jobs, userID)
	s.mu.Unlock()

	for _, job := range jobs {
		s.cron.Remove(job.entryID)
	}
	s.updateJobsGauge()
	return len(jobs)
}

func (s *Scheduler) removeDayLocked(userID int64, dayOfWeek int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.jobs[userID]
	kept := jobs[:0]
	for _, job := range jobs {
		if job.DayOfWeek == dayOfWeek {
			s.cron.Remove(job.entryID)
			continue
		}
		kept = append(kept, job)
	}
	if len(kept) == 0 {
		delete(s.jobs, userID)
		return
	}
	s.jobs[userID] = kept
}

func (s *Scheduler) updateJobsGauge() {
	if s.metrics != nil {
		s.metrics.GaugeScheduledJobs.Set(float64(s.JobsCount()))
	}
}

// fire runs from the cron goroutine. The plan is read again so that the
// session always gets the day as it is now.
func (s *Scheduler) fire(userID int64, dayOfWeek int) {
	ctx, span := tracing.GlobalTracer.Start(context.Background(), "scheduler.fire")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))
	span.SetAttributes(attribute.Int("day", dayOfWeek))

	result := fireStarted
	sess, err := s.startDay(ctx, userID, dayOfWeek)
	switch {
	case errors.Is(err, ErrNothingScheduled):
		result = fireNoop
		log.Debugf("user %d: nothing to do on day %d", userID, dayOfWeek)
	case err != nil:
		result = fireError
		span.RecordError(err)
		log.Errorf("user %d: scheduled session for day %d: %s", userID, dayOfWeek, err)
	default:
		log.Infof("user %d: scheduled session %s started", userID, sess.ID)
	}

	if s.metrics != nil {
		s.metrics.CounterSchedulerFires.WithLabelValues(result).Inc()
	}
}

func (s *Scheduler) startDay(ctx context.Context, userID int64, dayOfWeek int) (*session.Session, error) {
	days, err := s.plans.GetPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	day, _ := plan.Day(days, dayOfWeek)
	snapshot := day.Snapshot()
	if len(snapshot) == 0 {
		return nil, ErrNothingScheduled
	}

	return s.sessions.Start(ctx, userID, dayOfWeek, snapshot)
}

// StartNow starts a session for dayOfWeek right away, outside of the schedule.
// A nil day means today in the user's timezone.
func (s *Scheduler) StartNow(ctx context.Context, userID int64, dayOfWeek *int) (_ *session.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "scheduler.start-now")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	var day int
	if dayOfWeek != nil {
		day = *dayOfWeek
	} else {
		day = plan.DayOfWeek(s.now().In(s.locations.Location(ctx, userID)))
	}
	if !plan.ValidDayOfWeek(day) {
		return nil, fmt.Errorf("invalid day of week: %d", day)
	}

	return s.startDay(ctx, userID, day)
}

// Bootstrap reinstalls the triggers of every user with a plan. It is safe
// to run more than once.
func (s *Scheduler) Bootstrap(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "scheduler.bootstrap")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	userIDs, err := s.plans.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs error
	for _, userID := range userIDs {
		days, err := s.plans.GetPlan(ctx, userID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("get plan of user %d: %w", userID, err))
			continue
		}
		if err := s.Reinstall(ctx, userID, days); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	log.Infof("scheduler bootstrap: %d users, %d jobs", len(userIDs), s.JobsCount())
	return errs
}

// Jobs returns the user's triggers ordered by day.
func (s *Scheduler) Jobs(userID int64) []Job {
	s.mu.RLock()
	jobs := append([]Job(nil), s.jobs[userID]...)
	s.mu.RUnlock()

	for i := range jobs {
		jobs[i].Next = s.cron.Entry(jobs[i].entryID).Next
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].DayOfWeek < jobs[j].DayOfWeek
	})
	return jobs
}

func (s *Scheduler) JobsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, jobs := range s.jobs {
		count += len(jobs)
	}
	return count
}
