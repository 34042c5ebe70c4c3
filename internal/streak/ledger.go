package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainplan/internal/telemetry/metrics"
	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxUpdateAttempts = 3

type ledgerRepo interface {
	AddWorkout(ctx context.Context, workout Workout) (*Workout, error)
	UpdateStreak(ctx context.Context, userID int64, apply func(Record) (Record, bool)) (Record, bool, error)
	GetStreak(ctx context.Context, userID int64) (*Record, error)
	GrantAchievement(ctx context.Context, userID int64, achievement AchievementType) (bool, error)
	Achievements(ctx context.Context, userID int64) ([]Achievement, error)
	WorkoutStats(ctx context.Context, userID int64, from time.Time) (*WorkoutStats, error)
}

type cacheInvalidator interface {
	Invalidate()
}

// Ledger owns all writes to the workout ledger and streak records.
type Ledger struct {
	repo        ledgerRepo
	leaderboard cacheInvalidator
	metrics     *metrics.Manager
	userLocks   *pkg.KeyedMutex[int64]
	maxAttempts int
}

type NewLedgerParams struct {
	Repo        ledgerRepo
	Leaderboard cacheInvalidator
	Metrics     *metrics.Manager
}

func NewLedger(params NewLedgerParams) *Ledger {
	return &Ledger{
		repo:        params.Repo,
		leaderboard: params.Leaderboard,
		metrics:     params.Metrics,
		userLocks:   pkg.NewKeyedMutex[int64](),
		maxAttempts: defaultMaxUpdateAttempts,
	}
}

func (l *Ledger) RecordWorkout(ctx context.Context, workout Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.streak.record-workout")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	added, err := l.repo.AddWorkout(ctx, workout)
	if errors.Is(err, ErrWorkoutRecorded) {
		log.Debugf("workout of session %s already recorded for user %d", workout.SessionID, workout.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("add workout of user %d: %w", workout.UserID, err)
	}
	log.Debugf("workout %d added for user %d, session %s", added.ID, added.UserID, added.SessionID)
	return nil
}

// RecordCompletion applies a completed session on date to the user's streak.
// Non-qualifying sessions leave the streak untouched.
func (l *Ledger) RecordCompletion(
	ctx context.Context,
	userID int64,
	date time.Time,
	qualifies bool,
) (_ *CompletionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.streak.record")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))
	span.SetAttributes(attribute.Bool("qualifies", qualifies))

	if !qualifies {
		rec, err := l.GetStreak(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &CompletionResult{Record: *rec}, nil
	}

	unlock := l.userLocks.Lock(userID)
	defer unlock()

	var (
		rec     Record
		changed bool
	)
	for attempt := 1; ; attempt++ {
		rec, changed, err = l.repo.UpdateStreak(ctx, userID, func(current Record) (Record, bool) {
			return Apply(current, date)
		})
		if err == nil {
			break
		}
		if attempt >= l.maxAttempts || !pkg.IsRetryableTxError(err) {
			return nil, fmt.Errorf("update streak of user %d: %w", userID, err)
		}
		log.Warnf("update streak of user %d, attempt %d: %s", userID, attempt, err)
		if l.metrics != nil {
			l.metrics.CounterStreakRecordRetries.Inc()
		}
	}

	result := &CompletionResult{
		Record:  rec,
		Counted: changed,
	}
	if !changed {
		return result, nil
	}

	if l.leaderboard != nil {
		l.leaderboard.Invalidate()
	}

	for _, achievement := range Earned(rec) {
		granted, err := l.repo.GrantAchievement(ctx, userID, achievement)
		if err != nil {
			// the streak itself is already stored
			log.Errorf("grant achievement %s to user %d: %s", achievement, userID, err)
			continue
		}
		if !granted {
			continue
		}
		result.NewAchievements = append(result.NewAchievements, achievement)
		if l.metrics != nil {
			l.metrics.CounterAchievementsGranted.WithLabelValues(string(achievement)).Inc()
		}
	}

	return result, nil
}

// GetStreak returns a zero record for users without any qualifying workout.
func (l *Ledger) GetStreak(ctx context.Context, userID int64) (*Record, error) {
	rec, err := l.repo.GetStreak(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Record{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak of user %d: %w", userID, err)
	}
	return rec, nil
}

func (l *Ledger) Achievements(ctx context.Context, userID int64) ([]Achievement, error) {
	return l.repo.Achievements(ctx, userID)
}
