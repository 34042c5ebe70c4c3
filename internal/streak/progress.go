package streak

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/2beens/trainplan/internal/telemetry/tracing"
)

const (
	DefaultProgressDays = 30
	MaxProgressDays     = 365
)

type ProgressReport struct {
	UserID       int64         `json:"userId"`
	Days         int           `json:"days"`
	From         time.Time     `json:"from"`
	To           time.Time     `json:"to"`
	Workouts     int           `json:"workouts"`
	WorkoutDays  int           `json:"workoutDays"`
	PerWeek      float64       `json:"perWeek"`
	FirstWorkout *time.Time    `json:"firstWorkout,omitempty"`
	LastWorkout  *time.Time    `json:"lastWorkout,omitempty"`
	Streak       Record        `json:"streak"`
	Achievements []Achievement `json:"achievements"`
}

// Progress summarizes the last days of the ledger, today included.
func (l *Ledger) Progress(ctx context.Context, userID int64, days int, today time.Time) (_ *ProgressReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.streak.progress")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if days <= 0 {
		days = DefaultProgressDays
	}
	days = min(days, MaxProgressDays)

	to := Date(today)
	from := to.AddDate(0, 0, -(days - 1))

	stats, err := l.repo.WorkoutStats(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("workout stats of user %d: %w", userID, err)
	}
	rec, err := l.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	achievements, err := l.Achievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievements of user %d: %w", userID, err)
	}

	return &ProgressReport{
		UserID:       userID,
		Days:         days,
		From:         from,
		To:           to,
		Workouts:     stats.Workouts,
		WorkoutDays:  stats.WorkoutDays,
		PerWeek:      math.Round(float64(stats.WorkoutDays)/float64(days)*7*100) / 100,
		FirstWorkout: stats.FirstWorkout,
		LastWorkout:  stats.LastWorkout,
		Streak:       *rec,
		Achievements: achievements,
	}, nil
}
