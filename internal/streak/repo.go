package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// AddWorkout appends a finished session to the workout ledger.
// A session is recorded at most once; a repeated one yields ErrWorkoutRecorded.
func (r *Repo) AddWorkout(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.add-workout")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", workout.UserID))
	span.SetAttributes(attribute.String("session.id", workout.SessionID))

	exercises := workout.Exercises
	if exercises == nil {
		exercises = []ExerciseResult{}
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO workout (user_id, session_id, day_of_week, workout_date, started_at, finished_at, qualifies, exercises)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		workout.UserID,
		workout.SessionID,
		workout.DayOfWeek,
		Date(workout.Date),
		workout.StartedAt,
		workout.FinishedAt,
		workout.Qualifies,
		exercises,
	).Scan(&workout.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, fmt.Errorf("%w: session %s", ErrWorkoutRecorded, workout.SessionID)
		}
		return nil, err
	}
	return &workout, nil
}

// UpdateStreak runs apply on the user's record while holding its row lock,
// so concurrent writers from other processes re-read before applying.
func (r *Repo) UpdateStreak(
	ctx context.Context,
	userID int64,
	apply func(Record) (Record, bool),
) (rec Record, changed bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Record{}, false, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO streak (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return Record{}, false, err
	}

	current := Record{UserID: userID}
	var lastWorkoutDate *time.Time
	if err = tx.QueryRow(ctx, `
		SELECT total_workout_days, current_streak, longest_streak, last_workout_date
		FROM streak
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(
		&current.TotalWorkoutDays,
		&current.CurrentStreak,
		&current.LongestStreak,
		&lastWorkoutDate,
	); err != nil {
		return Record{}, false, err
	}
	if lastWorkoutDate != nil {
		current.LastWorkoutDate = Date(*lastWorkoutDate)
	}

	next, changed := apply(current)
	if !changed {
		return current, false, nil
	}

	if _, err = tx.Exec(ctx, `
		UPDATE streak
		SET total_workout_days = $2,
		    current_streak = $3,
		    longest_streak = $4,
		    last_workout_date = $5,
		    updated_at = NOW()
		WHERE user_id = $1
	`,
		userID,
		next.TotalWorkoutDays,
		next.CurrentStreak,
		next.LongestStreak,
		next.LastWorkoutDate,
	); err != nil {
		return Record{}, false, err
	}

	return next, true, nil
}

func (r *Repo) GetStreak(ctx context.Context, userID int64) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	rec := &Record{UserID: userID}
	var lastWorkoutDate *time.Time
	err = r.db.QueryRow(ctx, `
		SELECT total_workout_days, current_streak, longest_streak, last_workout_date
		FROM streak
		WHERE user_id = $1
	`, userID).Scan(
		&rec.TotalWorkoutDays,
		&rec.CurrentStreak,
		&rec.LongestStreak,
		&lastWorkoutDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastWorkoutDate != nil {
		rec.LastWorkoutDate = Date(*lastWorkoutDate)
	}
	return rec, nil
}

// GrantAchievement stores the achievement unless the user already has it.
// It reports whether this call granted it.
func (r *Repo) GrantAchievement(ctx context.Context, userID int64, achievement AchievementType) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.grant-achievement")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("achievement", string(achievement)))

	tag, err := r.db.Exec(ctx, `
		INSERT INTO achievement (user_id, type, earned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, type) DO NOTHING
	`, userID, string(achievement))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) Achievements(ctx context.Context, userID int64) (_ []Achievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.achievements")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT type, earned_at
		FROM achievement
		WHERE user_id = $1
		ORDER BY earned_at, type
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	achievements := make([]Achievement, 0)
	for rows.Next() {
		a := Achievement{UserID: userID}
		var achievementType string
		if err := rows.Scan(&achievementType, &a.EarnedAt); err != nil {
			return nil, err
		}
		a.Type = AchievementType(achievementType)
		achievements = append(achievements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return achievements, nil
}

// TopUsers orders by total workout days, then longest streak. Ties beyond
// that are broken by user id to keep pages stable.
func (r *Repo) TopUsers(ctx context.Context, limit int) (_ []LeaderboardEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.top-users")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.db.Query(ctx, `
		SELECT s.user_id, COALESCE(u.first_name, ''), s.total_workout_days, s.current_streak, s.longest_streak
		FROM streak s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.total_workout_days > 0
		ORDER BY s.total_workout_days DESC, s.longest_streak DESC, s.user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		e := LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.FirstName, &e.TotalWorkoutDays, &e.CurrentStreak, &e.LongestStreak); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *Repo) WorkoutStats(ctx context.Context, userID int64, from time.Time) (_ *WorkoutStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.workout-stats")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))
	span.SetAttributes(attribute.String("from", from.String()))

	stats := &WorkoutStats{}
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT workout_date), MIN(workout_date), MAX(workout_date)
		FROM workout
		WHERE user_id = $1 AND workout_date >= $2
	`, userID, Date(from)).Scan(
		&stats.Workouts,
		&stats.WorkoutDays,
		&stats.FirstWorkout,
		&stats.LastWorkout,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
