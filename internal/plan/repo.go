package plan

import (
	"context"
	"fmt"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

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

// GetPlan returns the user's day entries ordered by day of week.
// A user without a plan gets an empty slice, not an error.
func (r *Repo) GetPlan(ctx context.Context, userID int64) (_ []DayPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT day_of_week, is_rest_day, notification_time, exercises
		FROM plan_day
		WHERE user_id = $1
		ORDER BY day_of_week
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]DayPlan, 0, DaysInWeek)
	for rows.Next() {
		var day DayPlan
		if err := rows.Scan(&day.DayOfWeek, &day.IsRestDay, &day.NotificationTime, &day.Exercises); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

// ListUserIDs returns all users that have at least one active day.
func (r *Repo) ListUserIDs(ctx context.Context) (_ []int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.list-users")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT user_id
		FROM plan_day
		WHERE is_rest_day = FALSE
		  AND jsonb_array_length(exercises) > 0
		ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return userIDs, nil
}

// SavePlan replaces the user's plan as a whole.
func (r *Repo) SavePlan(ctx context.Context, userID int64, days []DayPlan) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.save")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	for _, d := range days {
		if !ValidDayOfWeek(d.DayOfWeek) {
			return fmt.Errorf("invalid day of week: %d", d.DayOfWeek)
		}
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	if _, err = tx.Exec(ctx, `DELETE FROM plan_day WHERE user_id = $1`, userID); err != nil {
		return err
	}

	for _, d := range days {
		exercises := d.Exercises
		if exercises == nil {
			exercises = []Exercise{}
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO plan_day (user_id, day_of_week, is_rest_day, notification_time, exercises, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`,
			userID,
			d.DayOfWeek,
			d.IsRestDay,
			d.NotificationTime,
			exercises,
		); err != nil {
			return err
		}
	}

	return nil
}
