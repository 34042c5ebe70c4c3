package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Notifier is used by the plan editing side to announce saved plans.
type Notifier struct {
	redis publisher
}

func NewNotifier(redis publisher) *Notifier {
	return &Notifier{
		redis: redis,
	}
}

// PlanSaved publishes a PlanSavedEvent. Passing nil days makes the
// watcher load the plan from the store.
func (n *Notifier) PlanSaved(ctx context.Context, userID int64, days []DayPlan) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.plan.notify-saved")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	payload, err := json.Marshal(PlanSavedEvent{
		UserID: userID,
		Plan:   days,
	})
	if err != nil {
		return fmt.Errorf("marshal plan saved event: %w", err)
	}

	if err := n.redis.Publish(ctx, PlanSavedChannel, string(payload)).Err(); err != nil {
		return fmt.Errorf("publish plan saved event: %w", err)
	}
	return nil
}
