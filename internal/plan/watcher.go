package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/trainplan/internal/telemetry/metrics"
	"github.com/2beens/trainplan/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=plan_test

// PlanSavedChannel is the redis pub/sub channel the plan editor publishes saves to.
const PlanSavedChannel = "trainplan::plan-saved"

// PlanSavedEvent is the message published after a plan save.
// A nil Plan tells the watcher to read the stored plan itself.
type PlanSavedEvent struct {
	UserID int64     `json:"userId"`
	Plan   []DayPlan `json:"plan"`
}

type reinstaller interface {
	Reinstall(ctx context.Context, userID int64, days []DayPlan) error
}

type planStore interface {
	GetPlan(ctx context.Context, userID int64) ([]DayPlan, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type Watcher struct {
	scheduler reinstaller
	plans     planStore
	redis     subscriber
	metrics   *metrics.Manager
}

type NewWatcherParams struct {
	Scheduler reinstaller
	Plans     planStore
	Redis     subscriber
	Metrics   *metrics.Manager
}

func NewWatcher(params NewWatcherParams) *Watcher {
	return &Watcher{
		scheduler: params.Scheduler,
		plans:     params.Plans,
		redis:     params.Redis,
		metrics:   params.Metrics,
	}
}

// OnPlanSaved makes the user's scheduled triggers reflect the given plan.
func (w *Watcher) OnPlanSaved(ctx context.Context, userID int64, days []DayPlan) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.plan.on-saved")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if err := w.scheduler.Reinstall(ctx, userID, days); err != nil {
		return fmt.Errorf("reinstall user %d: %w", userID, err)
	}
	return nil
}

// Refresh re-reads the stored plan of a user and reinstalls its triggers.
func (w *Watcher) Refresh(ctx context.Context, userID int64) error {
	days, err := w.plans.GetPlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("get plan of user %d: %w", userID, err)
	}
	return w.OnPlanSaved(ctx, userID, days)
}

// HandleEvent processes one PlanSavedEvent payload.
func (w *Watcher) HandleEvent(ctx context.Context, payload []byte) error {
	var event PlanSavedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal plan saved event: %w", err)
	}
	if event.UserID == 0 {
		return errors.New("plan saved event without user id")
	}

	if w.metrics != nil {
		w.metrics.CounterPlanSavedEvents.Inc()
	}

	if event.Plan == nil {
		return w.Refresh(ctx, event.UserID)
	}
	return w.OnPlanSaved(ctx, event.UserID, event.Plan)
}

// Listen consumes plan saved events until ctx is done.
func (w *Watcher) Listen(ctx context.Context) error {
	pubsub := w.redis.Subscribe(ctx, PlanSavedChannel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Errorf("plan watcher: close pubsub: %s", err)
		}
	}()

	// wait for the subscription confirmation so a bad connection fails early
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", PlanSavedChannel, err)
	}
	log.Infof("plan watcher listening on [%s]", PlanSavedChannel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Debugln("plan watcher stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("plan saved channel closed")
			}
			if err := w.HandleEvent(ctx, []byte(msg.Payload)); err != nil {
				log.Errorf("plan watcher: handle event: %s", err)
			}
		}
	}
}
