package session

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/2beens/trainplan/internal/messaging"
	"github.com/2beens/trainplan/internal/plan"
	"github.com/2beens/trainplan/internal/streak"
	"github.com/2beens/trainplan/internal/telemetry/metrics"
	"github.com/2beens/trainplan/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTimeout = 24 * time.Hour

type channel interface {
	Send(ctx context.Context, userID int64, prompt messaging.Prompt) error
}

type ledger interface {
	RecordWorkout(ctx context.Context, workout streak.Workout) error
	RecordCompletion(ctx context.Context, userID int64, date time.Time, qualifies bool) (*streak.CompletionResult, error)
}

type locator interface {
	Location(ctx context.Context, userID int64) *time.Location
}

// Manager runs workout sessions. Sessions live in memory only.
type Manager struct {
	channel   channel
	ledger    ledger
	locations locator
	qualifier Qualifier
	metrics   *metrics.Manager
	timeout   time.Duration

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer
	newID     func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

type NewManagerParams struct {
	Channel   channel
	Ledger    ledger
	Locations locator
	Qualifier Qualifier
	Metrics   *metrics.Manager
	Timeout   time.Duration
}

func NewManager(params NewManagerParams) *Manager {
	qualifier := params.Qualifier
	if qualifier == nil {
		qualifier = DefaultQualifier
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Manager{
		channel:   params.Channel,
		ledger:    params.Ledger,
		locations: params.Locations,
		qualifier: qualifier,
		metrics:   params.Metrics,
		timeout:   timeout,
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Start snapshots exercises into a new session and prompts the first one.
// A failed first prompt does not fail Start: the session waits for the
// abandonment timeout like any unanswered prompt.
func (m *Manager) Start(ctx context.Context, userID int64, dayOfWeek int, exercises []plan.Exercise) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.session.start")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))
	span.SetAttributes(attribute.Int("day", dayOfWeek))

	if len(exercises) == 0 {
		return nil, ErrEmptyWorkout
	}

	snapshot := make([]plan.Exercise, len(exercises))
	copy(snapshot, exercises)
	statuses := make([]streak.ExerciseStatus, len(exercises))
	for i := range statuses {
		statuses[i] = streak.ExercisePending
	}

	s := &Session{
		ID:        m.newID(),
		UserID:    userID,
		DayOfWeek: dayOfWeek,
		Exercises: snapshot,
		Statuses:  statuses,
		State:     StatePending,
		StartedAt: m.now(),
		Location:  m.locations.Location(ctx, userID),
	}
	span.SetAttributes(attribute.String("session.id", s.ID))

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.CounterSessions.WithLabelValues(metrics.SessionStarted).Inc()
		m.metrics.GaugeActiveSessions.Inc()
	}
	log.Debugf("session %s started for user %d, day %d, %d exercises", s.ID, userID, dayOfWeek, len(snapshot))

	s.mu.Lock()
	defer s.mu.Unlock()
	m.promptLocked(ctx, s)

	return s, nil
}

// HandleAction applies a user's complete/skip. Anything that does not match
// the session's current prompt returns ErrStaleAction and changes nothing.
func (m *Manager) HandleAction(ctx context.Context, action Action) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.session.action")
	defer func() {
		if errors.Is(err, ErrStaleAction) {
			span.SetAttributes(attribute.Bool("stale", true))
			tracing.EndSpanWithErrCheck(span, nil)
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", action.SessionID))
	span.SetAttributes(attribute.Int("index", action.Index))
	span.SetAttributes(attribute.String("action", string(action.Kind)))

	s := m.get(action.SessionID)
	if s == nil {
		m.staleAction(action, "unknown session")
		return ErrStaleAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.UserID != action.UserID:
		m.staleAction(action, "session of another user")
		return ErrStaleAction
	case s.State != StateAwaitingAck:
		m.staleAction(action, "session is "+string(s.State))
		return ErrStaleAction
	case s.Index != action.Index:
		m.staleAction(action, fmt.Sprintf("current index is %d", s.Index))
		return ErrStaleAction
	}

	switch action.Kind {
	case ActionComplete:
		s.Statuses[s.Index] = streak.ExerciseCompleted
	case ActionSkip:
		s.Statuses[s.Index] = streak.ExerciseSkipped
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action.Kind)
	}

	generation := s.transition(StateResting)
	rest := s.Exercises[s.Index].RestAfter()
	index := s.Index
	s.timer = m.afterFunc(rest, func() {
		m.afterRest(s, generation)
	})

	if rest > 0 && index+1 < len(s.Exercises) {
		m.notify(ctx, s.UserID, messaging.Prompt{
			Kind: messaging.PromptRest,
			Text: fmt.Sprintf("Rest %s. Next up: %s", rest, html.EscapeString(s.Exercises[index+1].Name)),
		})
	}

	return nil
}

func (m *Manager) afterRest(s *Session, generation uint64) {
	ctx, span := tracing.GlobalTracer.Start(context.Background(), "service.session.after-rest")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || s.State != StateResting {
		log.Debugf("session %s: stale rest continuation", s.ID)
		return
	}

	if s.Index+1 < len(s.Exercises) {
		s.Index++
		m.promptLocked(ctx, s)
		return
	}

	m.completeLocked(ctx, s)
}

// promptLocked sends the prompt for the current index and arms the abandonment timer.
func (m *Manager) promptLocked(ctx context.Context, s *Session) {
	generation := s.transition(StateAwaitingAck)
	s.timer = m.afterFunc(m.timeout, func() {
		m.abandon(s, generation)
	})

	if err := m.deliver(ctx, s.UserID, m.exercisePrompt(s)); err != nil {
		log.Errorf("session %s: deliver prompt %d to user %d: %s", s.ID, s.Index, s.UserID, err)
	}
}

func (m *Manager) exercisePrompt(s *Session) messaging.Prompt {
	ex := s.Exercises[s.Index]

	var text strings.Builder
	fmt.Fprintf(&text, "<b>%d/%d %s</b>\n", s.Index+1, len(s.Exercises), html.EscapeString(ex.Name))
	fmt.Fprintf(&text, "%d x %s", ex.Sets, html.EscapeString(ex.Reps))
	if ex.RestBetweenSets > 0 {
		fmt.Fprintf(&text, "\nRest between sets: %s", time.Duration(ex.RestBetweenSets)*time.Second)
	}

	return messaging.Prompt{
		Kind: messaging.PromptExercise,
		Text: text.String(),
		Buttons: []messaging.Button{
			{
				Label: "Done",
				Data: messaging.Callback{
					SessionID: s.ID,
					Index:     s.Index,
					Action:    messaging.ActionComplete,
				}.Encode(),
			},
			{
				Label: "Skip",
				Data: messaging.Callback{
					SessionID: s.ID,
					Index:     s.Index,
					Action:    messaging.ActionSkip,
				}.Encode(),
			},
		},
	}
}

func (m *Manager) completeLocked(ctx context.Context, s *Session) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.session.complete")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.ID))

	s.transition(StateCompleted)
	m.discard(s, metrics.SessionCompleted)

	finishedAt := m.now()
	date := streak.DateOf(finishedAt, s.Location)
	qualifies := s.qualifies(m.qualifier)

	workout := streak.Workout{
		UserID:     s.UserID,
		SessionID:  s.ID,
		DayOfWeek:  s.DayOfWeek,
		Date:       date,
		StartedAt:  s.StartedAt,
		FinishedAt: finishedAt,
		Qualifies:  qualifies,
		Exercises:  s.results(),
	}
	if err := m.ledger.RecordWorkout(ctx, workout); err != nil {
		span.RecordError(err)
		log.Errorf("session %s: record workout of user %d: %s", s.ID, s.UserID, err)
	}

	result, err := m.ledger.RecordCompletion(ctx, s.UserID, date, qualifies)
	if err != nil {
		span.RecordError(err)
		log.Errorf("session %s: record completion of user %d: %s", s.ID, s.UserID, err)
	}

	log.Debugf("session %s completed by user %d, qualifies: %t", s.ID, s.UserID, qualifies)
	m.notify(ctx, s.UserID, completionPrompt(qualifies, result))
}

func completionPrompt(qualifies bool, result *streak.CompletionResult) messaging.Prompt {
	var text strings.Builder
	text.WriteString("<b>Workout complete!</b>")
	if !qualifies {
		text.WriteString("\nThis one did not count toward your streak.")
	}
	if result != nil {
		fmt.Fprintf(&text, "\nStreak: %d, longest: %d, total days: %d",
			result.Record.CurrentStreak,
			result.Record.LongestStreak,
			result.Record.TotalWorkoutDays,
		)
		for _, a := range result.NewAchievements {
			fmt.Fprintf(&text, "\nNew achievement: %s", a.Title())
		}
	}
	return messaging.Prompt{
		Kind: messaging.PromptCompleted,
		Text: text.String(),
	}
}

func (m *Manager) abandon(s *Session, generation uint64) {
	ctx, span := tracing.GlobalTracer.Start(context.Background(), "service.session.abandon")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || s.State.Terminal() {
		return
	}

	s.transition(StateAbandoned)
	m.discard(s, metrics.SessionAbandoned)
	log.Infof("session %s of user %d abandoned at exercise %d/%d", s.ID, s.UserID, s.Index+1, len(s.Exercises))

	m.notify(ctx, s.UserID, messaging.Prompt{
		Kind: messaging.PromptAbandoned,
		Text: "Workout session expired. See you next time!",
	})
}

// discard drops a terminal session from the registry.
func (m *Manager) discard(s *Session, outcome string) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.CounterSessions.WithLabelValues(outcome).Inc()
		m.metrics.GaugeActiveSessions.Dec()
		if outcome == metrics.SessionCompleted {
			m.metrics.HistogramSessionDuration.Observe(m.now().Sub(s.StartedAt).Seconds())
		}
	}
}

// deliver sends prompt, retrying once.
func (m *Manager) deliver(ctx context.Context, userID int64, prompt messaging.Prompt) error {
	err := m.channel.Send(ctx, userID, prompt)
	if err == nil {
		return nil
	}
	log.Warnf("send %s prompt to user %d: %s, retrying", prompt.Kind, userID, err)

	if err := m.channel.Send(ctx, userID, prompt); err != nil {
		if m.metrics != nil {
			m.metrics.CounterPromptFailures.Inc()
		}
		return err
	}
	return nil
}

// notify is a best effort send for informational prompts.
func (m *Manager) notify(ctx context.Context, userID int64, prompt messaging.Prompt) {
	if err := m.channel.Send(ctx, userID, prompt); err != nil {
		log.Warnf("send %s prompt to user %d: %s", prompt.Kind, userID, err)
	}
}

func (m *Manager) staleAction(action Action, reason string) {
	log.Debugf("ignoring action %s of user %d on session %s [%d]: %s",
		action.Kind, action.UserID, action.SessionID, action.Index, reason)
	if m.metrics != nil {
		m.metrics.CounterStaleActions.Inc()
	}
}

func (m *Manager) get(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// Get returns a view of an active session.
func (m *Manager) Get(sessionID string) (Info, error) {
	s := m.get(sessionID)
	if s == nil {
		return Info{}, ErrSessionNotFound
	}
	return s.Info(), nil
}

// Active lists the user's running sessions, oldest first.
func (m *Manager) Active(userID int64) []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sortInfos(infos)
	return infos
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown disarms all timers. Running sessions are dropped.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		if !s.State.Terminal() {
			s.transition(StateAbandoned)
		}
		s.mu.Unlock()
	}
	if m.metrics != nil {
		m.metrics.GaugeActiveSessions.Set(0)
	}
	log.Debugf("session manager shut down, dropped %d sessions", len(sessions))
}
