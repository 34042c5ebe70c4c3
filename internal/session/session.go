package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2beens/trainplan/internal/plan"
	"github.com/2beens/trainplan/internal/streak"
)

var (
	ErrStaleAction     = errors.New("stale action")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyWorkout    = errors.New("workout has no exercises")
	ErrInvalidAction   = errors.New("invalid action")
)

type State string

const (
	StatePending     State = "pending"
	StateAwaitingAck State = "awaiting_ack"
	StateResting     State = "resting"
	StateCompleted   State = "completed"
	StateAbandoned   State = "abandoned"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

type ActionKind string

const (
	ActionComplete ActionKind = "complete"
	ActionSkip     ActionKind = "skip"
)

func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "complete", "completed", "done":
		return ActionComplete, nil
	case "skip", "skipped":
		return ActionSkip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Action is a user's reaction to the prompt of exercise Index.
type Action struct {
	UserID    int64      `json:"userId"`
	SessionID string     `json:"sessionId"`
	Index     int        `json:"index"`
	Kind      ActionKind `json:"action"`
}

type timer interface {
	Stop() bool
}

// Session walks one user through one day's exercises.
// All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	ID        string
	UserID    int64
	DayOfWeek int
	Exercises []plan.Exercise
	Statuses  []streak.ExerciseStatus
	Index     int
	State     State
	StartedAt time.Time
	Location  *time.Location

	// timer is the armed abandonment or rest timer
	timer timer
	// generation is bumped on every transition; timer callbacks
	// carry the generation they were armed in and give up on mismatch
	generation uint64
}

// Info is a read-only view of a session.
type Info struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"userId"`
	DayOfWeek       int       `json:"dayOfWeek"`
	Index           int       `json:"index"`
	Total           int       `json:"total"`
	State           State     `json:"state"`
	CurrentExercise string    `json:"currentExercise"`
	StartedAt       time.Time `json:"startedAt"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() Info {
	info := Info{
		ID:        s.ID,
		UserID:    s.UserID,
		DayOfWeek: s.DayOfWeek,
		Index:     s.Index,
		Total:     len(s.Exercises),
		State:     s.State,
		StartedAt: s.StartedAt,
	}
	if s.Index < len(s.Exercises) {
		info.CurrentExercise = s.Exercises[s.Index].Name
	}
	return info
}

// transition moves to state and invalidates any armed timer.
func (s *Session) transition(state State) uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.State = state
	s.generation++
	return s.generation
}

func (s *Session) results() []streak.ExerciseResult {
	results := make([]streak.ExerciseResult, len(s.Exercises))
	for i, ex := range s.Exercises {
		results[i] = streak.ExerciseResult{
			Name:   ex.Name,
			Sets:   ex.Sets,
			Reps:   ex.Reps,
			Status: s.Statuses[i],
		}
	}
	return results
}

// qualifies reports whether at least one exercise of the snapshot qualifies.
// Skipping an exercise still advances the session and does not change the outcome.
func (s *Session) qualifies(q Qualifier) bool {
	for _, ex := range s.Exercises {
		if q(ex) {
			return true
		}
	}
	return false
}

func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].StartedAt.Before(infos[j].StartedAt)
		}
		return infos[i].ID < infos[j].ID
	})
}
