package streak

import "time"

type ExerciseStatus string

const (
	ExercisePending   ExerciseStatus = "pending"
	ExerciseCompleted ExerciseStatus = "completed"
	ExerciseSkipped   ExerciseStatus = "skipped"
)

type ExerciseResult struct {
	Name   string         `json:"name"`
	Sets   int            `json:"sets"`
	Reps   string         `json:"reps"`
	Status ExerciseStatus `json:"status"`
}

// Workout is an append-only ledger entry, one per completed session.
type Workout struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"userId"`
	SessionID  string           `json:"sessionId"`
	DayOfWeek  int              `json:"dayOfWeek"`
	Date       time.Time        `json:"date"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Qualifies  bool             `json:"qualifies"`
	Exercises  []ExerciseResult `json:"exercises"`
}

// CompletionResult is what RecordCompletion did to the user's streak.
type CompletionResult struct {
	Record          Record            `json:"record"`
	Counted         bool              `json:"counted"`
	NewAchievements []AchievementType `json:"newAchievements"`
}

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           int64  `json:"userId"`
	FirstName        string `json:"firstName"`
	TotalWorkoutDays int    `json:"totalWorkoutDays"`
	CurrentStreak    int    `json:"currentStreak"`
	LongestStreak    int    `json:"longestStreak"`
}

// WorkoutStats aggregates ledger entries since a given date.
type WorkoutStats struct {
	Workouts     int
	WorkoutDays  int
	FirstWorkout *time.Time
	LastWorkout  *time.Time
}
