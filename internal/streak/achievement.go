package streak

import "time"

type AchievementType string

const (
	AchievementFirstWorkout AchievementType = "first_workout"
	AchievementTenWorkouts  AchievementType = "ten_workouts"
	AchievementWeekStreak   AchievementType = "week_streak"
	AchievementMonthStreak  AchievementType = "month_streak"
)

type Achievement struct {
	UserID   int64           `json:"userId"`
	Type     AchievementType `json:"type"`
	EarnedAt time.Time       `json:"earnedAt"`
}

var achievementRules = []struct {
	achievement AchievementType
	title       string
	earned      func(Record) bool
}{
	{AchievementFirstWorkout, "First workout", func(r Record) bool { return r.TotalWorkoutDays >= 1 }},
	{AchievementTenWorkouts, "10 workouts", func(r Record) bool { return r.TotalWorkoutDays >= 10 }},
	{AchievementWeekStreak, "7 days in a row", func(r Record) bool { return r.CurrentStreak >= 7 }},
	{AchievementMonthStreak, "30 days in a row", func(r Record) bool { return r.CurrentStreak >= 30 }},
}

// Earned lists every achievement rec qualifies for, granted before or not.
func Earned(rec Record) []AchievementType {
	var earned []AchievementType
	for _, rule := range achievementRules {
		if rule.earned(rec) {
			earned = append(earned, rule.achievement)
		}
	}
	return earned
}

func (a AchievementType) Title() string {
	for _, rule := range achievementRules {
		if rule.achievement == a {
			return rule.title
		}
	}
	return string(a)
}
