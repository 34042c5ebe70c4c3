package streak

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("streak record not found")
	ErrWorkoutRecorded = errors.New("workout already recorded")
)

// Record is a user's streak state. LastWorkoutDate is a calendar date in the
// user's timezone, stored as midnight UTC of that date.
type Record struct {
	UserID           int64     `json:"userId"`
	TotalWorkoutDays int       `json:"totalWorkoutDays"`
	CurrentStreak    int       `json:"currentStreak"`
	LongestStreak    int       `json:"longestStreak"`
	LastWorkoutDate  time.Time `json:"lastWorkoutDate"`
}

// Empty reports whether the user never had a qualifying workout.
func (r Record) Empty() bool {
	return r.LastWorkoutDate.IsZero()
}

// DateOf returns the calendar date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc))
}

// Date drops the time of day and the location of t, keeping its calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	// both are UTC midnights, no DST in between
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// Apply folds one qualifying completion on date into current.
// The second result is false when the record must stay as it is:
// a second workout on the same day, or a date before the last workout.
func Apply(current Record, date time.Time) (Record, bool) {
	date = Date(date)

	if current.Empty() {
		return Record{
			UserID:           current.UserID,
			TotalWorkoutDays: 1,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastWorkoutDate:  date,
		}, true
	}

	gap := DaysBetween(current.LastWorkoutDate, date)
	if gap <= 0 {
		return current, false
	}

	next := current
	if gap == 1 {
		next.CurrentStreak++
	} else {
		next.CurrentStreak = 1
	}
	next.TotalWorkoutDays++
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	next.LastWorkoutDate = date

	return next, true
}
