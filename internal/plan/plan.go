package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTime = errors.New("invalid notification time")

// DaysInWeek is the number of day entries in a weekly plan. Day 0 is Monday.
const DaysInWeek = 7

type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	// Reps is free text: "10", "10-12", "30 sec", "1 min" ...
	Reps string `json:"reps"`
	// rest intervals are in seconds
	RestBetweenSets   int `json:"restBetweenSets"`
	RestAfterExercise int `json:"restAfterExercise"`
}

func (e Exercise) RestAfter() time.Duration {
	if e.RestAfterExercise <= 0 {
		return 0
	}
	return time.Duration(e.RestAfterExercise) * time.Second
}

type DayPlan struct {
	DayOfWeek        int        `json:"dayOfWeek"`
	IsRestDay        bool       `json:"isRestDay"`
	NotificationTime string     `json:"notificationTime"`
	Exercises        []Exercise `json:"exercises"`
}

// Active reports whether the day should produce a workout session.
func (d DayPlan) Active() bool {
	return !d.IsRestDay && len(d.Exercises) > 0
}

// Snapshot returns a copy of the day's exercises that later plan edits cannot touch.
// Rest days always yield an empty snapshot.
func (d DayPlan) Snapshot() []Exercise {
	if !d.Active() {
		return nil
	}
	snapshot := make([]Exercise, len(d.Exercises))
	copy(snapshot, d.Exercises)
	return snapshot
}

// Day finds the plan entry for the given day of week.
func Day(days []DayPlan, dayOfWeek int) (DayPlan, bool) {
	for _, d := range days {
		if d.DayOfWeek == dayOfWeek {
			return d, true
		}
	}
	return DayPlan{}, false
}

func ValidDayOfWeek(day int) bool {
	return day >= 0 && day < DaysInWeek
}

// Weekday converts a plan day (0 = Monday) to time.Weekday (0 = Sunday).
func Weekday(dayOfWeek int) time.Weekday {
	return time.Weekday((dayOfWeek + 1) % 7)
}

// DayOfWeek converts t's weekday to a plan day (0 = Monday).
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseNotificationTime parses "HH:MM" (24h clock, leading zero optional).
func ParseNotificationTime(s string) (hour, minute int, err error) {
	hourStr, minuteStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || hourStr == "" || len(minuteStr) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, err = strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q: bad hour", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q: bad minute", ErrInvalidTime, s)
	}

	return hour, minute, nil
}
