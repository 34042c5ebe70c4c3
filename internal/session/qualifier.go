package session

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/2beens/trainplan/internal/plan"
)

const (
	minQualifyingSets = 2
	minQualifyingReps = 5
)

// Qualifier decides whether a completed exercise counts toward the streak.
type Qualifier func(exercise plan.Exercise) bool

var (
	leadingNumberRe = regexp.MustCompile(`^\s*(\d+)`)
	durationRe      = regexp.MustCompile(
		`(?i)(\d+\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|сек\p{L}*|мин\p{L}*|час\p{L}*)(?:[^\p{L}]|$))|(\d+:\d{2})`,
	)
)

// DefaultQualifier accepts exercises of at least 2 sets that are either
// at least 5 reps ("5", "8-12") or timed ("30 sec", "1 min", "1:30").
func DefaultQualifier(exercise plan.Exercise) bool {
	if exercise.Sets < minQualifyingSets {
		return false
	}

	reps := strings.TrimSpace(exercise.Reps)
	if durationRe.MatchString(reps) {
		return true
	}

	m := leadingNumberRe.FindStringSubmatch(reps)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return n >= minQualifyingReps
}
