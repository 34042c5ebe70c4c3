package streak

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type repoMock struct {
	mutex        sync.Mutex
	records      map[int64]Record
	workouts     []Workout
	achievements map[int64]map[AchievementType]time.Time
	names        map[int64]string

	updateErrs     []error
	updateCalls    int
	topUsersCalls  int
	onUpdateStreak func()
}

func newRepoMock() *repoMock {
	return &repoMock{
		records:      map[int64]Record{},
		achievements: map[int64]map[AchievementType]time.Time{},
		names:        map[int64]string{},
	}
}

func (r *repoMock) AddWorkout(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, w := range r.workouts {
		if w.SessionID == workout.SessionID {
			return nil, fmt.Errorf("%w: session %s", ErrWorkoutRecorded, workout.SessionID)
		}
	}
	workout.ID = int64(len(r.workouts) + 1)
	r.workouts = append(r.workouts, workout)
	return &workout, nil
}

func (r *repoMock) UpdateStreak(_ context.Context, userID int64, apply func(Record) (Record, bool)) (Record, bool, error) {
	if r.onUpdateStreak != nil {
		r.onUpdateStreak()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.updateCalls++
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		return Record{}, false, err
	}

	current, ok := r.records[userID]
	if !ok {
		current = Record{UserID: userID}
	}
	next, changed := apply(current)
	if changed {
		r.records[userID] = next
	}
	return next, changed, nil
}

func (r *repoMock) GetStreak(_ context.Context, userID int64) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *repoMock) GrantAchievement(_ context.Context, userID int64, achievement AchievementType) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.achievements[userID] == nil {
		r.achievements[userID] = map[AchievementType]time.Time{}
	}
	if _, ok := r.achievements[userID][achievement]; ok {
		return false, nil
	}
	r.achievements[userID][achievement] = time.Now()
	return true, nil
}

func (r *repoMock) Achievements(_ context.Context, userID int64) ([]Achievement, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	achievements := make([]Achievement, 0)
	for typ, earnedAt := range r.achievements[userID] {
		achievements = append(achievements, Achievement{UserID: userID, Type: typ, EarnedAt: earnedAt})
	}
	sort.Slice(achievements, func(i, j int) bool { return achievements[i].Type < achievements[j].Type })
	return achievements, nil
}

func (r *repoMock) TopUsers(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.topUsersCalls++

	records := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].TotalWorkoutDays != records[j].TotalWorkoutDays {
			return records[i].TotalWorkoutDays > records[j].TotalWorkoutDays
		}
		if records[i].LongestStreak != records[j].LongestStreak {
			return records[i].LongestStreak > records[j].LongestStreak
		}
		return records[i].UserID < records[j].UserID
	})

	entries := make([]LeaderboardEntry, 0, limit)
	for i, rec := range records {
		if i == limit {
			break
		}
		entries = append(entries, LeaderboardEntry{
			Rank:             i + 1,
			UserID:           rec.UserID,
			FirstName:        r.names[rec.UserID],
			TotalWorkoutDays: rec.TotalWorkoutDays,
			CurrentStreak:    rec.CurrentStreak,
			LongestStreak:    rec.LongestStreak,
		})
	}
	return entries, nil
}

func (r *repoMock) WorkoutStats(_ context.Context, userID int64, from time.Time) (*WorkoutStats, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stats := &WorkoutStats{}
	days := map[time.Time]bool{}
	for _, w := range r.workouts {
		date := Date(w.Date)
		if w.UserID != userID || date.Before(Date(from)) {
			continue
		}
		stats.Workouts++
		days[date] = true
		if stats.FirstWorkout == nil || date.Before(*stats.FirstWorkout) {
			d := date
			stats.FirstWorkout = &d
		}
		if stats.LastWorkout == nil || date.After(*stats.LastWorkout) {
			d := date
			stats.LastWorkout = &d
		}
	}
	stats.WorkoutDays = len(days)
	return stats, nil
}
