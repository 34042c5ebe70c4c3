//go:build integration_test

package test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/trainplan/internal/plan"
	"github.com/2beens/trainplan/internal/scheduler"
	"github.com/2beens/trainplan/internal/session"
	"github.com/2beens/trainplan/internal/streak"
	"github.com/2beens/trainplan/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() []plan.DayPlan {
	return []plan.DayPlan{
		{
			DayOfWeek:        0,
			NotificationTime: "07:30",
			Exercises: []plan.Exercise{
				{Name: "Push-ups", Sets: 3, Reps: "12"},
				{Name: "Plank", Sets: 2, Reps: "45 sec"},
			},
		},
		{DayOfWeek: 1, IsRestDay: true},
		{
			DayOfWeek:        2,
			NotificationTime: "18:00",
			Exercises: []plan.Exercise{
				{Name: "Squats", Sets: 4, Reps: "15"},
			},
		},
		{
			DayOfWeek:        4,
			NotificationTime: "25:99",
			Exercises: []plan.Exercise{
				{Name: "Lunges", Sets: 3, Reps: "10"},
			},
		},
	}
}

func (s *IntegrationTestSuite) TestHealth() {
	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	resp, err := s.httpClient.Get(serverEndpoint + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Equal(http.StatusOK, s.doRequest(context.Background(), "GET", "/health", nil, &health))
	s.Equal("ok", health.Status)
	s.Equal("test-version-info", health.Version)
}

func (s *IntegrationTestSuite) TestUnauthorized() {
	resp, err := s.httpClient.Get(serverEndpoint + "/leaderboard")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestPlanSaved_InstallsJobs() {
	ctx := context.Background()
	userID := int64(1001)

	s.Require().NoError(users.NewRepo(s.pgPool).Upsert(ctx, users.User{
		ID:        userID,
		FirstName: "Mila",
		Timezone:  "Europe/Belgrade",
	}))
	s.Require().NoError(plan.NewRepo(s.pgPool).SavePlan(ctx, userID, testPlan()))

	var refresh plan.RefreshResponse
	s.Require().Equal(http.StatusOK, s.doRequest(ctx, "POST", fmt.Sprintf("/plans/%d/saved", userID), nil, &refresh))
	s.True(refresh.Refreshed)

	var jobs scheduler.JobsResponse
	s.Require().Equal(http.StatusOK, s.doRequest(ctx, "GET", fmt.Sprintf("/scheduler/jobs/%d", userID), nil, &jobs))
	// rest day and malformed time are skipped
	s.Require().Len(jobs.Jobs, 2)
	s.Equal(0, jobs.Jobs[0].DayOfWeek)
	s.Equal("07:30", jobs.Jobs[0].FireTime)
	s.Equal("Europe/Belgrade", jobs.Jobs[0].Location)
	s.Equal(time.Monday, jobs.Jobs[0].Next.Weekday())
	s.Equal(2, jobs.Jobs[1].DayOfWeek)
}

func (s *IntegrationTestSuite) TestPlanSaved_OverRedis() {
	ctx := context.Background()
	userID := int64(1002)

	days := []plan.DayPlan{
		{
			DayOfWeek:        5,
			NotificationTime: "09:15",
			Exercises:        []plan.Exercise{{Name: "Burpees", Sets: 3, Reps: "10"}},
		},
	}
	s.Require().NoError(plan.NewNotifier(s.redisClient).PlanSaved(ctx, userID, days))

	s.Eventually(func() bool {
		var jobs scheduler.JobsResponse
		if s.doRequest(ctx, "GET", fmt.Sprintf("/scheduler/jobs/%d", userID), nil, &jobs) != http.StatusOK {
			return false
		}
		return len(jobs.Jobs) == 1 && jobs.Jobs[0].DayOfWeek == 5
	}, 5*time.Second, 100*time.Millisecond)

	// a removed plan cancels the triggers
	s.Require().NoError(plan.NewNotifier(s.redisClient).PlanSaved(ctx, userID, []plan.DayPlan{}))
	s.Eventually(func() bool {
		var jobs scheduler.JobsResponse
		s.doRequest(ctx, "GET", fmt.Sprintf("/scheduler/jobs/%d", userID), nil, &jobs)
		return len(jobs.Jobs) == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestStartNow_WalkThrough() {
	ctx := context.Background()
	userID := int64(1003)
	day := plan.DayOfWeek(time.Now().UTC())

	s.Require().NoError(plan.NewRepo(s.pgPool).SavePlan(ctx, userID, []plan.DayPlan{
		{
			DayOfWeek:        day,
			NotificationTime: "06:00",
			Exercises: []plan.Exercise{
				{Name: "Pull-ups", Sets: 3, Reps: "8"},
				{Name: "Stretching", Sets: 1, Reps: "5 min"},
			},
		},
	}))

	var info session.Info
	s.Require().Equal(http.StatusCreated, s.doRequest(ctx, "POST", "/sessions/start", scheduler.StartRequest{
		UserID:    userID,
		DayOfWeek: &day,
	}, &info))
	s.Equal(userID, info.UserID)
	s.Equal(2, info.Total)
	s.Equal(session.StateAwaitingAck, info.State)
	s.Equal("Pull-ups", info.CurrentExercise)

	act := func(index int, action string) session.ActionResponse {
		var resp session.ActionResponse
		s.Require().Equal(http.StatusOK, s.doRequest(ctx, "POST", "/sessions/action", session.ActionRequest{
			UserID:    userID,
			SessionID: info.ID,
			Index:     index,
			Action:    action,
		}, &resp))
		return resp
	}

	s.True(act(0, "done").Accepted)
	// pressing the same button again is ignored
	s.False(act(0, "done").Accepted)

	s.Eventually(func() bool {
		var active session.ActiveSessionsResponse
		s.doRequest(ctx, "GET", fmt.Sprintf("/sessions/%d", userID), nil, &active)
		return len(active.Sessions) == 1 && active.Sessions[0].Index == 1 &&
			active.Sessions[0].State == session.StateAwaitingAck
	}, 5*time.Second, 50*time.Millisecond)

	s.True(act(1, "skip").Accepted)

	var rec streak.Record
	s.Eventually(func() bool {
		return s.doRequest(ctx, "GET", fmt.Sprintf("/streak/%d", userID), nil, &rec) == http.StatusOK &&
			rec.TotalWorkoutDays == 1
	}, 5*time.Second, 100*time.Millisecond)
	s.Equal(1, rec.CurrentStreak)
	s.Equal(1, rec.LongestStreak)

	var active session.ActiveSessionsResponse
	s.Require().Equal(http.StatusOK, s.doRequest(ctx, "GET", fmt.Sprintf("/sessions/%d", userID), nil, &active))
	s.Empty(active.Sessions)

	var progress streak.ProgressReport
	s.Require().Equal(http.StatusOK, s.doRequest(ctx, "GET", fmt.Sprintf("/progress/%d?days=7", userID), nil, &progress))
	s.Equal(1, progress.Workouts)
	s.Equal(1, progress.WorkoutDays)
	s.Require().NotEmpty(progress.Achievements)
	s.Equal(streak.AchievementFirstWorkout, progress.Achievements[0].Type)

	var board streak.LeaderboardResponse
	s.Require().Equal(http.StatusOK, s.doRequest(ctx, "GET", "/leaderboard?limit=50", nil, &board))
	found := false
	for _, e := range board.Entries {
		if e.UserID == userID {
			found = true
			assert.Equal(s.T(), 1, e.TotalWorkoutDays)
		}
	}
	s.True(found)
}

func (s *IntegrationTestSuite) TestStartNow_RestDay() {
	ctx := context.Background()
	userID := int64(1004)
	day := 3

	s.Require().NoError(plan.NewRepo(s.pgPool).SavePlan(ctx, userID, []plan.DayPlan{
		{DayOfWeek: day, IsRestDay: true},
	}))

	status := s.doRequest(ctx, "POST", "/sessions/start", scheduler.StartRequest{UserID: userID, DayOfWeek: &day}, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestStreakRepo_ConcurrentWriters() {
	ctx := context.Background()
	userID := int64(1005)
	repo := streak.NewRepo(s.pgPool)

	// two ledgers stand in for two service replicas sharing the db
	ledgerA := streak.NewLedger(streak.NewLedgerParams{Repo: repo})
	ledgerB := streak.NewLedger(streak.NewLedgerParams{Repo: repo})

	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	errs := make(chan error, 10)
	for i := range 5 {
		go func() {
			_, err := ledgerA.RecordCompletion(ctx, userID, start.AddDate(0, 0, i), true)
			errs <- err
		}()
		go func() {
			_, err := ledgerB.RecordCompletion(ctx, userID, start.AddDate(0, 0, i), true)
			errs <- err
		}()
	}
	for range 10 {
		require.NoError(s.T(), <-errs)
	}

	rec, err := repo.GetStreak(ctx, userID)
	s.Require().NoError(err)
	// every date counted once, whatever order the writers ran in
	s.LessOrEqual(rec.TotalWorkoutDays, 5)
	s.GreaterOrEqual(rec.TotalWorkoutDays, 1)
	s.LessOrEqual(rec.CurrentStreak, rec.LongestStreak)
	s.LessOrEqual(rec.LongestStreak, rec.TotalWorkoutDays)
}

func (s *IntegrationTestSuite) TestStreakRepo_WorkoutOncePerSession() {
	ctx := context.Background()
	repo := streak.NewRepo(s.pgPool)
	now := time.Now().UTC()

	workout := streak.Workout{
		UserID:     1007,
		SessionID:  "integration-once-per-session",
		Date:       now,
		StartedAt:  now.Add(-time.Hour),
		FinishedAt: now,
		Qualifies:  true,
	}
	added, err := repo.AddWorkout(ctx, workout)
	s.Require().NoError(err)
	s.NotZero(added.ID)

	_, err = repo.AddWorkout(ctx, workout)
	s.Require().ErrorIs(err, streak.ErrWorkoutRecorded)

	ledger := streak.NewLedger(streak.NewLedgerParams{Repo: repo})
	s.NoError(ledger.RecordWorkout(ctx, workout))
}

func (s *IntegrationTestSuite) TestUsersRepo_TimezoneKept() {
	ctx := context.Background()
	repo := users.NewRepo(s.pgPool)
	userID := int64(1006)

	s.Require().NoError(repo.Upsert(ctx, users.User{ID: userID, FirstName: "Ana", Timezone: "Asia/Tokyo"}))
	s.Require().NoError(repo.Upsert(ctx, users.User{ID: userID, FirstName: "Ana M."}))

	u, err := repo.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal("Ana M.", u.FirstName)
	s.Equal("Asia/Tokyo", u.Timezone)

	_, err = repo.Get(ctx, 99999)
	s.ErrorIs(err, users.ErrNotFound)
}
