package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unstoppable/internal/api"
	"unstoppable/internal/database"
	"unstoppable/internal/utils"
)

func newTestRepository(t *testing.T) *database.Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewRepository(db)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubSyncer struct {
	mu        sync.Mutex
	progress  []api.DailyProgressUpsertRequest
	snapshots []api.StreakSnapshotUpsertRequest
}

func (s *stubSyncer) SyncDailyProgress(ctx context.Context, req api.DailyProgressUpsertRequest) (api.AckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, req)
	return api.AckResponse{OK: true}, nil
}

func (s *stubSyncer) SyncStreakSnapshot(ctx context.Context, req api.StreakSnapshotUpsertRequest) (api.AckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, req)
	return api.AckResponse{OK: true}, nil
}

func (s *stubSyncer) progressCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.progress)
}

type stubSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *stubSender) SendMessage(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *stubSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

func newTestStreak(t *testing.T, repo *database.Repository, clock *fakeClock) (*StreakService, *stubSyncer, *stubSender) {
	t.Helper()
	syncer := &stubSyncer{}
	sender := &stubSender{}
	s := NewStreakService(repo, syncer)
	s.now = clock.Now
	s.load()
	s.SetNotificationSender(sender)
	return s, syncer, sender
}

func testClock() *fakeClock {
	// Среда, середина дня
	return &fakeClock{now: time.Date(2026, 8, 26, 12, 0, 0, 0, time.Local)}
}

func TestCompletedCountMatchesTodaySet(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()
	s, _, _ := newTestStreak(t, repo, clock)
	today := utils.TodayKey(clock.Now())

	s.CompleteTask("a", 5)
	s.CompleteTask("b", 5)
	s.CompleteTask("b", 5) // повторная отметка не меняет счёт

	assert.Equal(t, 2, s.TodayProgress(5).Completed)
	assert.Equal(t, 2, s.CompletedCount(today))
	assert.True(t, s.IsCompleted("a"))
	assert.False(t, s.IsCompleted("c"))

	s.UncompleteTask("a", 5)
	assert.Equal(t, 1, s.TodayProgress(5).Completed)
	assert.Equal(t, 1, s.CompletedCount(today))
}

func TestQualificationAt80Percent(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()
	s, _, _ := newTestStreak(t, repo, clock)
	today := utils.TodayKey(clock.Now())

	// 3 из 5 — 60%, зачёта нет
	s.CompleteTask("a", 5)
	s.CompleteTask("b", 5)
	s.CompleteTask("c", 5)
	assert.Equal(t, 0, s.StreakCount())
	assert.Equal(t, "", s.State().LastQualifiedDate)

	// 4 из 5 — 80%, день зачтён
	s.CompleteTask("d", 5)
	assert.Equal(t, 1, s.StreakCount())
	assert.Equal(t, today, s.State().LastQualifiedDate)
	assert.Equal(t, 1, s.LongestStreak())

	// Пятая задача уже не даёт второго зачёта за день
	s.CompleteTask("e", 5)
	assert.Equal(t, 1, s.StreakCount())
}

func TestStreakContinuesFromYesterday(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 3))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 5))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, utils.YesterdayKey(clock.Now())))

	s, _, _ := newTestStreak(t, repo, clock)

	s.RecordBatchCompletion([]string{"a", "b", "c", "d"}, 5)
	assert.Equal(t, 4, s.StreakCount())
	assert.Equal(t, 5, s.LongestStreak())
}

func TestGapResetsStreakToOne(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	threeDaysAgo := utils.DateKey(clock.Now().AddDate(0, 0, -3))
	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 5))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 5))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, threeDaysAgo))

	s, _, _ := newTestStreak(t, repo, clock)

	s.RecordBatchCompletion([]string{"a", "b", "c", "d"}, 5)
	assert.Equal(t, 1, s.StreakCount())
	// Рекорд не откатывается
	assert.Equal(t, 5, s.LongestStreak())
}

func TestLaunchCheckBreaksStaleStreak(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	threeDaysAgo := utils.DateKey(clock.Now().AddDate(0, 0, -3))
	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 4))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 6))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, threeDaysAgo))

	s, _, sender := newTestStreak(t, repo, clock)

	s.CheckAppLaunch()
	assert.Equal(t, 0, s.StreakCount())
	assert.Equal(t, 6, s.LongestStreak())
	assert.Equal(t, 1, sender.count())
	assert.Contains(t, sender.last(), "Серия прервана")

	// Повторные проверки без смены даты ничего не меняют
	s.CheckAppLaunch()
	s.CheckAppLaunch()
	assert.Equal(t, 0, s.StreakCount())
	assert.Equal(t, 1, sender.count())
}

func TestLaunchCheckKeepsLivingStreak(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 2))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 2))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, utils.YesterdayKey(clock.Now())))

	s, _, sender := newTestStreak(t, repo, clock)

	s.CheckAppLaunch()
	s.CheckAppLaunch()
	assert.Equal(t, 2, s.StreakCount())
	assert.Equal(t, 0, sender.count())
}

func TestMilestoneFiresOnlyAtExactValues(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 6))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 6))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, utils.YesterdayKey(clock.Now())))

	s, _, sender := newTestStreak(t, repo, clock)

	// 6 → 7: веха срабатывает
	s.RecordBatchCompletion([]string{"a", "b", "c", "d"}, 5)
	assert.Equal(t, 7, s.StreakCount())
	assert.Equal(t, 1, sender.count())
	assert.Contains(t, sender.last(), "7")

	// Следующий день, 7 → 8: вехи нет
	clock.Advance(24 * time.Hour)
	s.RecordBatchCompletion([]string{"a", "b", "c", "d"}, 5)
	assert.Equal(t, 8, s.StreakCount())
	assert.Equal(t, 1, sender.count())
}

func TestSuccessRateExcludesEmptyDays(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	require.NoError(t, repo.SaveDayRecord("2026-08-20", database.DayRecord{Completed: 2, Total: 5}))
	require.NoError(t, repo.SaveDayRecord("2026-08-21", database.DayRecord{Completed: 5, Total: 5}))
	require.NoError(t, repo.SaveDayRecord("2026-08-22", database.DayRecord{Completed: 0, Total: 0}))

	s, _, _ := newTestStreak(t, repo, clock)

	assert.Equal(t, 50, s.SuccessRate(5))
	assert.Equal(t, 0, s.SuccessRate(0))
	assert.Equal(t, 7, s.TotalTasksCompleted())
	assert.True(t, s.HasAnyData())
}

func TestWeekDataSevenEntriesOldestFirst(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	yesterday := utils.YesterdayKey(clock.Now())
	today := utils.TodayKey(clock.Now())
	require.NoError(t, repo.SaveDayRecord(yesterday, database.DayRecord{Completed: 3, Total: 5}))
	require.NoError(t, repo.SaveDayRecord(today, database.DayRecord{Completed: 5, Total: 5}))

	s, _, _ := newTestStreak(t, repo, clock)

	week := s.WeekData()
	require.Len(t, week, 7)
	assert.Equal(t, today, week[6].Date)
	assert.Equal(t, 5, week[6].Count)
	assert.Equal(t, yesterday, week[5].Date)
	assert.Equal(t, 3, week[5].Count)
	for _, day := range week[:5] {
		assert.Equal(t, 0, day.Count)
	}
}

func TestDaysFullyCompletedThisWeek(t *testing.T) {
	repo := newTestRepository(t)
	// Среда 2026-08-26, неделя началась в воскресенье 2026-08-23
	clock := testClock()

	require.NoError(t, repo.SaveDayRecord("2026-08-23", database.DayRecord{Completed: 5, Total: 5}))
	require.NoError(t, repo.SaveDayRecord("2026-08-24", database.DayRecord{Completed: 3, Total: 5}))
	require.NoError(t, repo.SaveDayRecord("2026-08-25", database.DayRecord{Completed: 5, Total: 5}))

	s, _, _ := newTestStreak(t, repo, clock)

	completed, elapsed := s.DaysFullyCompletedThisWeek(5)
	assert.Equal(t, 2, completed)
	assert.Equal(t, 4, elapsed) // вс, пн, вт, ср

	completed, elapsed = s.DaysFullyCompletedThisWeek(0)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, elapsed)
}

func TestMutationTriggersBackgroundSync(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()
	s, syncer, _ := newTestStreak(t, repo, clock)

	s.CompleteTask("a", 5)

	require.Eventually(t, func() bool {
		return syncer.progressCount() >= 1
	}, time.Second, 10*time.Millisecond)

	syncer.mu.Lock()
	req := syncer.progress[0]
	syncer.mu.Unlock()
	assert.Equal(t, utils.TodayKey(clock.Now()), req.Date)
	assert.Equal(t, 1, req.Completed)
	assert.Equal(t, 5, req.Total)
	assert.Equal(t, []string{"a"}, req.CompletedTaskIDs)
}

func TestTodaySetSurvivesRestart(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	s, _, _ := newTestStreak(t, repo, clock)
	s.CompleteTask("a", 5)
	s.CompleteTask("b", 5)

	// Новый экземпляр поверх той же БД — как рестарт демона
	restarted, _, _ := newTestStreak(t, repo, clock)
	assert.Equal(t, 2, restarted.TodayProgress(5).Completed)
	assert.True(t, restarted.IsCompleted("a"))
	assert.True(t, restarted.IsCompleted("b"))
}

func TestStreakSnapshotSync(t *testing.T) {
	repo := newTestRepository(t)
	clock := testClock()

	require.NoError(t, repo.SetInt(database.KeyStreakCurrent, 4))
	require.NoError(t, repo.SetInt(database.KeyStreakLongest, 9))
	require.NoError(t, repo.SetValue(database.KeyStreakQualified, utils.TodayKey(clock.Now())))

	s, syncer, _ := newTestStreak(t, repo, clock)

	s.SyncStreakSnapshot(context.Background())

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	require.Len(t, syncer.snapshots, 1)
	assert.Equal(t, 4, syncer.snapshots[0].CurrentStreak)
	assert.Equal(t, 9, syncer.snapshots[0].LongestStreak)
}
