package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unstoppable/internal/api"
	"unstoppable/internal/database"
)

type stubRoutineSyncer struct {
	mu       sync.Mutex
	requests []api.RoutineUpsertRequest
}

func (s *stubRoutineSyncer) SyncCurrentRoutine(ctx context.Context, req api.RoutineUpsertRequest) (api.AckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return api.AckResponse{OK: true}, nil
}

func (s *stubRoutineSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubRoutineSyncer) last() api.RoutineUpsertRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stubCompletions struct {
	done map[string]bool
}

func (s *stubCompletions) IsCompleted(taskID string) bool { return s.done[taskID] }

func TestAddTaskAppendsToEnd(t *testing.T) {
	rs := NewRoutineService(newTestRepository(t), nil, nil)

	first, err := rs.AddTask("Вода", "water", 1)
	require.NoError(t, err)
	second, err := rs.AddTask("Чтение", "reading", 15)
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	tasks, err := rs.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Вода", tasks[0].Title)
	assert.Equal(t, 2, rs.TotalTasks())
}

func TestSetRoutineTimeValidation(t *testing.T) {
	rs := NewRoutineService(newTestRepository(t), nil, nil)

	assert.Error(t, rs.SetRoutineTime("25:00"))
	assert.Error(t, rs.SetRoutineTime("утром"))
	assert.Equal(t, "", rs.RoutineTime())

	require.NoError(t, rs.SetRoutineTime("07:30"))
	assert.Equal(t, "07:30", rs.RoutineTime())
}

func TestCreateDefaultRoutineOnlyOnce(t *testing.T) {
	rs := NewRoutineService(newTestRepository(t), nil, nil)

	require.NoError(t, rs.CreateDefaultRoutine())
	tasks, err := rs.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	assert.Equal(t, "Стакан воды", tasks[0].Title)

	// Повторный вызов не трогает уже существующую рутину
	require.NoError(t, rs.ReplaceTasks([]database.RoutineTask{{ID: "t1", Title: "Своя задача"}}))
	require.NoError(t, rs.CreateDefaultRoutine())

	tasks, err = rs.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Своя задача", tasks[0].Title)
}

func TestRoutineSyncCarriesCompletionAndTime(t *testing.T) {
	syncer := &stubRoutineSyncer{}
	completions := &stubCompletions{done: map[string]bool{}}
	rs := NewRoutineService(newTestRepository(t), syncer, completions)

	task, err := rs.AddTask("Вода", "water", 1)
	require.NoError(t, err)
	completions.done[task.ID] = true
	require.NoError(t, rs.SetRoutineTime("07:00"))

	require.Eventually(t, func() bool {
		return syncer.count() >= 2
	}, time.Second, 10*time.Millisecond)

	req := syncer.last()
	require.NotNil(t, req.RoutineTime)
	assert.Equal(t, "07:00", *req.RoutineTime)
	require.Len(t, req.Tasks, 1)
	assert.Equal(t, task.ID, req.Tasks[0].ID)
	assert.True(t, req.Tasks[0].IsCompleted)
}
