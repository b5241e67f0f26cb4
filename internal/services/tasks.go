package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"unstoppable/internal/api"
	"unstoppable/internal/database"
)

// RoutineSyncer — выгрузка текущей рутины на сервер или в черновик
type RoutineSyncer interface {
	SyncCurrentRoutine(ctx context.Context, req api.RoutineUpsertRequest) (api.AckResponse, error)
}

// TaskCompletionChecker сообщает, выполнена ли задача сегодня
type TaskCompletionChecker interface {
	IsCompleted(taskID string) bool
}

// RoutineService управляет текущей рутиной пользователя
type RoutineService struct {
	repository  *database.Repository
	syncer      RoutineSyncer
	completions TaskCompletionChecker
}

func NewRoutineService(repo *database.Repository, syncer RoutineSyncer, completions TaskCompletionChecker) *RoutineService {
	return &RoutineService{
		repository:  repo,
		syncer:      syncer,
		completions: completions,
	}
}

func (rs *RoutineService) GetTasks() ([]database.RoutineTask, error) {
	return rs.repository.GetRoutineTasks()
}

func (rs *RoutineService) TotalTasks() int {
	count, err := rs.repository.CountRoutineTasks()
	if err != nil {
		log.Printf("⚠️ Ошибка подсчёта задач рутины: %v", err)
		return 0
	}
	return count
}

// RoutineTime возвращает время рутины "HH:mm", пустая строка — не задано
func (rs *RoutineService) RoutineTime() string {
	value, err := rs.repository.GetValue(database.KeyRoutineTime)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения времени рутины: %v", err)
		return ""
	}
	return value
}

func (rs *RoutineService) SetRoutineTime(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("время должно быть в формате HH:mm: %v", err)
	}
	if err := rs.repository.SetValue(database.KeyRoutineTime, value); err != nil {
		return err
	}
	rs.syncRoutine()
	return nil
}

// AddTask добавляет задачу в конец рутины
func (rs *RoutineService) AddTask(title, icon string, duration int) (database.RoutineTask, error) {
	count, err := rs.repository.CountRoutineTasks()
	if err != nil {
		return database.RoutineTask{}, err
	}

	task := database.RoutineTask{
		ID:       uuid.NewString(),
		Title:    title,
		Icon:     icon,
		Duration: duration,
		Position: count,
	}
	if err := rs.repository.AddRoutineTask(task); err != nil {
		return database.RoutineTask{}, err
	}

	log.Printf("📋 Задача добавлена в рутину: %s", title)
	rs.syncRoutine()
	return task, nil
}

// ReplaceTasks целиком заменяет рутину
func (rs *RoutineService) ReplaceTasks(tasks []database.RoutineTask) error {
	for i := range tasks {
		tasks[i].Position = i
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
	}
	if err := rs.repository.ReplaceRoutineTasks(tasks); err != nil {
		return err
	}
	rs.syncRoutine()
	return nil
}

// CreateDefaultRoutine создаёт стартовую рутину при первом запуске
func (rs *RoutineService) CreateDefaultRoutine() error {
	count, err := rs.repository.CountRoutineTasks()
	if err != nil || count > 0 {
		return err
	}

	defaults := []database.RoutineTask{
		{Title: "Стакан воды", Icon: "water", Duration: 1},
		{Title: "Зарядка", Icon: "workout", Duration: 10},
		{Title: "Холодный душ", Icon: "coldshower", Duration: 3},
		{Title: "Чтение", Icon: "reading", Duration: 15},
		{Title: "Дневник", Icon: "journal", Duration: 5},
	}
	for i := range defaults {
		defaults[i].ID = uuid.NewString()
		defaults[i].Position = i
	}

	if err := rs.repository.ReplaceRoutineTasks(defaults); err != nil {
		return err
	}

	log.Printf("✅ Создана стартовая рутина: %d задач", len(defaults))
	rs.syncRoutine()
	return nil
}

// syncRoutine отправляет рутину в фоне, ошибки только логируются
func (rs *RoutineService) syncRoutine() {
	if rs.syncer == nil {
		return
	}

	tasks, err := rs.repository.GetRoutineTasks()
	if err != nil {
		log.Printf("⚠️ Ошибка чтения рутины для синхронизации: %v", err)
		return
	}

	payload := make([]api.RoutineTaskPayload, 0, len(tasks))
	for _, task := range tasks {
		completed := false
		if rs.completions != nil {
			completed = rs.completions.IsCompleted(task.ID)
		}
		payload = append(payload, api.RoutineTaskPayload{
			ID:          task.ID,
			Title:       task.Title,
			Icon:        task.Icon,
			Duration:    task.Duration,
			IsCompleted: completed,
		})
	}

	req := api.RoutineUpsertRequest{Tasks: payload}
	if routineTime := rs.RoutineTime(); routineTime != "" {
		req.RoutineTime = &routineTime
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := rs.syncer.SyncCurrentRoutine(ctx, req); err != nil {
			log.Printf("⚠️ Не удалось синхронизировать рутину: %v", err)
		}
	}()
}
