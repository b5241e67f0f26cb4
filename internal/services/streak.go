package services

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"unstoppable/internal/api"
	"unstoppable/internal/database"
	"unstoppable/internal/utils"
)

// ProgressSyncer — выгрузка прогресса на сервер или в черновик гостя
type ProgressSyncer interface {
	SyncDailyProgress(ctx context.Context, req api.DailyProgressUpsertRequest) (api.AckResponse, error)
	SyncStreakSnapshot(ctx context.Context, req api.StreakSnapshotUpsertRequest) (api.AckResponse, error)
}

// StreakService ведёт серию дней и дневные записи прогресса.
// Все мутации сериализуются мьютексом: сюда ходят и обработчики бота,
// и cron-задачи.
type StreakService struct {
	mu         sync.Mutex
	repository *database.Repository
	syncer     ProgressSyncer
	sender     NotificationSender
	now        func() time.Time

	state    database.StreakState
	todayKey string
	todayIDs map[string]struct{}
}

func NewStreakService(repo *database.Repository, syncer ProgressSyncer) *StreakService {
	s := &StreakService{
		repository: repo,
		syncer:     syncer,
		now:        time.Now,
		todayIDs:   make(map[string]struct{}),
	}
	s.load()
	return s
}

func (s *StreakService) SetNotificationSender(sender NotificationSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

func (s *StreakService) load() {
	current, err := s.repository.GetInt(database.KeyStreakCurrent)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения счётчика серии: %v", err)
	}
	longest, err := s.repository.GetInt(database.KeyStreakLongest)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения рекорда серии: %v", err)
	}
	qualified, err := s.repository.GetValue(database.KeyStreakQualified)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения даты зачёта: %v", err)
	}

	s.state = database.StreakState{
		Current:           current,
		Longest:           longest,
		LastQualifiedDate: qualified,
	}

	s.todayKey = utils.TodayKey(s.now())
	s.reloadTodaySetLocked()
}

// reloadTodaySetLocked восстанавливает множество выполненных задач
// текущего дня из БД
func (s *StreakService) reloadTodaySetLocked() {
	s.todayIDs = make(map[string]struct{})
	ids, err := s.repository.GetTaskCompletions(s.todayKey)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения выполненных задач за %s: %v", s.todayKey, err)
		return
	}
	for _, id := range ids {
		s.todayIDs[id] = struct{}{}
	}
}

// ensureTodayLocked сбрасывает дневное множество при смене даты.
// Демон живёт дольше одного дня, в отличие от запуска мобильного приложения.
func (s *StreakService) ensureTodayLocked() {
	today := utils.TodayKey(s.now())
	if today == s.todayKey {
		return
	}
	s.todayKey = today
	s.reloadTodaySetLocked()
}

// CheckAppLaunch проверяет, не пропущен ли вчерашний день.
// Вызывается на старте и по cron в полночь; повторные вызовы
// без смены даты ничего не меняют.
func (s *StreakService) CheckAppLaunch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	now := s.now()
	today := utils.TodayKey(now)
	yesterday := utils.YesterdayKey(now)

	if s.state.LastQualifiedDate == today || s.state.LastQualifiedDate == yesterday {
		// Серия жива: зачёт был сегодня или вчера
		return
	}

	if s.state.LastQualifiedDate != "" && s.state.Current > 0 {
		log.Printf("💔 Серия прервана: последний зачёт %s, было %d", s.state.LastQualifiedDate, s.state.Current)
		s.state.Current = 0
		s.saveStateLocked()
		s.notifyLocked("💔 Серия прервана. Начинаем с нуля.")
	}
}

// CompleteTask отмечает задачу выполненной сегодня
func (s *StreakService) CompleteTask(taskID string, totalTasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	s.todayIDs[taskID] = struct{}{}
	if err := s.repository.AddTaskCompletion(s.todayKey, taskID); err != nil {
		log.Printf("⚠️ Ошибка сохранения выполнения задачи: %v", err)
	}
	s.updateTodayLocked(totalTasks)
}

// UncompleteTask снимает отметку выполнения
func (s *StreakService) UncompleteTask(taskID string, totalTasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	delete(s.todayIDs, taskID)
	if err := s.repository.RemoveTaskCompletion(s.todayKey, taskID); err != nil {
		log.Printf("⚠️ Ошибка удаления выполнения задачи: %v", err)
	}
	s.updateTodayLocked(totalTasks)
}

// RecordBatchCompletion отмечает выполненными сразу несколько задач
// (завершение таймер-сессии)
func (s *StreakService) RecordBatchCompletion(taskIDs []string, totalTasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	for _, id := range taskIDs {
		s.todayIDs[id] = struct{}{}
		if err := s.repository.AddTaskCompletion(s.todayKey, id); err != nil {
			log.Printf("⚠️ Ошибка сохранения выполнения задачи: %v", err)
		}
	}
	s.updateTodayLocked(totalTasks)
}

func (s *StreakService) IsCompleted(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	_, ok := s.todayIDs[taskID]
	return ok
}

// updateTodayLocked пересчитывает запись дня, проверяет зачёт серии
// и запускает фоновую синхронизацию прогресса
func (s *StreakService) updateTodayLocked(totalTasks int) {
	completed := len(s.todayIDs)
	record := database.DayRecord{Completed: completed, Total: totalTasks}
	if err := s.repository.SaveDayRecord(s.todayKey, record); err != nil {
		log.Printf("⚠️ Ошибка сохранения записи дня %s: %v", s.todayKey, err)
	}

	// Зачёт дня: выполнено не меньше 80% задач, и сегодня ещё не зачтено
	pct := 0.0
	if totalTasks > 0 {
		pct = float64(completed) / float64(totalTasks)
	}
	if pct >= 0.8 && s.state.LastQualifiedDate != s.todayKey {
		yesterday := utils.YesterdayKey(s.now())
		if s.state.LastQualifiedDate == yesterday || s.state.Current == 0 {
			s.state.Current++
		} else {
			// Был пропуск — серия начинается заново
			s.state.Current = 1
		}
		s.state.LastQualifiedDate = s.todayKey
		if s.state.Current > s.state.Longest {
			s.state.Longest = s.state.Current
		}
		s.saveStateLocked()
		log.Printf("🔥 День зачтён: серия %d, рекорд %d", s.state.Current, s.state.Longest)
		s.checkMilestonesLocked()
	} else {
		s.saveStateLocked()
	}

	s.syncTodayProgressLocked(record)
}

func (s *StreakService) checkMilestonesLocked() {
	switch s.state.Current {
	case 7:
		s.notifyLocked("🔥 7 дней подряд! Неделя без поблажек.")
	case 30:
		s.notifyLocked("💪 30 дней подряд! Месяц железной дисциплины.")
	case 90:
		s.notifyLocked("👑 90 дней подряд! Квартал. Вы неудержимы.")
	}
}

func (s *StreakService) notifyLocked(text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendMessage(text); err != nil {
		log.Printf("❌ Ошибка отправки уведомления: %v", err)
	}
}

// syncTodayProgressLocked отправляет прогресс дня в фоне.
// Ошибки только логируются: вызывающий никогда их не видит,
// повторов нет.
func (s *StreakService) syncTodayProgressLocked(record database.DayRecord) {
	if s.syncer == nil {
		return
	}

	ids := make([]string, 0, len(s.todayIDs))
	for id := range s.todayIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	req := api.DailyProgressUpsertRequest{
		Date:             s.todayKey,
		Completed:        record.Completed,
		Total:            record.Total,
		CompletedTaskIDs: ids,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := s.syncer.SyncDailyProgress(ctx, req); err != nil {
			log.Printf("⚠️ Не удалось синхронизировать прогресс за %s: %v", req.Date, err)
		}
	}()
}

// SyncStreakSnapshot отправляет снимок серии (вызывается по cron)
func (s *StreakService) SyncStreakSnapshot(ctx context.Context) {
	s.mu.Lock()
	req := api.StreakSnapshotUpsertRequest{
		CurrentStreak:     s.state.Current,
		LongestStreak:     s.state.Longest,
		LastQualifiedDate: s.state.LastQualifiedDate,
	}
	syncer := s.syncer
	s.mu.Unlock()

	if syncer == nil {
		return
	}
	if _, err := syncer.SyncStreakSnapshot(ctx, req); err != nil {
		log.Printf("⚠️ Не удалось синхронизировать снимок серии: %v", err)
	}
}

func (s *StreakService) saveStateLocked() {
	if err := s.repository.SetInt(database.KeyStreakCurrent, s.state.Current); err != nil {
		log.Printf("⚠️ Ошибка сохранения счётчика серии: %v", err)
	}
	if err := s.repository.SetInt(database.KeyStreakLongest, s.state.Longest); err != nil {
		log.Printf("⚠️ Ошибка сохранения рекорда серии: %v", err)
	}
	if err := s.repository.SetValue(database.KeyStreakQualified, s.state.LastQualifiedDate); err != nil {
		log.Printf("⚠️ Ошибка сохранения даты зачёта: %v", err)
	}
}

// Queries

func (s *StreakService) StreakCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current
}

func (s *StreakService) LongestStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Longest
}

func (s *StreakService) State() database.StreakState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TodayProgress возвращает прогресс сегодняшнего дня
func (s *StreakService) TodayProgress(totalTasks int) database.DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked()
	return database.DayRecord{Completed: len(s.todayIDs), Total: totalTasks}
}

// CompletedCount возвращает число выполненных задач за день
func (s *StreakService) CompletedCount(date string) int {
	record, err := s.repository.GetDayRecord(date)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения записи дня %s: %v", date, err)
		return 0
	}
	if record == nil {
		return 0
	}
	return record.Completed
}

// WeekData возвращает 7 дней от старых к новым; дни без записей — с нулём
func (s *StreakService) WeekData() []database.DayCount {
	keys := utils.LastNDayKeys(s.now(), 7)
	records, err := s.repository.GetDayRecordsBetween(keys[0], keys[len(keys)-1])
	if err != nil {
		log.Printf("⚠️ Ошибка чтения записей недели: %v", err)
		records = nil
	}

	data := make([]database.DayCount, 0, len(keys))
	for _, key := range keys {
		data = append(data, database.DayCount{Date: key, Count: records[key].Completed})
	}
	return data
}

// DaysFullyCompletedThisWeek считает дни текущей календарной недели
// (с воскресенья), в которые выполнено всё запланированное
func (s *StreakService) DaysFullyCompletedThisWeek(totalTasks int) (completed, elapsed int) {
	if totalTasks <= 0 {
		return 0, 0
	}

	now := s.now()
	today := utils.StartOfDay(now)
	start := utils.StartOfWeek(now)

	records, err := s.repository.GetDayRecordsBetween(utils.DateKey(start), utils.DateKey(today))
	if err != nil {
		log.Printf("⚠️ Ошибка чтения записей недели: %v", err)
		return 0, 0
	}

	for offset := 0; offset < 7; offset++ {
		day := start.AddDate(0, 0, offset)
		if day.After(today) {
			break
		}
		elapsed++
		if record, ok := records[utils.DateKey(day)]; ok && record.Completed >= totalTasks {
			completed++
		}
	}
	return completed, elapsed
}

// SuccessRate возвращает процент дней, закрытых полностью,
// среди всех дней с запланированными задачами
func (s *StreakService) SuccessRate(totalTasks int) int {
	if totalTasks <= 0 {
		return 0
	}
	active, perfect, err := s.repository.CountActiveDays()
	if err != nil {
		log.Printf("⚠️ Ошибка подсчёта статистики: %v", err)
		return 0
	}
	if active == 0 {
		return 0
	}
	return int(float64(perfect) / float64(active) * 100)
}

// TotalTasksCompleted возвращает сумму выполненных задач за всю историю
func (s *StreakService) TotalTasksCompleted() int {
	total, err := s.repository.TotalCompleted()
	if err != nil {
		log.Printf("⚠️ Ошибка подсчёта статистики: %v", err)
		return 0
	}
	return total
}

func (s *StreakService) HasAnyData() bool {
	has, err := s.repository.HasAnyData()
	if err != nil {
		log.Printf("⚠️ Ошибка подсчёта статистики: %v", err)
		return false
	}
	return has
}
