package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"unstoppable/internal/database"
	"unstoppable/internal/utils"
)

// NotificationSender интерфейс для отправки уведомлений
type NotificationSender interface {
	SendMessage(text string) error
}

type NotificationService struct {
	sender  NotificationSender
	streak  *StreakService
	routine *RoutineService
}

func NewNotificationService(sender NotificationSender, streak *StreakService, routine *RoutineService) *NotificationService {
	return &NotificationService{
		sender:  sender,
		streak:  streak,
		routine: routine,
	}
}

// SendDailySummary отправляет итоги дня
func (ns *NotificationService) SendDailySummary() {
	total := ns.routine.TotalTasks()
	progress := ns.streak.TodayProgress(total)

	percentage := 0.0
	if progress.Total > 0 {
		percentage = float64(progress.Completed) / float64(progress.Total) * 100
	}

	message := fmt.Sprintf(
		"📊 <b>Итоги дня %s</b>\n\n"+
			"✅ Выполнено: %d/%d (%.0f%%)\n"+
			"🔥 Серия: %d (рекорд %d)\n\n"+
			"Завтра будет новый день! 🌅",
		utils.TodayKey(time.Now()),
		progress.Completed,
		progress.Total,
		percentage,
		ns.streak.StreakCount(),
		ns.streak.LongestStreak(),
	)

	if err := ns.sender.SendMessage(message); err != nil {
		log.Printf("❌ Ошибка отправки итогов дня: %v", err)
	}
}

// SendRoutineReminder напоминает о невыполненных задачах рутины
func (ns *NotificationService) SendRoutineReminder() {
	tasks, err := ns.routine.GetTasks()
	if err != nil {
		log.Printf("⚠️ Ошибка чтения рутины: %v", err)
		return
	}

	var pending []database.RoutineTask
	for _, task := range tasks {
		if !ns.streak.IsCompleted(task.ID) {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("🔔 <b>Осталось задач: %d</b>\n\n", len(pending)))
	for _, task := range pending {
		message.WriteString(fmt.Sprintf(
			"%s %s",
			utils.GetTaskIcon(task.Icon),
			task.Title,
		))
		if d := utils.FormatDuration(task.Duration); d != "" {
			message.WriteString(" — " + d)
		}
		message.WriteString("\n")
	}
	message.WriteString("\nДень зачтётся при 80% выполнения 💪")

	if err := ns.sender.SendMessage(message.String()); err != nil {
		log.Printf("❌ Ошибка отправки напоминания: %v", err)
	}
}
