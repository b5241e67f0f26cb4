package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"unstoppable/internal/api"
	"unstoppable/internal/utils"
)

// handlers.go - обработчики команд Telegram бота

const requestTimeout = 15 * time.Second

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	message := `🎯 <b>Unstoppable - Трекер рутины</b>

Доступные команды:
/today - Рутина на сегодня
/timer - Завершить таймер-сессию (вся рутина разом)
/streak - Текущая серия
/week - Неделя по дням
/stats - Статистика за всё время
/add [задача] [минуты] - Добавить задачу в рутину
/time HH:mm - Время рутины
/name [имя] - Сохранить имя в профиле
/login [id] - Войти и выгрузить накопленное
/logout - Выйти
/sync - Выгрузить черновик вручную
/help - Помощь

Пример:
/add Холодный душ 3
/time 07:00

День зачитывается в серию при выполнении 80% задач.`

	b.SendMessageOrLogError(message)
}

func (b *Bot) handleToday(msg *tgbotapi.Message) {
	tasks, err := b.services.Routine.GetTasks()
	if err != nil {
		b.SendMessageOrLogError("❌ Ошибка получения рутины")
		return
	}

	if len(tasks) == 0 {
		b.SendMessageOrLogError("📭 Рутина пуста. Добавьте задачи: /add [задача]")
		return
	}

	progress := b.services.Streak.TodayProgress(len(tasks))

	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 <b>Рутина на %s</b>\n", utils.TodayKey(time.Now())))
	if routineTime := b.services.Routine.RoutineTime(); routineTime != "" {
		message.WriteString(fmt.Sprintf("⏰ Время рутины: %s\n", routineTime))
	}
	message.WriteString(fmt.Sprintf("Выполнено: %d/%d\n\n", progress.Completed, progress.Total))

	for _, task := range tasks {
		status := "⬜"
		if b.services.Streak.IsCompleted(task.ID) {
			status = "✅"
		}
		message.WriteString(fmt.Sprintf(
			"%s %s <b>%s</b>",
			status,
			utils.GetTaskIcon(task.Icon),
			task.Title,
		))
		if d := utils.FormatDuration(task.Duration); d != "" {
			message.WriteString(" — " + d)
		}
		message.WriteString("\n")
	}

	keyboard, err := b.createTodayKeyboard()
	if err != nil {
		b.SendMessageOrLogError(message.String())
		return
	}

	keyboardMsg := tgbotapi.NewMessage(b.chatID, message.String())
	keyboardMsg.ParseMode = "HTML"
	keyboardMsg.ReplyMarkup = keyboard
	if _, err := b.bot.Send(keyboardMsg); err != nil {
		b.SendMessageOrLogError("❌ Ошибка отправки рутины")
	}
}

// handleTaskDone отмечает задачу выполненной
func (b *Bot) handleTaskDone(taskID string) {
	total := b.services.Routine.TotalTasks()
	b.services.Streak.CompleteTask(taskID, total)

	progress := b.services.Streak.TodayProgress(total)
	if progress.Completed >= progress.Total && progress.Total > 0 {
		b.SendMessageOrLogError("🏆 Вся рутина выполнена!")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("✅ Задача выполнена! Сегодня: %d/%d", progress.Completed, progress.Total))
}

// handleTaskUndo снимает отметку выполнения
func (b *Bot) handleTaskUndo(taskID string) {
	total := b.services.Routine.TotalTasks()
	b.services.Streak.UncompleteTask(taskID, total)

	progress := b.services.Streak.TodayProgress(total)
	b.SendMessageOrLogError(fmt.Sprintf("↩️ Отметка снята. Сегодня: %d/%d", progress.Completed, progress.Total))
}

// handleTimer завершает таймер-сессию: вся рутина отмечается выполненной
func (b *Bot) handleTimer(msg *tgbotapi.Message) {
	tasks, err := b.services.Routine.GetTasks()
	if err != nil || len(tasks) == 0 {
		b.SendMessageOrLogError("📭 Рутина пуста, нечего завершать")
		return
	}

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	b.services.Streak.RecordBatchCompletion(ids, len(tasks))

	b.SendMessageOrLogError(fmt.Sprintf(
		"🏁 Таймер-сессия завершена: %d задач\n🔥 Серия: %d",
		len(ids),
		b.services.Streak.StreakCount(),
	))
}

func (b *Bot) handleStreak(msg *tgbotapi.Message) {
	state := b.services.Streak.State()

	message := fmt.Sprintf(
		"🔥 <b>Серия: %d</b>\n"+
			"🏆 Рекорд: %d\n",
		state.Current,
		state.Longest,
	)
	if state.LastQualifiedDate != "" {
		message += fmt.Sprintf("📅 Последний зачёт: %s\n", state.LastQualifiedDate)
	}

	// Ближайшая веха
	for _, milestone := range []int{7, 30, 90} {
		if state.Current < milestone {
			message += fmt.Sprintf("\nДо вехи «%d дней» осталось: %d", milestone, milestone-state.Current)
			break
		}
	}

	b.SendMessageOrLogError(message)
}

func (b *Bot) handleWeek(msg *tgbotapi.Message) {
	week := b.services.Streak.WeekData()
	total := b.services.Routine.TotalTasks()

	var message strings.Builder
	message.WriteString("📈 <b>Последние 7 дней</b>\n\n")
	for _, day := range week {
		bar := strings.Repeat("▰", day.Count)
		if day.Count == 0 {
			bar = "▱"
		}
		message.WriteString(fmt.Sprintf("%s  %s %d\n", day.Date, bar, day.Count))
	}

	completed, elapsed := b.services.Streak.DaysFullyCompletedThisWeek(total)
	message.WriteString(fmt.Sprintf("\n✅ Полных дней на этой неделе: %d из %d", completed, elapsed))

	b.SendMessageOrLogError(message.String())
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	if !b.services.Streak.HasAnyData() {
		b.SendMessageOrLogError("📭 Данных пока нет. Начните с /today")
		return
	}

	total := b.services.Routine.TotalTasks()
	message := fmt.Sprintf(
		"📊 <b>Статистика за всё время</b>\n\n"+
			"🎯 Успешных дней: %d%%\n"+
			"✅ Всего выполнено задач: %d\n"+
			"🔥 Серия: %d (рекорд %d)",
		b.services.Streak.SuccessRate(total),
		b.services.Streak.TotalTasksCompleted(),
		b.services.Streak.StreakCount(),
		b.services.Streak.LongestStreak(),
	)

	b.SendMessageOrLogError(message)
}

// handleAddTask добавляет задачу в рутину: /add Название [минуты]
func (b *Bot) handleAddTask(msg *tgbotapi.Message) {
	args := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/add "))
	if args == "" {
		b.SendMessageOrLogError("❌ Укажите задачу: /add Чтение 15")
		return
	}

	duration := 0
	fields := strings.Fields(args)
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			duration = n
			fields = fields[:len(fields)-1]
		}
	}
	title := strings.Join(fields, " ")

	task, err := b.services.Routine.AddTask(title, "", duration)
	if err != nil {
		b.SendMessageOrLogError("❌ Ошибка добавления задачи")
		return
	}

	b.SendMessageOrLogError(fmt.Sprintf("📋 Добавлено в рутину: %s %s", utils.GetTaskIcon(task.Icon), task.Title))
}

// handleRoutineTime задаёт время рутины: /time 07:00
func (b *Bot) handleRoutineTime(msg *tgbotapi.Message) {
	value := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/time "))
	if err := b.services.Routine.SetRoutineTime(value); err != nil {
		b.SendMessageOrLogError("❌ Время должно быть в формате HH:mm, например /time 07:00")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("⏰ Время рутины: %s", value))
}

// handleNickname сохраняет имя в профиле: /name Алексей
func (b *Bot) handleNickname(msg *tgbotapi.Message) {
	nickname := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/name "))
	if nickname == "" {
		b.SendMessageOrLogError("❌ Укажите имя: /name Алексей")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ack, err := b.services.Sync.SyncUserProfile(ctx, api.UserProfileUpsertRequest{Nickname: &nickname})
	if err != nil {
		b.SendMessageOrLogError("❌ Не удалось сохранить профиль, попробуйте ещё раз")
		return
	}

	if ack.UserID == "" {
		b.SendMessageOrLogError(fmt.Sprintf("💾 Имя сохранено локально: %s\nВойдите (/login), чтобы выгрузить на сервер", nickname))
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("✅ Имя сохранено: %s", nickname))
}

// handleLogin включает dev-авторизацию и выгружает накопленный черновик
func (b *Bot) handleLogin(msg *tgbotapi.Message) {
	userID := "dev-user-001"
	if fields := strings.Fields(msg.Text); len(fields) > 1 {
		userID = fields[1]
	}

	b.apiClient.SetAuthMode(api.AuthDevUserID(userID))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	b.services.Sync.FlushPendingDrafts(ctx)

	bootstrap, err := b.services.Sync.FetchBootstrap(ctx)
	if err != nil {
		b.SendMessageOrLogError(fmt.Sprintf("🔑 Вход выполнен: %s\n⚠️ Сервер пока недоступен", userID))
		return
	}

	message := fmt.Sprintf("🔑 Вход выполнен: %s", bootstrap.UserID)
	if nickname := api.GetString(bootstrap.Profile, "nickname"); nickname != "" {
		message += fmt.Sprintf("\n👤 %s", nickname)
	}
	if streak := api.GetInt(bootstrap.Streak, "currentStreak"); streak > 0 {
		message += fmt.Sprintf("\n🔥 Серия на сервере: %d", streak)
	}
	b.SendMessageOrLogError(message)
}

func (b *Bot) handleLogout(msg *tgbotapi.Message) {
	b.apiClient.SetAuthMode(api.AuthNone())
	b.SendMessageOrLogError("🚪 Выход выполнен. Данные копятся локально до следующего входа")
}

// handleSync вручную выгружает черновик гостя
func (b *Bot) handleSync(msg *tgbotapi.Message) {
	if !b.apiClient.IsAuthenticated() {
		b.SendMessageOrLogError("⛔ Сначала войдите: /login")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	b.services.Sync.FlushPendingDrafts(ctx)
	b.SendMessageOrLogError("📤 Выгрузка завершена, подробности в логах")
}
