package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"unstoppable/internal/api"
	"unstoppable/internal/services"
	"unstoppable/internal/utils"
)

type Bot struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	services  *services.ServiceManager
	apiClient *api.Client
	handlers  map[string]func(*tgbotapi.Message)
}

func NewBot(token string, chatID int64, serviceManager *services.ServiceManager, apiClient *api.Client) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %v", err)
	}

	bot := &Bot{
		bot:       botAPI,
		chatID:    chatID,
		services:  serviceManager,
		apiClient: apiClient,
		handlers:  make(map[string]func(*tgbotapi.Message)),
	}

	bot.registerHandlers()
	log.Printf("🤖 Бот инициализирован: %s", botAPI.Self.UserName)
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.handlers["/start"] = b.handleStart
	b.handlers["/today"] = b.handleToday
	b.handlers["/streak"] = b.handleStreak
	b.handlers["/week"] = b.handleWeek
	b.handlers["/stats"] = b.handleStats
	b.handlers["/timer"] = b.handleTimer
	b.handlers["/sync"] = b.handleSync
	b.handlers["/logout"] = b.handleLogout
	b.handlers["/help"] = b.handleStart
}

func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.bot.Send(msg)
	return err
}

func (b *Bot) GetUsername() string {
	return b.bot.Self.UserName
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		b.SendMessageOrLogError("⛔ Доступ запрещен")
		return
	}

	b.handleMessage(update.Message)
}

// handleMessage обрабатывает текстовые сообщения
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		return
	}

	// Команды с аргументами
	switch {
	case strings.HasPrefix(text, "/add "):
		b.handleAddTask(msg)
	case strings.HasPrefix(text, "/time "):
		b.handleRoutineTime(msg)
	case strings.HasPrefix(text, "/name "):
		b.handleNickname(msg)
	case strings.HasPrefix(text, "/login"):
		b.handleLogin(msg)
	default:
		if strings.HasPrefix(text, "/") {
			parts := strings.Fields(text)
			command := parts[0]

			if handler, exists := b.handlers[command]; exists {
				handler(msg)
			} else {
				b.SendMessageOrLogError("❌ Неизвестная команда. Используйте /help")
			}
		}
	}
}

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "✅")); err != nil {
			log.Printf("⚠️ Ошибка подтверждения callback: %v", err)
		}
	}()

	if callback.Message.Chat.ID != b.chatID {
		return
	}

	data := callback.Data
	log.Printf("🔘 Получен callback: %s", data)

	switch {
	case strings.HasPrefix(data, "done_"):
		b.handleTaskDone(strings.TrimPrefix(data, "done_"))
	case strings.HasPrefix(data, "undo_"):
		b.handleTaskUndo(strings.TrimPrefix(data, "undo_"))
	}
}

// createTodayKeyboard создает клавиатуру отметки задач рутины
func (b *Bot) createTodayKeyboard() (tgbotapi.InlineKeyboardMarkup, error) {
	tasks, err := b.services.Routine.GetTasks()
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		var button tgbotapi.InlineKeyboardButton
		if b.services.Streak.IsCompleted(task.ID) {
			button = tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("↩️ Отменить: %s", task.Title),
				"undo_"+task.ID,
			)
		} else {
			button = tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", utils.GetTaskIcon(task.Icon), task.Title),
				"done_"+task.ID,
			)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}
