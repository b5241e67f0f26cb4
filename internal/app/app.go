package app

import (
	"context"
	"log"
	"time"

	"unstoppable/internal/api"
	"unstoppable/internal/config"
	"unstoppable/internal/database"
	"unstoppable/internal/services"
	"unstoppable/internal/telegram"

	"github.com/robfig/cron/v3"
)

type Application struct {
	config     *config.Config
	db         *database.Database
	apiClient  *api.Client
	bot        *telegram.Bot
	services   *services.ServiceManager
	cron       *cron.Cron
	cancelFunc context.CancelFunc
	ctx        context.Context
}

func New(cfg *config.Config) (*Application, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	authMode := api.AuthNone()
	if cfg.API.UseDevAuth {
		authMode = api.AuthDevUserID(cfg.API.DevUserID)
	}
	apiClient := api.NewClient(cfg.API.BaseURL, authMode)

	serviceManager := services.NewServiceManager(db, apiClient)
	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, serviceManager, apiClient)
	if err != nil {
		db.Close()
		return nil, err
	}

	serviceManager.SetNotificationSender(bot)
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:     cfg,
		db:         db,
		apiClient:  apiClient,
		bot:        bot,
		services:   serviceManager,
		cron:       cron.New(),
		cancelFunc: cancel,
		ctx:        ctx,
	}

	app.setupCronJobs()

	return app, nil
}

func (a *Application) Start() error {
	log.Println("🚀 Запуск приложения...")

	go a.bot.Start(a.ctx)

	a.cron.Start()

	if err := a.services.Routine.CreateDefaultRoutine(); err != nil {
		log.Printf("⚠️ Ошибка создания стартовой рутины: %v", err)
	}

	// Проверка серии на старте: вчерашний пропуск обнуляет счётчик
	a.services.Streak.CheckAppLaunch()

	// Если вход уже выполнен, сразу выгружаем накопленный черновик
	a.flushDrafts()

	log.Printf("✅ Приложение запущено. Бот: @%s", a.bot.GetUsername())

	return nil
}

func (a *Application) Stop() error {
	log.Println("🛑 Остановка приложения...")

	a.cancelFunc()
	a.cron.Stop()

	if err := a.db.Close(); err != nil {
		log.Printf("⚠️ Ошибка закрытия БД: %v", err)
	}

	log.Println("✅ Приложение остановлено")
	return nil
}

func (a *Application) setupCronJobs() {
	// Проверка серии сразу после полуночи: демон живёт дольше одного дня
	_, err := a.cron.AddFunc("1 0 * * *", func() {
		a.services.Streak.CheckAppLaunch()
	})
	if err != nil {
		panic(err)
	}

	// Повторная попытка выгрузки черновика каждый час
	_, err = a.cron.AddFunc("0 * * * *", func() {
		a.flushDrafts()
	})
	if err != nil {
		panic(err)
	}

	// Итоги дня в 21:55
	a.cron.AddFunc("55 21 * * *", func() {
		a.services.Notification.SendDailySummary()
	})

	// Напоминание о невыполненных задачах в 18:00
	a.cron.AddFunc("0 18 * * *", func() {
		a.services.Notification.SendRoutineReminder()
	})

	// Снимок серии на сервер раз в день в 23:50
	a.cron.AddFunc("50 23 * * *", func() {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()
		a.services.Streak.SyncStreakSnapshot(ctx)
	})
}

func (a *Application) flushDrafts() {
	if !a.apiClient.IsAuthenticated() {
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, 60*time.Second)
	defer cancel()
	a.services.Sync.FlushPendingDrafts(ctx)
}
