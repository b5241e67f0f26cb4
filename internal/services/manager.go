package services

import (
	"unstoppable/internal/api"
	"unstoppable/internal/database"
)

type ServiceManager struct {
	Streak       *StreakService
	Sync         *SyncService
	Routine      *RoutineService
	Notification *NotificationService
	repository   *database.Repository
}

func NewServiceManager(db *database.Database, client *api.Client) *ServiceManager {
	repo := database.NewRepository(db)
	syncService := NewSyncService(client, repo)
	streakService := NewStreakService(repo, syncService)

	return &ServiceManager{
		Streak:       streakService,
		Sync:         syncService,
		Routine:      NewRoutineService(repo, syncService, streakService),
		Notification: nil,
		repository:   repo,
	}
}

func (sm *ServiceManager) SetNotificationSender(sender NotificationSender) {
	sm.Streak.SetNotificationSender(sender)
	sm.Notification = NewNotificationService(sender, sm.Streak, sm.Routine)
}
