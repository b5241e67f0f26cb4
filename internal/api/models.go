package api

import "time"

// AckResponse — стандартный ответ API на запись данных
type AckResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userId,omitempty"`
	Date   string `json:"date,omitempty"`
}

// UserProfileUpsertRequest — частичное обновление профиля.
// nil-поля не отправляются и не затирают данные на сервере.
type UserProfileUpsertRequest struct {
	Nickname               *string `json:"nickname,omitempty"`
	AgeGroup               *string `json:"ageGroup,omitempty"`
	Gender                 *string `json:"gender,omitempty"`
	NotificationsEnabled   *bool   `json:"notificationsEnabled,omitempty"`
	TermsAccepted          *bool   `json:"termsAccepted,omitempty"`
	TermsOver16Accepted    *bool   `json:"termsOver16Accepted,omitempty"`
	TermsMarketingAccepted *bool   `json:"termsMarketingAccepted,omitempty"`
	PaymentOption          *string `json:"paymentOption,omitempty"`
}

type RoutineTaskPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Duration    int    `json:"duration"`
	IsCompleted bool   `json:"isCompleted"`
}

type RoutineUpsertRequest struct {
	RoutineTime *string              `json:"routineTime,omitempty"`
	Tasks       []RoutineTaskPayload `json:"tasks"`
}

type DailyProgressUpsertRequest struct {
	Date             string   `json:"date"`
	Completed        int      `json:"completed"`
	Total            int      `json:"total"`
	CompletedTaskIDs []string `json:"completedTaskIds"`
}

type StreakSnapshotUpsertRequest struct {
	CurrentStreak     int    `json:"currentStreak"`
	LongestStreak     int    `json:"longestStreak"`
	LastQualifiedDate string `json:"lastQualifiedDate"`
}

type SubscriptionSnapshotUpsertRequest struct {
	EntitlementID        *string    `json:"entitlementId,omitempty"`
	EntitlementIDs       []string   `json:"entitlementIds"`
	IsActive             bool       `json:"isActive"`
	ProductID            *string    `json:"productId,omitempty"`
	PaymentOption        *string    `json:"paymentOption,omitempty"`
	Store                *string    `json:"store,omitempty"`
	PeriodType           *string    `json:"periodType,omitempty"`
	ExpirationAt         *time.Time `json:"expirationAt,omitempty"`
	GracePeriodExpiresAt *time.Time `json:"gracePeriodExpiresAt,omitempty"`
}

// BootstrapResponse — агрегат для решения о стадии онбординга.
// profile/routine/streak приходят слабо типизированными словарями.
type BootstrapResponse struct {
	UserID            string                        `json:"userId"`
	Profile           map[string]JSONValue          `json:"profile"`
	IsProfileComplete *bool                         `json:"isProfileComplete,omitempty"`
	ProfileCompletion *BootstrapProfileCompletion   `json:"profileCompletion,omitempty"`
	Routine           map[string]JSONValue          `json:"routine"`
	Streak            map[string]JSONValue          `json:"streak"`
	Progress          BootstrapProgress             `json:"progress"`
	Subscription      map[string]JSONValue          `json:"subscription,omitempty"`
}

type BootstrapProfileCompletion struct {
	IsComplete            bool     `json:"isComplete"`
	MissingRequiredFields []string `json:"missingRequiredFields"`
}

type BootstrapProgress struct {
	Today map[string]JSONValue `json:"today"`
}
