package services

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"unstoppable/internal/api"
	"unstoppable/internal/database"
	"unstoppable/internal/utils"
)

// GuestUserID — локальная идентичность, пока пользователь не вошёл
const GuestUserID = "guest-local"

// GuestDraft — буфер несинхронизированных данных гостя.
// Живёт в kv-хранилище одним JSON-блобом и очищается
// по полям по мере успешной выгрузки.
type GuestDraft struct {
	Profile       *api.UserProfileUpsertRequest             `json:"profile,omitempty"`
	Routine       *api.RoutineUpsertRequest                 `json:"routine,omitempty"`
	DailyProgress map[string]api.DailyProgressUpsertRequest `json:"dailyProgressByDate,omitempty"`
	Streak        *api.StreakSnapshotUpsertRequest          `json:"streak,omitempty"`
	Subscription  *api.SubscriptionSnapshotUpsertRequest    `json:"subscription,omitempty"`
}

func (d *GuestDraft) IsEmpty() bool {
	return d.Profile == nil &&
		d.Routine == nil &&
		len(d.DailyProgress) == 0 &&
		d.Streak == nil &&
		d.Subscription == nil
}

// mergeProfile вливает непустые поля запроса в черновик.
// Отсутствие поля никогда не стирает уже сохранённое значение.
func (d *GuestDraft) mergeProfile(req api.UserProfileUpsertRequest) {
	if d.Profile == nil {
		d.Profile = &api.UserProfileUpsertRequest{}
	}
	if req.Nickname != nil {
		d.Profile.Nickname = req.Nickname
	}
	if req.AgeGroup != nil {
		d.Profile.AgeGroup = req.AgeGroup
	}
	if req.Gender != nil {
		d.Profile.Gender = req.Gender
	}
	if req.NotificationsEnabled != nil {
		d.Profile.NotificationsEnabled = req.NotificationsEnabled
	}
	if req.TermsAccepted != nil {
		d.Profile.TermsAccepted = req.TermsAccepted
	}
	if req.TermsOver16Accepted != nil {
		d.Profile.TermsOver16Accepted = req.TermsOver16Accepted
	}
	if req.TermsMarketingAccepted != nil {
		d.Profile.TermsMarketingAccepted = req.TermsMarketingAccepted
	}
	if req.PaymentOption != nil {
		d.Profile.PaymentOption = req.PaymentOption
	}
}

// SyncService — фасад синхронизации. С удалённой идентичностью пишет
// сразу в API, без неё копит черновик гостя и выгружает его после входа.
type SyncService struct {
	client          *api.Client
	repository      *database.Repository
	isAuthenticated func() bool
	now             func() time.Time

	// Черновик читается-изменяется-пишется только под мьютексом,
	// иначе параллельные upsert теряют обновления
	mu sync.Mutex
}

func NewSyncService(client *api.Client, repo *database.Repository) *SyncService {
	return &SyncService{
		client:          client,
		repository:      repo,
		isAuthenticated: client.IsAuthenticated,
		now:             time.Now,
	}
}

// Upserts

func (s *SyncService) SyncUserProfile(ctx context.Context, req api.UserProfileUpsertRequest) (api.AckResponse, error) {
	if s.isAuthenticated() {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/user/profile", req, &ack); err != nil {
			return api.AckResponse{}, err
		}
		return ack, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	draft.mergeProfile(req)
	s.saveDraftLocked(draft)
	return localAck(), nil
}

func (s *SyncService) SyncCurrentRoutine(ctx context.Context, req api.RoutineUpsertRequest) (api.AckResponse, error) {
	if s.isAuthenticated() {
		var ack api.AckResponse
		if err := s.client.Put(ctx, "/v1/routines/current", req, &ack); err != nil {
			return api.AckResponse{}, err
		}
		return ack, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	draft.Routine = &req
	s.saveDraftLocked(draft)
	return localAck(), nil
}

func (s *SyncService) SyncDailyProgress(ctx context.Context, req api.DailyProgressUpsertRequest) (api.AckResponse, error) {
	if s.isAuthenticated() {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/progress/daily", req, &ack); err != nil {
			return api.AckResponse{}, err
		}
		return ack, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	if draft.DailyProgress == nil {
		draft.DailyProgress = make(map[string]api.DailyProgressUpsertRequest)
	}
	// Заменяется только запись этой даты, остальные дни не трогаем
	draft.DailyProgress[req.Date] = req
	s.saveDraftLocked(draft)
	return localAck(), nil
}

func (s *SyncService) SyncStreakSnapshot(ctx context.Context, req api.StreakSnapshotUpsertRequest) (api.AckResponse, error) {
	if s.isAuthenticated() {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/stats/streak/snapshot", req, &ack); err != nil {
			return api.AckResponse{}, err
		}
		return ack, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	draft.Streak = &req
	s.saveDraftLocked(draft)
	return localAck(), nil
}

func (s *SyncService) SyncSubscriptionSnapshot(ctx context.Context, req api.SubscriptionSnapshotUpsertRequest) (api.AckResponse, error) {
	if s.isAuthenticated() {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/payments/subscription/snapshot", req, &ack); err != nil {
			return api.AckResponse{}, err
		}
		return ack, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	draft.Subscription = &req
	s.saveDraftLocked(draft)
	return localAck(), nil
}

// FetchBootstrap возвращает агрегат с сервера, а для гостя
// собирает его из локального черновика
func (s *SyncService) FetchBootstrap(ctx context.Context) (api.BootstrapResponse, error) {
	if s.isAuthenticated() {
		var resp api.BootstrapResponse
		if err := s.client.Get(ctx, "/v1/bootstrap", &resp); err != nil {
			return api.BootstrapResponse{}, err
		}
		return resp, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadDraftLocked()
	return s.synthesizeBootstrapLocked(draft), nil
}

func (s *SyncService) synthesizeBootstrapLocked(draft GuestDraft) api.BootstrapResponse {
	resp := api.BootstrapResponse{
		UserID:   GuestUserID,
		Profile:  make(map[string]api.JSONValue),
		Routine:  make(map[string]api.JSONValue),
		Streak:   make(map[string]api.JSONValue),
		Progress: api.BootstrapProgress{Today: make(map[string]api.JSONValue)},
	}

	if p := draft.Profile; p != nil {
		if p.Nickname != nil {
			resp.Profile["nickname"] = api.String(*p.Nickname)
		}
		if p.AgeGroup != nil {
			resp.Profile["ageGroup"] = api.String(*p.AgeGroup)
		}
		if p.Gender != nil {
			resp.Profile["gender"] = api.String(*p.Gender)
		}
		if p.NotificationsEnabled != nil {
			resp.Profile["notificationsEnabled"] = api.Bool(*p.NotificationsEnabled)
		}
		if p.TermsAccepted != nil {
			resp.Profile["termsAccepted"] = api.Bool(*p.TermsAccepted)
		}
		if p.TermsOver16Accepted != nil {
			resp.Profile["termsOver16Accepted"] = api.Bool(*p.TermsOver16Accepted)
		}
		if p.TermsMarketingAccepted != nil {
			resp.Profile["termsMarketingAccepted"] = api.Bool(*p.TermsMarketingAccepted)
		}
		if p.PaymentOption != nil {
			resp.Profile["paymentOption"] = api.String(*p.PaymentOption)
		}
	}

	if r := draft.Routine; r != nil {
		if r.RoutineTime != nil {
			resp.Routine["routineTime"] = api.String(*r.RoutineTime)
		}
		tasks := make([]api.JSONValue, 0, len(r.Tasks))
		for _, task := range r.Tasks {
			tasks = append(tasks, api.JSONValue{Kind: api.JSONObject, Object: map[string]api.JSONValue{
				"id":          api.String(task.ID),
				"title":       api.String(task.Title),
				"icon":        api.String(task.Icon),
				"duration":    api.Number(float64(task.Duration)),
				"isCompleted": api.Bool(task.IsCompleted),
			}})
		}
		resp.Routine["tasks"] = api.JSONValue{Kind: api.JSONArray, Array: tasks}
	}

	if st := draft.Streak; st != nil {
		resp.Streak["currentStreak"] = api.Number(float64(st.CurrentStreak))
		resp.Streak["longestStreak"] = api.Number(float64(st.LongestStreak))
		resp.Streak["lastQualifiedDate"] = api.String(st.LastQualifiedDate)
	}

	// В агрегат попадает только сегодняшний прогресс
	today := utils.TodayKey(s.now())
	if progress, ok := draft.DailyProgress[today]; ok {
		ids := make([]api.JSONValue, 0, len(progress.CompletedTaskIDs))
		for _, id := range progress.CompletedTaskIDs {
			ids = append(ids, api.String(id))
		}
		resp.Progress.Today = map[string]api.JSONValue{
			"date":             api.String(progress.Date),
			"completed":        api.Number(float64(progress.Completed)),
			"total":            api.Number(float64(progress.Total)),
			"completedTaskIds": {Kind: api.JSONArray, Array: ids},
		}
	}

	if sub := draft.Subscription; sub != nil {
		subMap := map[string]api.JSONValue{
			"isActive": api.Bool(sub.IsActive),
		}
		if sub.EntitlementID != nil {
			subMap["entitlementId"] = api.String(*sub.EntitlementID)
		}
		if sub.ProductID != nil {
			subMap["productId"] = api.String(*sub.ProductID)
		}
		if sub.Store != nil {
			subMap["store"] = api.String(*sub.Store)
		}
		if sub.PeriodType != nil {
			subMap["periodType"] = api.String(*sub.PeriodType)
		}
		resp.Subscription = subMap
	}

	return resp
}

// FlushPendingDrafts выгружает черновик гостя после входа.
// Порядок фиксированный: профиль → рутина → прогресс по датам →
// серия → подписка. Неудачные поля остаются в черновике до
// следующей попытки, ошибки наружу не отдаются.
func (s *SyncService) FlushPendingDrafts(ctx context.Context) {
	if !s.isAuthenticated() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.loadDraftLocked()
	if draft.IsEmpty() {
		return
	}

	log.Printf("📤 Выгрузка черновика гостя...")

	if draft.Profile != nil {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/user/profile", *draft.Profile, &ack); err != nil {
			log.Printf("⚠️ Профиль не выгружен, останется в черновике: %v", err)
		} else {
			draft.Profile = nil
		}
	}

	if draft.Routine != nil {
		var ack api.AckResponse
		if err := s.client.Put(ctx, "/v1/routines/current", *draft.Routine, &ack); err != nil {
			log.Printf("⚠️ Рутина не выгружена, останется в черновике: %v", err)
		} else {
			draft.Routine = nil
		}
	}

	dates := make([]string, 0, len(draft.DailyProgress))
	for date := range draft.DailyProgress {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/progress/daily", draft.DailyProgress[date], &ack); err != nil {
			log.Printf("⚠️ Прогресс за %s не выгружен, останется в черновике: %v", date, err)
		} else {
			delete(draft.DailyProgress, date)
		}
	}
	if len(draft.DailyProgress) == 0 {
		draft.DailyProgress = nil
	}

	if draft.Streak != nil {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/stats/streak/snapshot", *draft.Streak, &ack); err != nil {
			log.Printf("⚠️ Снимок серии не выгружен, останется в черновике: %v", err)
		} else {
			draft.Streak = nil
		}
	}

	if draft.Subscription != nil {
		var ack api.AckResponse
		if err := s.client.Post(ctx, "/v1/payments/subscription/snapshot", *draft.Subscription, &ack); err != nil {
			log.Printf("⚠️ Подписка не выгружена, останется в черновике: %v", err)
		} else {
			draft.Subscription = nil
		}
	}

	s.saveDraftLocked(draft)

	if draft.IsEmpty() {
		log.Printf("✅ Черновик гостя полностью выгружен")
	} else {
		log.Printf("📦 Часть черновика осталась, попробуем в следующий раз")
	}
}

// Persistence

// loadDraftLocked читает черновик; испорченный или отсутствующий
// блоб равнозначен пустому черновику
func (s *SyncService) loadDraftLocked() GuestDraft {
	var draft GuestDraft

	value, err := s.repository.GetValue(database.KeyGuestDraft)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения черновика гостя: %v", err)
		return draft
	}
	if value == "" {
		return draft
	}
	if err := json.Unmarshal([]byte(value), &draft); err != nil {
		log.Printf("⚠️ Черновик гостя не читается, начинаем с пустого: %v", err)
		return GuestDraft{}
	}
	return draft
}

func (s *SyncService) saveDraftLocked(draft GuestDraft) {
	if draft.IsEmpty() {
		if err := s.repository.DeleteValue(database.KeyGuestDraft); err != nil {
			log.Printf("⚠️ Ошибка удаления черновика гостя: %v", err)
		}
		return
	}

	data, err := json.Marshal(draft)
	if err != nil {
		log.Printf("⚠️ Ошибка кодирования черновика гостя: %v", err)
		return
	}
	if err := s.repository.SetValue(database.KeyGuestDraft, string(data)); err != nil {
		log.Printf("⚠️ Ошибка сохранения черновика гостя: %v", err)
	}
}

// localAck — локальное подтверждение гостевой записи, без серверной идентичности
func localAck() api.AckResponse {
	return api.AckResponse{OK: true}
}
