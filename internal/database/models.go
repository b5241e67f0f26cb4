package database

// DayRecord — итог одного календарного дня
type DayRecord struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// StreakState — счётчики серии.
// Инвариант: Longest >= Current после любого обновления.
type StreakState struct {
	Current           int    `json:"currentStreak"`
	Longest           int    `json:"longestStreak"`
	LastQualifiedDate string `json:"lastQualifiedDate"`
}

// RoutineTask — задача текущей рутины
type RoutineTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Duration int    `json:"duration"` // минуты
	Position int    `json:"position"`
}

// DayCount — количество выполненных задач за день, для недельного графика
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Фиксированные ключи kv-хранилища
const (
	KeyStreakCurrent   = "streak.current"
	KeyStreakLongest   = "streak.longest"
	KeyStreakQualified = "streak.lastQualified"
	KeyGuestDraft      = "sync.guestDraft.v1"
	KeyRoutineTime     = "routine.time"
)
