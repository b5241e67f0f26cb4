package utils

import (
	"time"
)

// Ключи дат всегда в локальном календаре устройства: "2006-01-02".
const DateKeyLayout = "2006-01-02"

// DateKey возвращает ключ даты для момента времени t
func DateKey(t time.Time) string {
	return t.Local().Format(DateKeyLayout)
}

// TodayKey возвращает ключ сегодняшней даты
func TodayKey(now time.Time) string {
	return DateKey(now)
}

// YesterdayKey возвращает ключ вчерашней даты
func YesterdayKey(now time.Time) string {
	return DateKey(now.AddDate(0, 0, -1))
}

// StartOfDay обнуляет время, оставляя дату в локальной зоне
func StartOfDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// StartOfWeek возвращает начало календарной недели (воскресенье),
// в которую попадает t
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// LastNDayKeys возвращает ключи последних n дней, от старых к новым,
// включая сегодняшний
func LastNDayKeys(now time.Time, n int) []string {
	keys := make([]string, 0, n)
	for offset := n - 1; offset >= 0; offset-- {
		keys = append(keys, DateKey(now.AddDate(0, 0, -offset)))
	}
	return keys
}

// ParseDateKey парсит ключ даты обратно в локальное время
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.Local)
}
