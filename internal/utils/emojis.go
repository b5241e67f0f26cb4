package utils

import "fmt"

// Вспомогательные функции для отображения иконок задач рутины
func GetTaskIcon(icon string) string {
	switch icon {
	case "water":
		return "💧"
	case "workout":
		return "🏋️"
	case "reading":
		return "📖"
	case "meditation":
		return "🧘"
	case "coldshower":
		return "🚿"
	case "journal":
		return "📓"
	case "walk":
		return "🚶"
	default:
		return "📌"
	}
}

// FormatDuration форматирует длительность задачи в минутах
func FormatDuration(minutes int) string {
	switch {
	case minutes <= 0:
		return ""
	case minutes < 60:
		return fmt.Sprintf("%d мин", minutes)
	case minutes%60 == 0:
		return fmt.Sprintf("%d ч", minutes/60)
	default:
		return fmt.Sprintf("%d ч %d мин", minutes/60, minutes%60)
	}
}
