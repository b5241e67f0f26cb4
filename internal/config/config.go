package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	API struct {
		BaseURL    string `yaml:"base_url"`
		UseDevAuth bool   `yaml:"use_dev_auth"`
		DevUserID  string `yaml:"dev_user_id"`
	} `yaml:"api"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

func Load() (*Config, error) {

	token := getEnv("TG_TOKEN", "")
	if token == "" {
		log.Fatal("❌ TG_TOKEN не установлен. Установите переменную окружения или создайте .env файл")
	}

	chatIDStr := getEnv("TG_CHAT_ID", "")
	if chatIDStr == "" {
		log.Fatal("❌ TG_CHAT_ID не установлен")
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		log.Fatalf("❌ Неверный TG_CHAT_ID: %v", err)
	}

	cfg := &Config{}
	cfg.Telegram.Token = token
	cfg.Telegram.ChatID = chatID
	cfg.API.BaseURL = getEnv("API_BASE_URL", "https://unstoppable-api-1094359674860.us-central1.run.app")
	cfg.API.UseDevAuth = getBoolEnv("API_USE_DEV_AUTH", false)
	cfg.API.DevUserID = getEnv("API_DEV_USER_ID", "dev-user-001")
	cfg.Database.Path = getEnv("DB_PATH", "/data/unstoppable.db")

	log.Printf("✅ Конфигурация загружена: API=%s, БД=%s", cfg.API.BaseURL, cfg.Database.Path)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	switch getEnv(key, "") {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultValue
	}
}
