package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %v", err)
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		return nil, err
	}

	log.Printf("✅ База данных инициализирована: %s", path)
	return d, nil
}

func (d *Database) init() error {
	queries := []string{
		// Хранилище ключ-значение: счётчики серии и черновик гостя
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Дневные записи прогресса, ключ — локальная дата "YYYY-MM-DD"
		`CREATE TABLE IF NOT EXISTS daily_records (
			date TEXT PRIMARY KEY,
			completed INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Какие именно задачи выполнены в конкретный день
		`CREATE TABLE IF NOT EXISTS task_completions (
			date TEXT NOT NULL,
			task_id TEXT NOT NULL,
			PRIMARY KEY (date, task_id)
		)`,

		// Текущая рутина
		`CREATE TABLE IF NOT EXISTS routine_tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_task_completions_date ON task_completions(date)`,
		`CREATE INDEX IF NOT EXISTS idx_routine_tasks_position ON routine_tasks(position)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("ошибка создания таблицы: %v", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
