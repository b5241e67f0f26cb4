package database

import (
	"database/sql"
	"strconv"
)

type Repository struct {
	Db *Database
}

func NewRepository(db *Database) *Repository {
	return &Repository{Db: db}
}

// KV repository methods

func (r *Repository) SetValue(key, value string) error {
	_, err := r.Db.db.Exec(`
		INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// GetValue возвращает значение по ключу, пустую строку если ключа нет
func (r *Repository) GetValue(key string) (string, error) {
	var value string
	err := r.Db.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Repository) DeleteValue(key string) error {
	_, err := r.Db.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

func (r *Repository) SetInt(key string, value int) error {
	return r.SetValue(key, strconv.Itoa(value))
}

// GetInt возвращает целое по ключу, 0 если ключа нет или значение испорчено
func (r *Repository) GetInt(key string) (int, error) {
	value, err := r.GetValue(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Day record repository methods

func (r *Repository) SaveDayRecord(date string, record DayRecord) error {
	_, err := r.Db.db.Exec(`
		INSERT INTO daily_records (date, completed, total)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			completed = excluded.completed,
			total = excluded.total,
			updated_at = CURRENT_TIMESTAMP
	`, date, record.Completed, record.Total)
	return err
}

// GetDayRecord возвращает запись дня или nil, если записи нет
func (r *Repository) GetDayRecord(date string) (*DayRecord, error) {
	var record DayRecord
	err := r.Db.db.QueryRow(`
		SELECT completed, total FROM daily_records WHERE date = ?
	`, date).Scan(&record.Completed, &record.Total)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetDayRecordsBetween возвращает записи за период включительно
func (r *Repository) GetDayRecordsBetween(startDate, endDate string) (map[string]DayRecord, error) {
	rows, err := r.Db.db.Query(`
		SELECT date, completed, total
		FROM daily_records
		WHERE date BETWEEN ? AND ?
	`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]DayRecord)
	for rows.Next() {
		var date string
		var record DayRecord
		if err := rows.Scan(&date, &record.Completed, &record.Total); err != nil {
			return nil, err
		}
		records[date] = record
	}

	return records, rows.Err()
}

// GetAllDayRecords возвращает всю историю записей
func (r *Repository) GetAllDayRecords() (map[string]DayRecord, error) {
	rows, err := r.Db.db.Query("SELECT date, completed, total FROM daily_records")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]DayRecord)
	for rows.Next() {
		var date string
		var record DayRecord
		if err := rows.Scan(&date, &record.Completed, &record.Total); err != nil {
			return nil, err
		}
		records[date] = record
	}

	return records, rows.Err()
}

// CountActiveDays возвращает число дней с total > 0 и число дней,
// где выполнено всё запланированное
func (r *Repository) CountActiveDays() (active, perfect int, err error) {
	err = r.Db.db.QueryRow(`
		SELECT
			COUNT(*) as active,
			COALESCE(SUM(CASE WHEN completed >= total THEN 1 ELSE 0 END), 0) as perfect
		FROM daily_records
		WHERE total > 0
	`).Scan(&active, &perfect)
	if err != nil {
		return 0, 0, err
	}
	return active, perfect, nil
}

// TotalCompleted возвращает сумму выполненных задач за всю историю
func (r *Repository) TotalCompleted() (int, error) {
	var total sql.NullInt64
	err := r.Db.db.QueryRow("SELECT SUM(completed) FROM daily_records").Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// HasAnyData сообщает, есть ли хоть один день с выполненными задачами
func (r *Repository) HasAnyData() (bool, error) {
	var exists int
	err := r.Db.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM daily_records WHERE completed > 0)
	`).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// Task completion repository methods

func (r *Repository) AddTaskCompletion(date, taskID string) error {
	_, err := r.Db.db.Exec(`
		INSERT OR IGNORE INTO task_completions (date, task_id) VALUES (?, ?)
	`, date, taskID)
	return err
}

func (r *Repository) RemoveTaskCompletion(date, taskID string) error {
	_, err := r.Db.db.Exec(`
		DELETE FROM task_completions WHERE date = ? AND task_id = ?
	`, date, taskID)
	return err
}

// GetTaskCompletions возвращает ID выполненных задач за день, отсортированные
func (r *Repository) GetTaskCompletions(date string) ([]string, error) {
	rows, err := r.Db.db.Query(`
		SELECT task_id FROM task_completions WHERE date = ? ORDER BY task_id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Routine repository methods

func (r *Repository) GetRoutineTasks() ([]RoutineTask, error) {
	rows, err := r.Db.db.Query(`
		SELECT id, title, icon, duration, position
		FROM routine_tasks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []RoutineTask
	for rows.Next() {
		var task RoutineTask
		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Icon,
			&task.Duration,
			&task.Position,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (r *Repository) AddRoutineTask(task RoutineTask) error {
	_, err := r.Db.db.Exec(`
		INSERT INTO routine_tasks (id, title, icon, duration, position)
		VALUES (?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.Icon, task.Duration, task.Position)
	return err
}

// ReplaceRoutineTasks атомарно заменяет всю рутину
func (r *Repository) ReplaceRoutineTasks(tasks []RoutineTask) error {
	tx, err := r.Db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM routine_tasks"); err != nil {
		return err
	}
	for _, task := range tasks {
		_, err := tx.Exec(`
			INSERT INTO routine_tasks (id, title, icon, duration, position)
			VALUES (?, ?, ?, ?, ?)
		`, task.ID, task.Title, task.Icon, task.Duration, task.Position)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) CountRoutineTasks() (int, error) {
	var count int
	err := r.Db.db.QueryRow("SELECT COUNT(*) FROM routine_tasks").Scan(&count)
	return count, err
}
