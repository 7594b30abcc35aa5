package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	taskColumns = "t.id, t.external_id, t.title, t.description, t.creator_id, t.due_date, " +
		"t.priority, t.start_time, t.end_time, t.created_at, t.updated_at, " +
		"COALESCE(array_agg(ta.account_id) FILTER (WHERE ta.account_id IS NOT NULL), '{}')"

	reportColumns = "r.id, r.task_id, t.title, r.staff_id, a.name, r.status, r.notes, " +
		"r.screenshot_url, r.work_link, r.submitted_at"
)

func (db *PgTaskRoomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (name, email, role, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, name, email, role, created_at, updated_at",
		params.Name,
		params.EmailAddress,
		params.Role,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskRoomRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, role, password_hash, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	return scanUser(row)
}

func (db *PgTaskRoomRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, role, password_hash, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	return scanUser(row)
}

func (db *PgTaskRoomRepository) ListAccounts() ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, email, role, password_hash, created_at, updated_at " +
			"FROM accounts ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgTaskRoomRepository) CreateTask(params CreateTaskParams) (Task, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Task{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		"INSERT INTO tasks (external_id, title, description, creator_id, due_date, priority, start_time, end_time, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) "+
			"RETURNING id, external_id, title, description, creator_id, due_date, priority, start_time, end_time, created_at, updated_at",
		params.ExternalId,
		params.Title,
		params.Description,
		params.CreatorId,
		params.DueDate,
		params.Priority,
		params.StartTime,
		params.EndTime,
		time.Now().UTC(),
	)

	var t Task
	if err := row.Scan(
		&t.Id,
		&t.ExternalId,
		&t.Title,
		&t.Description,
		&t.CreatorId,
		&t.DueDate,
		&t.Priority,
		&t.StartTime,
		&t.EndTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return Task{}, err
	}

	for _, assigneeId := range params.AssigneeIds {
		if _, err := tx.Exec(
			"INSERT INTO task_assignees (task_id, account_id) VALUES ($1, $2)",
			t.Id, assigneeId,
		); err != nil {
			return Task{}, fmt.Errorf("insert assignee: %w", err)
		}
	}
	t.AssigneeIds = params.AssigneeIds

	if err := tx.Commit(); err != nil {
		return Task{}, fmt.Errorf("commit: %w", err)
	}

	return t, nil
}

func (db *PgTaskRoomRepository) GetTaskById(taskId int) (Task, error) {
	row := db.conn.QueryRow(
		"SELECT "+taskColumns+" FROM tasks t "+
			"LEFT JOIN task_assignees ta ON ta.task_id = t.id "+
			"WHERE t.id = $1 GROUP BY t.id",
		taskId,
	)

	return scanTask(row)
}

func (db *PgTaskRoomRepository) ListTasksForAssignee(accountId int) ([]Task, error) {
	rows, err := db.conn.Query(
		"SELECT "+taskColumns+" FROM tasks t "+
			"JOIN task_assignees self ON self.task_id = t.id AND self.account_id = $1 "+
			"LEFT JOIN task_assignees ta ON ta.task_id = t.id "+
			"GROUP BY t.id ORDER BY t.due_date",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (db *PgTaskRoomRepository) ListTasksForCreator(accountId int) ([]Task, error) {
	rows, err := db.conn.Query(
		"SELECT "+taskColumns+" FROM tasks t "+
			"LEFT JOIN task_assignees ta ON ta.task_id = t.id "+
			"WHERE t.creator_id = $1 GROUP BY t.id ORDER BY t.due_date",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTask(row scanner) (Task, error) {
	var t Task
	var assignees pq.Int64Array
	err := row.Scan(
		&t.Id,
		&t.ExternalId,
		&t.Title,
		&t.Description,
		&t.CreatorId,
		&t.DueDate,
		&t.Priority,
		&t.StartTime,
		&t.EndTime,
		&t.CreatedAt,
		&t.UpdatedAt,
		&assignees,
	)
	if err != nil {
		return Task{}, err
	}

	t.AssigneeIds = make([]int, len(assignees))
	for i, id := range assignees {
		t.AssigneeIds[i] = int(id)
	}

	return t, nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func (db *PgTaskRoomRepository) CreateReport(params CreateReportParams) (Report, error) {
	row := db.conn.QueryRow(
		"INSERT INTO reports (task_id, staff_id, status, notes, screenshot_url, work_link, submitted_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, task_id, staff_id, status, notes, screenshot_url, work_link, submitted_at",
		params.TaskId,
		params.StaffId,
		params.Status,
		params.Notes,
		params.ScreenshotUrl,
		params.WorkLink,
		time.Now().UTC(),
	)

	var r Report
	err := row.Scan(
		&r.Id,
		&r.TaskId,
		&r.StaffId,
		&r.Status,
		&r.Notes,
		&r.ScreenshotUrl,
		&r.WorkLink,
		&r.SubmittedAt,
	)

	return r, err
}

func (db *PgTaskRoomRepository) ListReports(limit, offset int) ([]Report, error) {
	rows, err := db.conn.Query(
		"SELECT "+reportColumns+" FROM reports r "+
			"JOIN tasks t ON t.id = r.task_id "+
			"JOIN accounts a ON a.id = r.staff_id "+
			"ORDER BY r.submitted_at DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

func (db *PgTaskRoomRepository) ListReportsForStaff(accountId int) ([]Report, error) {
	rows, err := db.conn.Query(
		"SELECT "+reportColumns+" FROM reports r "+
			"JOIN tasks t ON t.id = r.task_id "+
			"JOIN accounts a ON a.id = r.staff_id "+
			"WHERE r.staff_id = $1 ORDER BY r.submitted_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

func scanReports(rows *sql.Rows) ([]Report, error) {
	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(
			&r.Id,
			&r.TaskId,
			&r.TaskTitle,
			&r.StaffId,
			&r.StaffName,
			&r.Status,
			&r.Notes,
			&r.ScreenshotUrl,
			&r.WorkLink,
			&r.SubmittedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

func (db *PgTaskRoomRepository) CreateMessage(msg Message) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (sender_id, sender_name, text, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, sender_id, sender_name, text, created_at",
		msg.SenderId,
		msg.SenderName,
		msg.Text,
		time.Now().UTC(),
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.SenderId,
		&m.SenderName,
		&m.Text,
		&m.CreatedAt,
	)

	return m, err
}

// RecentMessages returns the last limit messages in chronological order,
// oldest first, for a freshly opened chat view.
func (db *PgTaskRoomRepository) RecentMessages(limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, sender_id, sender_name, text, created_at FROM ("+
			"SELECT id, sender_id, sender_name, text, created_at FROM messages "+
			"ORDER BY created_at DESC LIMIT $1"+
			") recent ORDER BY created_at",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.SenderId,
			&m.SenderName,
			&m.Text,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
