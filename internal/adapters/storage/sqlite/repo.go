package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/aplan/internal/app"
	"github.com/evanschultz/aplan/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// task_id is the dotted textual id; the root row uses ''.
		`CREATE TABLE IF NOT EXISTS tasks (
			project_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			name TEXT NOT NULL,
			planned_value REAL NOT NULL DEFAULT 0,
			actual_cost REAL NOT NULL DEFAULT 0,
			num_children INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'in_progress',
			PRIMARY KEY(project_id, task_id),
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			added_at TEXT NOT NULL,
			PRIMARY KEY(project_id, name),
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS task_members (
			project_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			member_name TEXT NOT NULL,
			PRIMARY KEY(project_id, task_id, member_name),
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			task_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_project_created_at ON change_events(project_id, created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateProject inserts the project row, its full task store and a create event.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects(id, slug, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Slug(), p.Name(), ts(p.CreatedAt), ts(p.UpdatedAt))
	if err != nil {
		return err
	}
	if err = writeProjectState(ctx, tx, p); err != nil {
		return err
	}
	event := domain.NewChangeEvent(p.ID, domain.ChangeOperationCreate, p.CreatedAt)
	event.Metadata["name"] = p.Name()
	if err = insertChangeEvent(ctx, tx, event); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// UpdateProject replaces the stored state of p and appends event.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project, event domain.ChangeEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET slug = ?, name = ?, updated_at = ?
		WHERE id = ?
	`, p.Slug(), p.Name(), ts(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if err = clearProjectState(ctx, tx, p.ID); err != nil {
		return err
	}
	if err = writeProjectState(ctx, tx, p); err != nil {
		return err
	}
	event.ProjectID = p.ID
	if err = insertChangeEvent(ctx, tx, event); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id)
	var (
		projectID  string
		name       string
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&projectID, &name, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, app.ErrNotFound
		}
		return domain.Project{}, err
	}

	tasks, err := r.loadTasks(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	store, err := domain.RestoreTasks(tasks)
	if err != nil {
		return domain.Project{}, fmt.Errorf("restore project %q: %w", projectID, err)
	}
	members, err := r.loadMembers(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	registry, err := domain.RestoreMembers(members)
	if err != nil {
		return domain.Project{}, fmt.Errorf("restore project %q members: %w", projectID, err)
	}
	if store.Name() != name {
		return domain.Project{}, fmt.Errorf("restore project %q: root task %q does not match name %q", projectID, store.Name(), name)
	}
	return domain.Project{
		ID:        projectID,
		Tasks:     store,
		Members:   registry,
		CreatedAt: parseTS(createdRaw),
		UpdatedAt: parseTS(updatedRaw),
	}, nil
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM projects
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]domain.Project, 0, len(ids))
	for _, id := range ids {
		project, err := r.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, nil
}

// DeleteProject removes the project with every dependent row.
func (r *Repository) DeleteProject(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = clearProjectState(ctx, tx, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM change_events WHERE project_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListProjectChangeEvents lists the latest events of a project, newest first.
func (r *Repository) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, task_id, operation, metadata_json, created_at
		FROM change_events
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.ProjectID, &event.TaskID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// loadTasks reads every task row of a project with its assignees.
func (r *Repository) loadTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	assignees, err := r.loadAssignees(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, name, planned_value, actual_cost, num_children, status
		FROM tasks
		WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		var (
			rawID     string
			task      domain.Task
			statusRaw string
		)
		if err := rows.Scan(&rawID, &task.Name, &task.PlannedValue, &task.ActualCost, &task.NumChildren, &statusRaw); err != nil {
			return nil, err
		}
		id, err := domain.ParseTaskID(rawID)
		if err != nil {
			return nil, fmt.Errorf("decode tasks.task_id: %w", err)
		}
		task.ID = id
		task.Status = domain.Status(statusRaw)
		task.Members = assignees[rawID]
		out = append(out, task)
	}
	return out, rows.Err()
}

// loadAssignees groups task_members rows by task id.
func (r *Repository) loadAssignees(ctx context.Context, projectID string) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, member_name
		FROM task_members
		WHERE project_id = ?
		ORDER BY task_id ASC, member_name ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var taskID, name string
		if err := rows.Scan(&taskID, &name); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], name)
	}
	return out, rows.Err()
}

// loadMembers reads the member registry of a project.
func (r *Repository) loadMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, added_at
		FROM members
		WHERE project_id = ?
		ORDER BY name ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		var (
			member   domain.Member
			addedRaw string
		)
		if err := rows.Scan(&member.Name, &addedRaw); err != nil {
			return nil, err
		}
		member.AddedAt = parseTS(addedRaw)
		out = append(out, member)
	}
	return out, rows.Err()
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// clearProjectState deletes every task, member and assignment row of a project.
func clearProjectState(ctx context.Context, execer execerContext, projectID string) error {
	for _, stmt := range []string{
		`DELETE FROM task_members WHERE project_id = ?`,
		`DELETE FROM members WHERE project_id = ?`,
		`DELETE FROM tasks WHERE project_id = ?`,
	} {
		if _, err := execer.ExecContext(ctx, stmt, projectID); err != nil {
			return fmt.Errorf("clear project state: %w", err)
		}
	}
	return nil
}

// writeProjectState inserts the full task store and member registry of p.
func writeProjectState(ctx context.Context, execer execerContext, p domain.Project) error {
	for _, task := range p.Tasks.All() {
		key := task.ID.String()
		_, err := execer.ExecContext(ctx, `
			INSERT INTO tasks(project_id, task_id, name, planned_value, actual_cost, num_children, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, key, task.Name, task.PlannedValue, task.ActualCost, task.NumChildren, string(task.Status))
		if err != nil {
			return fmt.Errorf("insert task %q: %w", key, err)
		}
		for _, name := range task.Members {
			_, err := execer.ExecContext(ctx, `
				INSERT INTO task_members(project_id, task_id, member_name)
				VALUES (?, ?, ?)
			`, p.ID, key, name)
			if err != nil {
				return fmt.Errorf("insert assignment %q on %q: %w", name, key, err)
			}
		}
	}
	for _, member := range p.Members.List() {
		_, err := execer.ExecContext(ctx, `
			INSERT INTO members(project_id, name, added_at)
			VALUES (?, ?, ?)
		`, p.ID, member.Name, ts(member.AddedAt))
		if err != nil {
			return fmt.Errorf("insert member %q: %w", member.Name, err)
		}
	}
	return nil
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(project_id, task_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.ProjectID,
		event.TaskID,
		string(event.Operation),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// normalizeEventTS fills a missing event time with now.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// translateNoRows maps a zero-row write to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
