// Package jsonfile stores each project as one JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/aplan/internal/app"
	"github.com/evanschultz/aplan/internal/domain"
)

// fileVersion defines a package constant value.
const fileVersion = "aplan.project.v1"

// fileExt is the suffix of every project document.
const fileExt = ".json"

// Repository keeps <dir>/<project-id>.json documents.
type Repository struct {
	mu  sync.RWMutex
	dir string
}

// projectFile is the on-disk document of one project.
type projectFile struct {
	Version     string              `json:"version"`
	Project     app.SnapshotProject `json:"project"`
	Events      []eventRecord       `json:"events"`
	NextEventID int64               `json:"next_event_id"`
}

// eventRecord is the on-disk form of one change event.
type eventRecord struct {
	ID         int64                  `json:"id"`
	TaskID     string                 `json:"task_id,omitempty"`
	Operation  domain.ChangeOperation `json:"operation"`
	Metadata   map[string]string      `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Open prepares dir for project documents.
func Open(dir string) (*Repository, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Repository{dir: dir}, nil
}

// Dir returns the directory holding project documents.
func (r *Repository) Dir() string {
	return r.dir
}

// Close is a no-op kept for parity with the sqlite repository.
func (r *Repository) Close() error {
	return nil
}

// CreateProject writes a new document for p with a create event.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.path(p.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", app.ErrProjectExists, p.ID)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	doc := projectFile{
		Version: fileVersion,
		Project: app.SnapshotProjectFromDomain(p),
	}
	event := domain.NewChangeEvent(p.ID, domain.ChangeOperationCreate, p.CreatedAt)
	event.Metadata["name"] = p.Name()
	doc.append(event)
	return writeDocument(path, doc)
}

// UpdateProject replaces the stored state of p and appends event.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project, event domain.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.path(p.ID)
	if err != nil {
		return err
	}
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	doc.Project = app.SnapshotProjectFromDomain(p)
	doc.append(event)
	return writeDocument(path, doc)
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return domain.Project{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.path(id)
	if err != nil {
		return domain.Project{}, app.ErrNotFound
	}
	doc, err := readDocument(path)
	if err != nil {
		return domain.Project{}, err
	}
	project, err := doc.Project.ToDomain()
	if err != nil {
		return domain.Project{}, fmt.Errorf("restore project %q: %w", id, err)
	}
	return project, nil
}

// ListProjects lists projects ordered by creation time.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domain.Project, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		doc, err := readDocument(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		project, err := doc.Project.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", name, err)
		}
		out = append(out, project)
	}
	slices.SortStableFunc(out, func(a, b domain.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// DeleteProject removes the project document and its history.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.path(id)
	if err != nil {
		return app.ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return app.ErrNotFound
		}
		return err
	}
	return nil
}

// ListProjectChangeEvents lists the latest events of a project, newest first.
func (r *Repository) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.path(projectID)
	if err != nil {
		return []domain.ChangeEvent{}, nil
	}
	doc, err := readDocument(path)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			return []domain.ChangeEvent{}, nil
		}
		return nil, err
	}

	out := make([]domain.ChangeEvent, 0, min(limit, len(doc.Events)))
	for i := len(doc.Events) - 1; i >= 0 && len(out) < limit; i-- {
		rec := doc.Events[i]
		metadata := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			metadata[k] = v
		}
		out = append(out, domain.ChangeEvent{
			ID:         rec.ID,
			ProjectID:  projectID,
			TaskID:     rec.TaskID,
			Operation:  rec.Operation,
			Metadata:   metadata,
			OccurredAt: rec.OccurredAt.UTC(),
		})
	}
	return out, nil
}

// path maps a project id to its document path.
func (r *Repository) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return filepath.Join(r.dir, id+fileExt), nil
}

// append records event with the next ledger id.
func (d *projectFile) append(event domain.ChangeEvent) {
	d.NextEventID++
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	d.Events = append(d.Events, eventRecord{
		ID:         d.NextEventID,
		TaskID:     event.TaskID,
		Operation:  event.Operation,
		Metadata:   event.Metadata,
		OccurredAt: occurred.UTC(),
	})
}

// readDocument decodes one project document, rejecting unknown fields.
func readDocument(path string) (projectFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return projectFile{}, app.ErrNotFound
		}
		return projectFile{}, err
	}
	defer f.Close()

	var doc projectFile
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return projectFile{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return projectFile{}, fmt.Errorf("decode %s: trailing content", filepath.Base(path))
	}
	if doc.Version != fileVersion {
		return projectFile{}, fmt.Errorf("decode %s: unsupported version %q", filepath.Base(path), doc.Version)
	}
	return doc, nil
}

// writeDocument replaces path through a synced temp file and rename.
func writeDocument(path string, doc projectFile) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
