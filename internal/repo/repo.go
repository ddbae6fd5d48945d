package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scorekeeper/internal/domain"
	"scorekeeper/internal/events"
	"scorekeeper/internal/storage"
)

// Repo is the SQLite document backend. It satisfies storage.Store.
type Repo struct {
	DB     *sql.DB
	Events events.Writer
	Now    func() time.Time
}

var ErrNotFound = errors.New("not found")

var _ storage.Store = Repo{}

// New returns a Repo over an opened and migrated database.
func New(db *sql.DB) Repo {
	return Repo{DB: db, Now: time.Now}
}

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Read returns the stored body; missing documents wrap both ErrNotFound and storage.ErrNotExist.
func (r Repo) Read(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := r.DB.QueryRowContext(ctx, `SELECT body FROM documents WHERE name=?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, errors.Join(ErrNotFound, storage.ErrNotExist))
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Write upserts the document and records a document.written event in the same transaction.
func (r Repo) Write(ctx context.Context, name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("document name required")
	}
	now := r.now().UTC().Format(time.RFC3339Nano)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(name,body,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(name) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`, name, string(data), now, now); err != nil {
		return fmt.Errorf("upsert document %s: %w", name, err)
	}
	ev := r.Events
	if ev.Now == nil {
		ev.Now = r.now
	}
	if err := ev.DocumentWritten(ctx, tx, name, data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return tx.Commit()
}

func (r Repo) ListDocuments(ctx context.Context, prefix string) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name,LENGTH(body),created_at,updated_at FROM documents WHERE name LIKE ? ESCAPE '\' ORDER BY name`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.Name, &d.Size, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	if limit <= 0 {
		limit = 20
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
