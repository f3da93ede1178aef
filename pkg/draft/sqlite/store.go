package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

const schema = `
CREATE TABLE IF NOT EXISTS draft_items (
	id      INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	created INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS draft_files (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id   INTEGER NOT NULL REFERENCES draft_items(id),
	user_id   INTEGER NOT NULL,
	name      TEXT    NOT NULL,
	mime_type TEXT    NOT NULL DEFAULT '',
	size      INTEGER NOT NULL,
	created   INTEGER NOT NULL,
	blob      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS draft_files_item ON draft_files (item_id, user_id);
`

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem that holds file contents. Defaults to the OS
// filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithBlobDir sets the directory, relative to the filesystem root, where
// contents are written.
func WithBlobDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.blobDir = dir
		}
	}
}

// WithClock overrides the time source used to stamp new rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides the random item id generator.
func WithIDSource(next func() draft.ItemID) Option {
	return func(s *Store) {
		if next != nil {
			s.randID = next
		}
	}
}

// Store persists draft metadata in SQLite and file contents on an afero
// filesystem.
type Store struct {
	db      *sql.DB
	fs      afero.Fs
	blobDir string
	now     func() time.Time
	randID  func() draft.ItemID
}

var _ draft.Store = (*Store)(nil)

// New opens (creating when needed) the SQLite database at dsn and applies the
// schema.
func New(dsn string, options ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	store := &Store{
		db:      db,
		fs:      afero.NewOsFs(),
		blobDir: "draftfiles",
		now:     time.Now,
		randID:  draft.RandomItemID,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	if err := store.fs.MkdirAll(store.blobDir, 0o755); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create blob dir: %w", err)
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Allocate(ctx context.Context, scope draft.Scope) (draft.ItemID, error) {
	for attempt := 0; attempt < 64; attempt++ {
		id := s.randID()
		if id <= draft.NoItem {
			continue
		}
		res, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO draft_items (id, user_id, created) VALUES (?, ?, ?)",
			int64(id), scope.UserID, s.now().UnixNano(),
		)
		if err != nil {
			return draft.NoItem, fmt.Errorf("sqlite: allocate: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return draft.NoItem, fmt.Errorf("sqlite: allocate: %w", err)
		}
		if affected == 1 {
			return id, nil
		}
	}
	return draft.NoItem, errors.New("sqlite: allocate: no unused item id found")
}

func (s *Store) Files(ctx context.Context, scope draft.Scope, item draft.ItemID, order draft.Order) ([]draft.File, error) {
	query := `SELECT id, item_id, user_id, name, mime_type, size, created FROM draft_files
		WHERE item_id = ? AND user_id = ? ORDER BY created DESC, id DESC`
	if order == draft.OldestFirst {
		query = `SELECT id, item_id, user_id, name, mime_type, size, created FROM draft_files
		WHERE item_id = ? AND user_id = ? ORDER BY created ASC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, int64(item), scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []draft.File
	for rows.Next() {
		var (
			f       draft.File
			itemID  int64
			created int64
		)
		if err := rows.Scan(&f.ID, &itemID, &f.UserID, &f.Name, &f.MimeType, &f.Size, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan file: %w", err)
		}
		f.ItemID = draft.ItemID(itemID)
		f.Created = time.Unix(0, created).UTC()
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list files: %w", err)
	}
	return files, nil
}

func (s *Store) Delete(ctx context.Context, scope draft.Scope, file draft.File) error {
	blob, err := s.blobPath(ctx, scope, file)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM draft_files WHERE id = ? AND user_id = ?", file.ID, scope.UserID); err != nil {
		return fmt.Errorf("sqlite: delete file: %w", err)
	}
	if err := s.fs.Remove(blob); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		return fmt.Errorf("sqlite: remove blob: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, scope draft.Scope, item draft.ItemID, name, mimeType string, r io.Reader) (draft.File, error) {
	if r == nil {
		return draft.File{}, errors.New("sqlite: put: missing reader")
	}

	var owner int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM draft_items WHERE id = ?", int64(item)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.File{}, draft.ErrUnknownItem
	}
	if err != nil {
		return draft.File{}, fmt.Errorf("sqlite: lookup item: %w", err)
	}
	if owner != scope.UserID {
		return draft.File{}, draft.ErrNotOwner
	}

	blob := path.Join(s.blobDir, strconv.FormatInt(scope.UserID, 10), uuid.NewString())
	size, err := s.writeBlob(blob, r)
	if err != nil {
		return draft.File{}, err
	}

	created := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_files (item_id, user_id, name, mime_type, size, created, blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(item), scope.UserID, name, mimeType, size, created.UnixNano(), blob,
	)
	if err != nil {
		_ = s.fs.Remove(blob)
		return draft.File{}, fmt.Errorf("sqlite: insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return draft.File{}, fmt.Errorf("sqlite: insert file: %w", err)
	}

	return draft.File{
		ID:       id,
		ItemID:   item,
		UserID:   scope.UserID,
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		Created:  time.Unix(0, created.UnixNano()).UTC(),
	}, nil
}

func (s *Store) Open(ctx context.Context, scope draft.Scope, file draft.File) (io.ReadCloser, error) {
	blob, err := s.blobPath(ctx, scope, file)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(blob)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open blob: %w", err)
	}
	return f, nil
}

func (s *Store) blobPath(ctx context.Context, scope draft.Scope, file draft.File) (string, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		"SELECT blob FROM draft_files WHERE id = ? AND user_id = ?",
		file.ID, scope.UserID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", draft.ErrFileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: lookup file: %w", err)
	}
	return blob, nil
}

func (s *Store) writeBlob(name string, r io.Reader) (int64, error) {
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return 0, fmt.Errorf("sqlite: create blob dir: %w", err)
	}
	f, err := s.fs.Create(name)
	if err != nil {
		return 0, fmt.Errorf("sqlite: create blob: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return 0, fmt.Errorf("sqlite: write blob: %w", err)
	}
	return size, nil
}
