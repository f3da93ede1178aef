package draft

import (
	"context"
	"errors"
	"io"
	"time"
)

// ItemID identifies a draft area. Ids are unique across the whole store, not
// per user.
type ItemID int64

// NoItem is the zero ItemID and means "no draft area selected".
const NoItem ItemID = 0

// maxItemID bounds randomly allocated ids to the range the host framework uses.
const maxItemID = 999999999

var (
	ErrUnknownItem  = errors.New("draft: unknown draft item")
	ErrNotOwner     = errors.New("draft: draft item belongs to another user")
	ErrFileNotFound = errors.New("draft: file not found")
)

// Scope carries the caller identity used to namespace draft areas. Files
// stored under one user are never visible to another.
type Scope struct {
	UserID int64
}

// Order selects the listing order returned by Service.Files.
type Order int

const (
	// NewestFirst sorts by creation time descending, ties broken by id.
	NewestFirst Order = iota
	OldestFirst
)

// File describes a file stored in a draft area.
type File struct {
	ID       int64     `json:"id"`
	ItemID   ItemID    `json:"itemid"`
	UserID   int64     `json:"userid"`
	Name     string    `json:"filename"`
	MimeType string    `json:"mimetype,omitempty"`
	Size     int64     `json:"filesize"`
	Created  time.Time `json:"timecreated"`
}

// Service is the narrow contract the file picker field depends on.
type Service interface {
	// Allocate reserves a fresh, unused draft item for scope.
	Allocate(ctx context.Context, scope Scope) (ItemID, error)
	// Files lists the files scope owns in item.
	Files(ctx context.Context, scope Scope, item ItemID, order Order) ([]File, error)
	// Delete removes a single file.
	Delete(ctx context.Context, scope Scope, file File) error
}

// Store extends Service with the write and read paths used by the draft file
// manager endpoint.
type Store interface {
	Service
	Put(ctx context.Context, scope Scope, item ItemID, name, mimeType string, r io.Reader) (File, error)
	Open(ctx context.Context, scope Scope, file File) (io.ReadCloser, error)
}
