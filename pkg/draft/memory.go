package draft

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

type memoryFile struct {
	meta File
	data []byte
}

// MemoryStore keeps draft areas in process memory. It is safe for concurrent
// use.
type MemoryStore struct {
	mu     sync.Mutex
	owners map[ItemID]int64
	files  map[ItemID][]memoryFile
	nextID int64
	now    func() time.Time
	randID func() ItemID
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used to stamp new files.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides the random item id generator.
func WithIDSource(next func() ItemID) MemoryOption {
	return func(s *MemoryStore) {
		if next != nil {
			s.randID = next
		}
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		owners: make(map[ItemID]int64),
		files:  make(map[ItemID][]memoryFile),
		now:    time.Now,
		randID: RandomItemID,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store
}

// RandomItemID draws a candidate id in [1, 999999999].
func RandomItemID() ItemID {
	return ItemID(rand.Int64N(maxItemID) + 1)
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Allocate(ctx context.Context, scope Scope) (ItemID, error) {
	if err := ctx.Err(); err != nil {
		return NoItem, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 64; attempt++ {
		id := s.randID()
		if id <= NoItem {
			continue
		}
		if _, taken := s.owners[id]; taken {
			continue
		}
		s.owners[id] = scope.UserID
		return id, nil
	}
	return NoItem, fmt.Errorf("draft: allocate: no unused item id found")
}

func (s *MemoryStore) Files(ctx context.Context, scope Scope, item ItemID, order Order) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []File
	for _, f := range s.files[item] {
		if f.meta.UserID != scope.UserID {
			continue
		}
		out = append(out, f.meta)
	}
	SortFiles(out, order)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope Scope, file File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.files[file.ItemID]
	for i, f := range entries {
		if f.meta.ID != file.ID || f.meta.UserID != scope.UserID {
			continue
		}
		s.files[file.ItemID] = append(entries[:i:i], entries[i+1:]...)
		return nil
	}
	return ErrFileNotFound
}

func (s *MemoryStore) Put(ctx context.Context, scope Scope, item ItemID, name, mimeType string, r io.Reader) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if r == nil {
		return File{}, fmt.Errorf("draft: put: missing reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("draft: put: read content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[item]
	if !ok {
		return File{}, ErrUnknownItem
	}
	if owner != scope.UserID {
		return File{}, ErrNotOwner
	}

	s.nextID++
	meta := File{
		ID:       s.nextID,
		ItemID:   item,
		UserID:   scope.UserID,
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Created:  s.now(),
	}
	s.files[item] = append(s.files[item], memoryFile{meta: meta, data: data})
	return meta, nil
}

func (s *MemoryStore) Open(ctx context.Context, scope Scope, file File) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.files[file.ItemID] {
		if f.meta.ID == file.ID && f.meta.UserID == scope.UserID {
			return io.NopCloser(bytes.NewReader(f.data)), nil
		}
	}
	return nil, ErrFileNotFound
}

// SortFiles orders files in place.
func SortFiles(files []File, order Order) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.Created.Equal(b.Created) {
			if order == OldestFirst {
				return a.Created.Before(b.Created)
			}
			return a.Created.After(b.Created)
		}
		if order == OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
