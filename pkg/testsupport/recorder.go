package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

// Draft service methods as recorded by RecordingService.
const (
	MethodAllocate = "Allocate"
	MethodFiles    = "Files"
	MethodDelete   = "Delete"
)

// Call is one recorded draft service invocation.
type Call struct {
	Method string
	Scope  draft.Scope
	Item   draft.ItemID
	File   draft.File
}

// RecordingService wraps a draft.Service and records every call. Setting one
// of the Err fields makes the matching method fail without delegating.
type RecordingService struct {
	Next draft.Service

	AllocateErr error
	FilesErr    error
	DeleteErr   error

	mu    sync.Mutex
	calls []Call
}

var _ draft.Service = (*RecordingService)(nil)

// NewRecordingService wraps next. A nil next uses an empty MemoryStore.
func NewRecordingService(next draft.Service) *RecordingService {
	if next == nil {
		next = draft.NewMemoryStore()
	}
	return &RecordingService{Next: next}
}

func (r *RecordingService) Allocate(ctx context.Context, scope draft.Scope) (draft.ItemID, error) {
	r.record(Call{Method: MethodAllocate, Scope: scope})
	if r.AllocateErr != nil {
		return draft.NoItem, r.AllocateErr
	}
	return r.Next.Allocate(ctx, scope)
}

func (r *RecordingService) Files(ctx context.Context, scope draft.Scope, item draft.ItemID, order draft.Order) ([]draft.File, error) {
	r.record(Call{Method: MethodFiles, Scope: scope, Item: item})
	if r.FilesErr != nil {
		return nil, r.FilesErr
	}
	return r.Next.Files(ctx, scope, item, order)
}

func (r *RecordingService) Delete(ctx context.Context, scope draft.Scope, file draft.File) error {
	r.record(Call{Method: MethodDelete, Scope: scope, Item: file.ItemID, File: file})
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	return r.Next.Delete(ctx, scope, file)
}

// Calls returns a copy of the recorded calls.
func (r *RecordingService) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times method was called.
func (r *RecordingService) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (r *RecordingService) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *RecordingService) record(call Call) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}
