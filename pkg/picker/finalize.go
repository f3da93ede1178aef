package picker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

// DiscardReason explains why finalize removed a file.
type DiscardReason string

const (
	DiscardOversize DiscardReason = "oversize"
	DiscardExtra    DiscardReason = "extra"
)

// Discard records a file removed from the draft slot during finalize.
type Discard struct {
	File   draft.File    `json:"file"`
	Reason DiscardReason `json:"reason"`
}

// FinalizeResult is the outcome of reconciling a submitted draft slot.
type FinalizeResult struct {
	ItemID    draft.ItemID `json:"itemid"`
	Kept      *draft.File  `json:"kept,omitempty"`
	Discarded []Discard    `json:"discarded,omitempty"`
}

// Finalize reduces the submitted draft slot to at most one file: the newest,
// provided it fits the size limit. Every other file is deleted. The item id
// is read from submitted under the field name, falling back to Value.
func (f *Field) Finalize(ctx context.Context, rc RenderContext, submitted url.Values) (FinalizeResult, error) {
	item := f.submittedItem(submitted)
	if item == draft.NoItem {
		return FinalizeResult{}, nil
	}

	scope := rc.Scope()
	files, err := f.svc.Files(ctx, scope, item, draft.NewestFirst)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("picker: list draft item %d: %w", item, err)
	}

	result := FinalizeResult{ItemID: item}
	for i, file := range files {
		reason := DiscardExtra
		if i == 0 {
			if !f.exceedsLimit(file.Size) {
				kept := file
				result.Kept = &kept
				continue
			}
			reason = DiscardOversize
		}

		if err := f.svc.Delete(ctx, scope, file); err != nil {
			return result, fmt.Errorf("picker: delete draft file %q: %w", file.Name, err)
		}
		result.Discarded = append(result.Discarded, Discard{File: file, Reason: reason})
		f.opts.Logger.Warn("discarded draft file",
			"field", f.name,
			"item", item,
			"file", file.Name,
			"size", file.Size,
			"reason", reason,
		)
	}
	return result, nil
}

// exceedsLimit reports whether size breaks the field limit. A zero limit and
// UnlimitedBytes never reject.
func (f *Field) exceedsLimit(size int64) bool {
	return f.opts.MaxBytes > 0 && size > f.opts.MaxBytes
}

func (f *Field) submittedItem(submitted url.Values) draft.ItemID {
	if raw := strings.TrimSpace(submitted.Get(f.name)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			return draft.ItemID(parsed)
		}
	}
	return f.value
}
