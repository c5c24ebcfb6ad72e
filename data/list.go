package data

import (
	"context"
	"io"
)

// Lister produces (path, metadata) entries on demand. A lister is finite
// and not restartable: once Next returned io.EOF it stays exhausted.
// Cursor exposes the continuation token for backends with server-side
// pagination; passing it into a fresh List call resumes where the previous
// page left off.
type Lister interface {
	// Next returns the next entry, or io.EOF when the listing is
	// exhausted.
	Next(ctx context.Context) (*Entry, error)

	// Cursor returns the continuation token after the last entry
	// handed out, or an empty string when the listing is complete
	// and no further page exists.
	Cursor() string

	Close() error
}

// ListAll drains a lister into a slice and closes it.
func ListAll(ctx context.Context, lister Lister) ([]*Entry, error) {
	defer lister.Close()

	var entries []*Entry
	for {
		entry, err := lister.Next(ctx)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}

		entries = append(entries, entry)
	}
}

type sliceLister struct {
	entries []*Entry
	index   int
	cursor  string

	// truncated marks a page cut short by a limit. Exhausting such a
	// page still yields a cursor, because entries remain beyond it.
	truncated bool
}

// NewSliceLister wraps an eagerly collected entry slice into a Lister.
// Entries double as cursors: the token after entry i is the path of
// entry i, so continuation skips everything up to and including it.
func NewSliceLister(entries []*Entry) Lister {
	return &sliceLister{entries: entries}
}

// NewSliceListerAfter is NewSliceLister resumed past the given cursor.
func NewSliceListerAfter(entries []*Entry, cursor string) Lister {
	return NewSliceListerPage(entries, cursor, 0)
}

// NewSliceListerPage resumes past the cursor first and serves at most
// limit entries (0 for no limit). Resumption lands on the first entry
// ordered after the cursor, so a deletion between pages skips forward
// instead of restarting the listing. The entries must be in ascending
// path order.
func NewSliceListerPage(entries []*Entry, cursor string, limit int) Lister {
	if cursor != "" {
		start := len(entries)
		for i, entry := range entries {
			if entry.Path > cursor {
				start = i
				break
			}
		}
		entries = entries[start:]
	}

	truncated := false
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
		truncated = true
	}

	return &sliceLister{entries: entries, truncated: truncated}
}

func (sl *sliceLister) Next(ctx context.Context) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyContext(OperationList, "", err)
	}

	if sl.index >= len(sl.entries) {
		return nil, io.EOF
	}

	entry := sl.entries[sl.index]
	sl.index++
	sl.cursor = entry.Path

	return entry, nil
}

func (sl *sliceLister) Cursor() string {
	if sl.index >= len(sl.entries) && !sl.truncated {
		return ""
	}

	return sl.cursor
}

func (sl *sliceLister) Close() error {
	sl.entries = nil
	return nil
}
