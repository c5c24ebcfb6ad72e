package data

import (
	"context"
	"io"
	"testing"
)

func testEntries(paths ...string) []*Entry {
	entries := make([]*Entry, 0, len(paths))
	for _, path := range paths {
		entries = append(entries, &Entry{
			Path:     path,
			Metadata: Metadata{Mode: EntryModeFile},
		})
	}
	return entries
}

func TestSliceListerDrains(t *testing.T) {
	lister := NewSliceLister(testEntries("a.txt", "b.txt", "c.txt"))

	entries, err := ListAll(t.Context(), lister)
	if err != nil {
		t.Fatalf("failed to drain lister: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Path != "a.txt" || entries[2].Path != "c.txt" {
		t.Error("entries came back out of order")
	}
}

func TestSliceListerEOFIsSticky(t *testing.T) {
	lister := NewSliceLister(testEntries("a.txt"))

	if _, err := lister.Next(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 3 {
		if _, err := lister.Next(t.Context()); err != io.EOF {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	}
}

func TestSliceListerCursor(t *testing.T) {
	entries := testEntries("a.txt", "b.txt", "c.txt")
	lister := NewSliceLister(entries)

	if cursor := lister.Cursor(); cursor != "" {
		t.Errorf("expected empty cursor before iteration, got %q", cursor)
	}

	if _, err := lister.Next(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cursor := lister.Cursor()
	if cursor != "a.txt" {
		t.Fatalf("expected cursor 'a.txt', got %q", cursor)
	}

	// Resuming past the cursor continues with the remaining entries.
	resumed := NewSliceListerAfter(entries, cursor)
	remaining, err := ListAll(t.Context(), resumed)
	if err != nil {
		t.Fatalf("failed to drain resumed lister: %v", err)
	}
	if len(remaining) != 2 || remaining[0].Path != "b.txt" {
		t.Errorf("expected resumption at 'b.txt', got %+v", remaining)
	}
}

func TestSliceListerCursorExhausted(t *testing.T) {
	lister := NewSliceLister(testEntries("a.txt"))

	if _, err := ListAll(t.Context(), lister); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursor := lister.Cursor(); cursor != "" {
		t.Errorf("expected empty cursor after exhaustion, got %q", cursor)
	}
}

func TestSliceListerPageKeepsCursorWhenTruncated(t *testing.T) {
	entries := testEntries("a.txt", "b.txt", "c.txt", "d.txt")

	page := NewSliceListerPage(entries, "", 2)
	first, err := ListAll(t.Context(), page)
	if err != nil {
		t.Fatalf("failed to drain first page: %v", err)
	}
	if len(first) != 2 || first[1].Path != "b.txt" {
		t.Fatalf("expected first page to end at 'b.txt', got %+v", first)
	}

	// The limit cut the page short, so exhaustion must still hand out
	// a continuation token.
	cursor := page.Cursor()
	if cursor != "b.txt" {
		t.Fatalf("expected cursor 'b.txt' after truncated page, got %q", cursor)
	}

	second := NewSliceListerPage(entries, cursor, 2)
	rest, err := ListAll(t.Context(), second)
	if err != nil {
		t.Fatalf("failed to drain second page: %v", err)
	}
	if len(rest) != 2 || rest[0].Path != "c.txt" || rest[1].Path != "d.txt" {
		t.Fatalf("expected second page [c.txt d.txt], got %+v", rest)
	}
	if cursor := second.Cursor(); cursor != "" {
		t.Errorf("expected empty cursor once the listing completed, got %q", cursor)
	}
}

func TestSliceListerPageResumesPastMissingCursor(t *testing.T) {
	// The cursor entry was deleted between pages; resumption continues
	// at the next entry in order instead of restarting from the top.
	entries := testEntries("a.txt", "c.txt", "d.txt")

	resumed := NewSliceListerPage(entries, "b.txt", 0)
	rest, err := ListAll(t.Context(), resumed)
	if err != nil {
		t.Fatalf("failed to drain resumed lister: %v", err)
	}
	if len(rest) != 2 || rest[0].Path != "c.txt" {
		t.Fatalf("expected resumption at 'c.txt', got %+v", rest)
	}
}

func TestSliceListerCancellation(t *testing.T) {
	lister := NewSliceLister(testEntries("a.txt", "b.txt"))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := lister.Next(ctx)
	if KindOf(err) != KindCancelled {
		t.Errorf("expected Cancelled, got %v", err)
	}
}
