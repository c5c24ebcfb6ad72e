package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mwantia/usal/data"
)

func openBackend(t *testing.T) *MemoryBackend {
	t.Helper()

	backend := NewMemoryBackend()
	if err := backend.Open(t.Context()); err != nil {
		t.Fatalf("failed to open backend: %v", err)
	}
	t.Cleanup(func() {
		backend.Close(context.Background())
	})

	return backend
}

func write(t *testing.T, backend *MemoryBackend, path, content string) {
	t.Helper()

	if _, err := backend.Write(t.Context(), path, data.OpWrite{Body: strings.NewReader(content)}); err != nil {
		t.Fatalf("failed to write '%s': %v", path, err)
	}
}

func readBody(t *testing.T, reply *data.ReadReply) string {
	t.Helper()

	content, err := io.ReadAll(reply.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	reply.Body.Close()

	return string(content)
}

func TestWriteStatReadDelete(t *testing.T) {
	backend := openBackend(t)

	write(t, backend, "a/b.txt", "hi")

	stat, err := backend.Stat(t.Context(), "a/b.txt", data.OpStat{})
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if stat.Metadata.Size != 2 {
		t.Errorf("expected size 2, got %d", stat.Metadata.Size)
	}
	if stat.Metadata.Mode != data.EntryModeFile {
		t.Errorf("expected file mode, got %v", stat.Metadata.Mode)
	}
	if stat.Metadata.ETag == "" {
		t.Error("expected a non-empty etag")
	}

	reply, err := backend.Read(t.Context(), "a/b.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if body := readBody(t, reply); body != "hi" {
		t.Errorf("expected 'hi', got %q", body)
	}

	if _, err := backend.Delete(t.Context(), "a/b.txt", data.OpDelete{}); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	_, err = backend.Stat(t.Context(), "a/b.txt", data.OpStat{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestReadRange(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "0123456789")

	cases := []struct {
		name     string
		args     data.OpRead
		expected string
	}{
		{"middle", data.OpRead{Offset: 2, Size: 3}, "234"},
		{"tail", data.OpRead{Offset: 7}, "789"},
		{"oversized", data.OpRead{Offset: 8, Size: 100}, "89"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply, err := backend.Read(t.Context(), "a.txt", tc.args)
			if err != nil {
				t.Fatalf("failed to read: %v", err)
			}
			if body := readBody(t, reply); body != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, body)
			}
		})
	}

	t.Run("offset_beyond_size", func(t *testing.T) {
		_, err := backend.Read(t.Context(), "a.txt", data.OpRead{Offset: 100})
		if !errors.Is(err, data.ErrInvalidArgument) {
			t.Errorf("expected InvalidArgument, got %v", err)
		}
	})
}

func TestReadMetadataOnly(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "hello")

	reply, err := backend.Read(t.Context(), "a.txt", data.OpRead{MetadataOnly: true})
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if reply.Metadata.Size != 5 {
		t.Errorf("expected metadata size 5, got %d", reply.Metadata.Size)
	}
	if body := readBody(t, reply); body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestReadMissing(t *testing.T) {
	backend := openBackend(t)

	_, err := backend.Read(t.Context(), "missing.txt", data.OpRead{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestWriteIfNotExists(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "first")

	_, err := backend.Write(t.Context(), "a.txt", data.OpWrite{
		Body:        strings.NewReader("second"),
		IfNotExists: true,
	})
	if !errors.Is(err, data.ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	// The original entity is untouched.
	reply, err := backend.Read(t.Context(), "a.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if body := readBody(t, reply); body != "first" {
		t.Errorf("expected 'first', got %q", body)
	}
}

func TestWriteOverwriteChangesETag(t *testing.T) {
	backend := openBackend(t)

	first, err := backend.Write(t.Context(), "a.txt", data.OpWrite{Body: strings.NewReader("one")})
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	second, err := backend.Write(t.Context(), "a.txt", data.OpWrite{Body: strings.NewReader("two")})
	if err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	if first.ETag == second.ETag {
		t.Error("expected overwrite to produce a fresh etag")
	}
}

func TestWriteCancelledLeavesNoPartialEntity(t *testing.T) {
	backend := openBackend(t)

	ctx, cancel := context.WithCancel(t.Context())
	body := &cancellingReader{cancel: cancel, content: strings.NewReader("partial content")}

	_, err := backend.Write(ctx, "a.txt", data.OpWrite{Body: body})
	if !errors.Is(err, data.ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}

	_, err = backend.Stat(t.Context(), "a.txt", data.OpStat{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected no partial entity, got %v", err)
	}
}

// cancellingReader cancels its context after the first chunk, then fails
// with the context error like a real aborted stream.
type cancellingReader struct {
	cancel  context.CancelFunc
	content *strings.Reader
	fired   bool
}

func (cr *cancellingReader) Read(p []byte) (int, error) {
	if cr.fired {
		return 0, context.Canceled
	}
	cr.fired = true
	cr.cancel()

	if len(p) > 4 {
		p = p[:4]
	}
	return cr.content.Read(p)
}

func TestStatRootAndImplicitDirectory(t *testing.T) {
	backend := openBackend(t)

	root, err := backend.Stat(t.Context(), "/", data.OpStat{})
	if err != nil {
		t.Fatalf("failed to stat root: %v", err)
	}
	if root.Metadata.Mode != data.EntryModeDir {
		t.Error("expected root to report a directory")
	}

	write(t, backend, "a/b/c.txt", "x")

	dir, err := backend.Stat(t.Context(), "a/b/", data.OpStat{})
	if err != nil {
		t.Fatalf("failed to stat implicit directory: %v", err)
	}
	if dir.Metadata.Mode != data.EntryModeDir {
		t.Error("expected implicit directory mode")
	}

	_, err = backend.Stat(t.Context(), "a/missing/", data.OpStat{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound for empty directory, got %v", err)
	}
}

func TestDeleteMissingAndNonEmptyDirectory(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/b.txt", "x")

	_, err := backend.Delete(t.Context(), "missing.txt", data.OpDelete{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}

	_, err = backend.Delete(t.Context(), "a/", data.OpDelete{})
	if !errors.Is(err, data.ErrInvalidArgument) {
		t.Errorf("expected InvalidArgument for non-empty directory, got %v", err)
	}
}

func listPaths(t *testing.T, entries []*data.Entry) []string {
	t.Helper()

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

func TestListDirectChildren(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/one.txt", "1")
	write(t, backend, "a/sub/two.txt", "2")
	write(t, backend, "b.txt", "3")

	reply, err := backend.List(t.Context(), "a/", data.OpList{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	entries, err := data.ListAll(t.Context(), reply.Entries)
	if err != nil {
		t.Fatalf("failed to drain: %v", err)
	}

	paths := listPaths(t, entries)
	if len(paths) != 2 || paths[0] != "a/one.txt" || paths[1] != "a/sub/" {
		t.Errorf("expected [a/one.txt a/sub/], got %v", paths)
	}
}

func TestListCursorResumes(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "1")
	write(t, backend, "b.txt", "2")
	write(t, backend, "c.txt", "3")

	reply, err := backend.List(t.Context(), "/", data.OpList{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	defer reply.Entries.Close()

	first, err := reply.Entries.Next(t.Context())
	if err != nil {
		t.Fatalf("failed to advance: %v", err)
	}

	resumed, err := backend.List(t.Context(), "/", data.OpList{Cursor: reply.Entries.Cursor()})
	if err != nil {
		t.Fatalf("failed to resume: %v", err)
	}
	entries, err := data.ListAll(t.Context(), resumed.Entries)
	if err != nil {
		t.Fatalf("failed to drain: %v", err)
	}

	if len(entries) != 2 || entries[0].Path == first.Path {
		t.Errorf("expected resumption past %q, got %v", first.Path, listPaths(t, entries))
	}
}

func TestListPagination(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "1")
	write(t, backend, "b.txt", "2")
	write(t, backend, "c.txt", "3")
	write(t, backend, "d.txt", "4")

	reply, err := backend.List(t.Context(), "/", data.OpList{Limit: 2})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	first, err := data.ListAll(t.Context(), reply.Entries)
	if err != nil {
		t.Fatalf("failed to drain first page: %v", err)
	}
	if paths := listPaths(t, first); len(paths) != 2 || paths[1] != "b.txt" {
		t.Fatalf("expected first page [a.txt b.txt], got %v", paths)
	}

	cursor := reply.Entries.Cursor()
	if cursor != "b.txt" {
		t.Fatalf("expected cursor 'b.txt' after the limited page, got %q", cursor)
	}

	reply, err = backend.List(t.Context(), "/", data.OpList{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("failed to list second page: %v", err)
	}
	second, err := data.ListAll(t.Context(), reply.Entries)
	if err != nil {
		t.Fatalf("failed to drain second page: %v", err)
	}
	if paths := listPaths(t, second); len(paths) != 2 || paths[0] != "c.txt" || paths[1] != "d.txt" {
		t.Fatalf("expected second page [c.txt d.txt], got %v", paths)
	}
	if cursor := reply.Entries.Cursor(); cursor != "" {
		t.Errorf("expected empty cursor once listing completed, got %q", cursor)
	}
}

func TestScanDepth(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/one.txt", "1")
	write(t, backend, "a/sub/two.txt", "2")
	write(t, backend, "a/sub/deep/three.txt", "3")

	t.Run("unbounded", func(t *testing.T) {
		reply, err := backend.Scan(t.Context(), "a/", data.OpScan{})
		if err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		entries, err := data.ListAll(t.Context(), reply.Entries)
		if err != nil {
			t.Fatalf("failed to drain: %v", err)
		}
		if len(entries) != 3 {
			t.Errorf("expected 3 entries, got %v", listPaths(t, entries))
		}
	})

	t.Run("depth_two", func(t *testing.T) {
		reply, err := backend.Scan(t.Context(), "a/", data.OpScan{Depth: 2})
		if err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		entries, err := data.ListAll(t.Context(), reply.Entries)
		if err != nil {
			t.Fatalf("failed to drain: %v", err)
		}

		paths := listPaths(t, entries)
		if len(paths) != 3 || paths[2] != "a/sub/deep/" {
			t.Errorf("expected collapsed marker at depth 2, got %v", paths)
		}
	})
}

func TestCopyAndRename(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "content")

	copied, err := backend.Copy(t.Context(), "a.txt", data.OpCopy{To: "b.txt"})
	if err != nil {
		t.Fatalf("failed to copy: %v", err)
	}
	if copied.ETag == "" {
		t.Error("expected copy to produce an etag")
	}

	// Source survives a copy.
	if _, err := backend.Stat(t.Context(), "a.txt", data.OpStat{}); err != nil {
		t.Errorf("expected source to survive copy: %v", err)
	}

	if _, err := backend.Rename(t.Context(), "b.txt", data.OpRename{To: "c.txt"}); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}

	if _, err := backend.Stat(t.Context(), "b.txt", data.OpStat{}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected rename source to vanish, got %v", err)
	}

	reply, err := backend.Read(t.Context(), "c.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read renamed entity: %v", err)
	}
	if body := readBody(t, reply); body != "content" {
		t.Errorf("expected 'content', got %q", body)
	}
}

func TestBatchThroughBackend(t *testing.T) {
	backend := openBackend(t)

	reply, err := backend.Batch(t.Context(), data.OpBatch{
		Operations: []data.BatchOperation{
			{Operation: data.OperationWrite, Path: "a.txt", Write: &data.OpWrite{Body: strings.NewReader("x")}},
			{Operation: data.OperationStat, Path: "a.txt"},
			{Operation: data.OperationStat, Path: "missing.txt"},
		},
	})
	if err != nil {
		t.Fatalf("failed to execute batch: %v", err)
	}

	if reply.Results[0].Err != nil || reply.Results[1].Err != nil {
		t.Error("expected first two positions to succeed")
	}
	if !errors.Is(reply.Results[2].Err, data.ErrNotFound) {
		t.Errorf("expected NotFound at position 2, got %v", reply.Results[2].Err)
	}
}

func TestPresignUnsupported(t *testing.T) {
	backend := openBackend(t)

	_, err := backend.Presign(t.Context(), "a.txt", data.OpPresign{})
	if !errors.Is(err, data.ErrUnsupported) {
		t.Errorf("expected Unsupported, got %v", err)
	}
}
