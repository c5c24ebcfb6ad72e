package sqlite

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mwantia/usal/data"
)

func openBackend(t *testing.T) *SQLiteBackend {
	t.Helper()

	backend, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	if err := backend.Open(t.Context()); err != nil {
		t.Fatalf("failed to open backend: %v", err)
	}
	t.Cleanup(func() {
		backend.Close(context.Background())
	})

	return backend
}

func write(t *testing.T, backend *SQLiteBackend, path, content string) {
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
	if _, err := backend.Stat(t.Context(), "a/b.txt", data.OpStat{}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestReadRangeAndMetadataOnly(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "0123456789")

	reply, err := backend.Read(t.Context(), "a.txt", data.OpRead{Offset: 2, Size: 3})
	if err != nil {
		t.Fatalf("failed to read range: %v", err)
	}
	if body := readBody(t, reply); body != "234" {
		t.Errorf("expected '234', got %q", body)
	}

	reply, err = backend.Read(t.Context(), "a.txt", data.OpRead{MetadataOnly: true})
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	if reply.Metadata.Size != 10 {
		t.Errorf("expected metadata size 10, got %d", reply.Metadata.Size)
	}
	if body := readBody(t, reply); body != "" {
		t.Errorf("expected empty body, got %q", body)
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

	reply, err := backend.Read(t.Context(), "a.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if body := readBody(t, reply); body != "first" {
		t.Errorf("expected original content, got %q", body)
	}
}

func TestWriteContentType(t *testing.T) {
	backend := openBackend(t)

	if _, err := backend.Write(t.Context(), "a.json", data.OpWrite{
		Body:        strings.NewReader("{}"),
		ContentType: "application/json",
	}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	stat, err := backend.Stat(t.Context(), "a.json", data.OpStat{})
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if stat.Metadata.ContentType != "application/json" {
		t.Errorf("expected content type to round-trip, got %q", stat.Metadata.ContentType)
	}
}

func TestStatDirectory(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/b/c.txt", "x")

	stat, err := backend.Stat(t.Context(), "a/b/", data.OpStat{})
	if err != nil {
		t.Fatalf("failed to stat implicit directory: %v", err)
	}
	if stat.Metadata.Mode != data.EntryModeDir {
		t.Error("expected directory mode")
	}

	if _, err := backend.Stat(t.Context(), "missing/", data.OpStat{}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound for empty directory, got %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	backend := openBackend(t)

	_, err := backend.Delete(t.Context(), "missing.txt", data.OpDelete{})
	if !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestListCollapsesDirectories(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/one.txt", "1")
	write(t, backend, "a/sub/two.txt", "2")
	write(t, backend, "a/sub/three.txt", "3")

	reply, err := backend.List(t.Context(), "a/", data.OpList{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	entries, err := data.ListAll(t.Context(), reply.Entries)
	if err != nil {
		t.Fatalf("failed to drain: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "a/one.txt" {
		t.Errorf("expected 'a/one.txt', got %q", entries[0].Path)
	}
	if entries[1].Path != "a/sub/" || entries[1].Metadata.Mode != data.EntryModeDir {
		t.Errorf("expected single collapsed marker 'a/sub/', got %q", entries[1].Path)
	}
}

func TestScanDepth(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a/one.txt", "1")
	write(t, backend, "a/sub/deep/two.txt", "2")

	reply, err := backend.Scan(t.Context(), "a/", data.OpScan{Depth: 2})
	if err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	entries, err := data.ListAll(t.Context(), reply.Entries)
	if err != nil {
		t.Fatalf("failed to drain: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Path != "a/sub/deep/" {
		t.Errorf("expected collapsed marker 'a/sub/deep/', got %q", entries[1].Path)
	}
}

func TestCopyServerSide(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "content")

	copied, err := backend.Copy(t.Context(), "a.txt", data.OpCopy{To: "b.txt"})
	if err != nil {
		t.Fatalf("failed to copy: %v", err)
	}
	if copied.ETag == "" {
		t.Error("expected copy to produce an etag")
	}

	reply, err := backend.Read(t.Context(), "b.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read copy: %v", err)
	}
	if body := readBody(t, reply); body != "content" {
		t.Errorf("expected 'content', got %q", body)
	}

	if _, err := backend.Copy(t.Context(), "missing.txt", data.OpCopy{To: "c.txt"}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound for missing source, got %v", err)
	}
}

func TestRenameReplacesDestination(t *testing.T) {
	backend := openBackend(t)
	write(t, backend, "a.txt", "new")
	write(t, backend, "b.txt", "old")

	if _, err := backend.Rename(t.Context(), "a.txt", data.OpRename{To: "b.txt"}); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}

	if _, err := backend.Stat(t.Context(), "a.txt", data.OpStat{}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected rename source to vanish, got %v", err)
	}

	reply, err := backend.Read(t.Context(), "b.txt", data.OpRead{})
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if body := readBody(t, reply); body != "new" {
		t.Errorf("expected destination replaced with 'new', got %q", body)
	}

	if _, err := backend.Rename(t.Context(), "missing.txt", data.OpRename{To: "c.txt"}); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected NotFound for missing source, got %v", err)
	}
}

func TestBatchThroughBackend(t *testing.T) {
	backend := openBackend(t)

	reply, err := backend.Batch(t.Context(), data.OpBatch{
		Operations: []data.BatchOperation{
			{Operation: data.OperationWrite, Path: "a.txt", Write: &data.OpWrite{Body: strings.NewReader("x")}},
			{Operation: data.OperationCopy, Path: "a.txt", Copy: &data.OpCopy{To: "b.txt"}},
			{Operation: data.OperationDelete, Path: "missing.txt"},
		},
	})
	if err != nil {
		t.Fatalf("failed to execute batch: %v", err)
	}

	if reply.Results[0].Err != nil || reply.Results[1].Err != nil {
		t.Error("expected write and copy to succeed")
	}
	if !errors.Is(reply.Results[2].Err, data.ErrNotFound) {
		t.Errorf("expected NotFound at position 2, got %v", reply.Results[2].Err)
	}
	if aggregate := reply.AggregateError(); !errors.Is(aggregate, data.ErrAggregate) {
		t.Errorf("expected aggregate error, got %v", aggregate)
	}
}
