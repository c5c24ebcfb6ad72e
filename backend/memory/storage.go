package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/usal/data"
)

func (mb *MemoryBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.objects.Get(path)
	if !exists {
		return nil, data.NewNotFound(data.OperationRead, path, nil)
	}

	if args.MetadataOnly {
		return &data.ReadReply{
			Metadata: obj.meta,
			Body:     io.NopCloser(bytes.NewReader(nil)),
		}, nil
	}

	content := obj.content
	if r, ok := args.Range(); ok {
		if r.Offset > int64(len(content)) {
			return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("range offset beyond entity size"))
		}
		content = content[r.Offset:]
		if r.Size > 0 && r.Size < int64(len(content)) {
			content = content[:r.Size]
		}
	}

	// Copy so a later write to the same key cannot mutate an open stream.
	buffer := make([]byte, len(content))
	copy(buffer, content)

	return &data.ReadReply{
		Metadata: obj.meta,
		Body:     io.NopCloser(bytes.NewReader(buffer)),
	}, nil
}

func (mb *MemoryBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationWrite, path, errors.New("cannot write a directory"))
	}

	// Buffer the full body before touching state, so cancellation can
	// never leave a partial entity visible.
	content, err := io.ReadAll(args.Body)
	if err != nil {
		if ce := data.ClassifyContext(data.OperationWrite, path, err); ce != nil {
			return nil, ce
		}
		return nil, data.NewBackendUnavailable(data.OperationWrite, path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, data.ClassifyContext(data.OperationWrite, path, err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if args.IfNotExists {
		if _, exists := mb.objects.Get(path); exists {
			return nil, data.NewAlreadyExists(data.OperationWrite, path, nil)
		}
	}

	etag := uuid.NewString()
	mb.objects.Set(path, &object{
		content: content,
		meta: data.Metadata{
			Mode:        data.EntryModeFile,
			Size:        int64(len(content)),
			ModifyTime:  time.Now(),
			ContentType: args.ContentType,
			ETag:        etag,
		},
	})

	return &data.WriteReply{
		Written: int64(len(content)),
		ETag:    etag,
	}, nil
}

func (mb *MemoryBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	// Root always reports a directory.
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if obj, exists := mb.objects.Get(path); exists {
		return &data.StatReply{Metadata: obj.meta}, nil
	}

	// A directory exists implicitly once anything lives below it.
	if data.IsDirPath(path) && mb.hasChildren(path) {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	return nil, data.NewNotFound(data.OperationStat, path, nil)
}

func (mb *MemoryBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if data.IsDirPath(path) && mb.hasChildren(path) {
		return nil, data.NewInvalidArgument(data.OperationDelete, path, errors.New("directory not empty"))
	}

	if _, exists := mb.objects.Get(path); !exists {
		return nil, data.NewNotFound(data.OperationDelete, path, nil)
	}

	mb.objects.Delete(path)
	return &data.DeleteReply{}, nil
}

func (mb *MemoryBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	entries := mb.collect(path, 1)
	return &data.ListReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (mb *MemoryBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	entries := mb.collect(path, args.Depth)
	return &data.ScanReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (mb *MemoryBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(path)
	if !exists {
		return nil, data.NewNotFound(data.OperationCopy, path, nil)
	}

	duplicate := &object{
		content: append([]byte(nil), obj.content...),
		meta:    obj.meta,
	}
	duplicate.meta.ETag = uuid.NewString()
	duplicate.meta.ModifyTime = time.Now()
	mb.objects.Set(args.To, duplicate)

	return &data.CopyReply{ETag: duplicate.meta.ETag}, nil
}

func (mb *MemoryBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(path)
	if !exists {
		return nil, data.NewNotFound(data.OperationRename, path, nil)
	}

	mb.objects.Set(args.To, obj)
	mb.objects.Delete(path)

	return &data.RenameReply{}, nil
}

// prefixOf maps a directory path onto the key prefix shared by everything
// below it. Root maps to the empty prefix.
func prefixOf(path string) string {
	if path == "/" {
		return ""
	}
	return path
}

func (mb *MemoryBackend) hasChildren(path string) bool {
	prefix := prefixOf(path)
	found := false
	mb.objects.Ascend(prefix, func(key string, _ *object) bool {
		if key == path {
			return true
		}
		found = strings.HasPrefix(key, prefix)
		return false
	})

	return found
}

// collect gathers entries below a directory path. depth 1 returns direct
// children; depth 0 is unbounded. Implicit directories appear once as
// synthesized dir-marker entries.
func (mb *MemoryBackend) collect(path string, depth int) []*data.Entry {
	prefix := prefixOf(path)

	var entries []*data.Entry
	seen := make(map[string]struct{})

	mb.objects.Ascend(prefix, func(key string, obj *object) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		if key == path {
			return true
		}

		relative := strings.TrimPrefix(key, prefix)
		levels := strings.Count(strings.TrimSuffix(relative, "/"), "/") + 1

		if depth > 0 && levels > depth {
			// Entry is deeper than requested; surface its ancestor
			// directory at the cut-off level instead.
			parts := strings.SplitN(relative, "/", depth+1)
			marker := prefix + strings.Join(parts[:depth], "/") + "/"
			if _, ok := seen[marker]; !ok {
				seen[marker] = struct{}{}
				entries = append(entries, &data.Entry{
					Path:     marker,
					Metadata: data.Metadata{Mode: data.EntryModeDir},
				})
			}
			return true
		}

		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			entries = append(entries, &data.Entry{Path: key, Metadata: obj.meta})
		}
		return true
	})

	return entries
}
