// Package cache keeps recently read entities and their metadata in an
// in-process LRU. Only full, untruncated reads below the entry size limit
// are cached; ranged and metadata-only reads always hit the inner accessor.
package cache

import (
	"bytes"
	"context"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

type CacheLayer struct {
	// MaxEntries bounds the number of cached entities (default: 1024).
	MaxEntries int

	// MaxEntrySize bounds the content size per cached entity in bytes
	// (default: 256 KiB). Larger entities bypass the cache entirely.
	MaxEntrySize int64
}

func NewCacheLayer() *CacheLayer {
	return &CacheLayer{
		MaxEntries:   1024,
		MaxEntrySize: 256 * 1024,
	}
}

func (l *CacheLayer) Apply(inner usal.Accessor) usal.Accessor {
	entries := l.MaxEntries
	if entries <= 0 {
		entries = 1024
	}
	maxSize := l.MaxEntrySize
	if maxSize <= 0 {
		maxSize = 256 * 1024
	}

	store, _ := lru.New[string, cachedEntity](entries)
	ca := &cacheAccessor{
		Forwarder: usal.NewForwarder(inner),
		store:     store,
		maxSize:   maxSize,
	}
	ca.Bind(ca, nil,
		data.OperationRead,
		data.OperationWrite,
		data.OperationStat,
		data.OperationDelete,
		data.OperationCopy,
		data.OperationRename,
	)

	return ca
}

type cachedEntity struct {
	content  []byte
	metadata data.Metadata
}

type cacheAccessor struct {
	usal.Forwarder

	store   *lru.Cache[string, cachedEntity]
	maxSize int64
}

func (ca *cacheAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	path = data.NormalizePath(path)

	_, ranged := args.Range()
	if ranged || args.MetadataOnly {
		return ca.Inner().Read(ctx, path, args)
	}

	if entity, ok := ca.store.Get(path); ok {
		return &data.ReadReply{
			Metadata: entity.metadata,
			Body:     io.NopCloser(bytes.NewReader(entity.content)),
		}, nil
	}

	reply, err := ca.Inner().Read(ctx, path, args)
	if err != nil {
		return nil, err
	}
	if reply.Metadata.Size > ca.maxSize {
		return reply, nil
	}

	content, err := io.ReadAll(reply.Body)
	closeErr := reply.Body.Close()
	if err != nil {
		return nil, data.NewBackendUnavailable(data.OperationRead, path, err)
	}
	if closeErr != nil {
		return nil, data.NewBackendUnavailable(data.OperationRead, path, closeErr)
	}

	if int64(len(content)) <= ca.maxSize {
		ca.store.Add(path, cachedEntity{
			content:  content,
			metadata: reply.Metadata,
		})
	}

	return &data.ReadReply{
		Metadata: reply.Metadata,
		Body:     io.NopCloser(bytes.NewReader(content)),
	}, nil
}

func (ca *cacheAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	path = data.NormalizePath(path)

	if entity, ok := ca.store.Get(path); ok {
		return &data.StatReply{Metadata: entity.metadata}, nil
	}

	return ca.Inner().Stat(ctx, path, args)
}

func (ca *cacheAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	path = data.NormalizePath(path)
	ca.store.Remove(path)

	return ca.Inner().Write(ctx, path, args)
}

func (ca *cacheAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	path = data.NormalizePath(path)
	ca.store.Remove(path)

	return ca.Inner().Delete(ctx, path, args)
}

func (ca *cacheAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	ca.store.Remove(data.NormalizePath(args.To))

	return ca.Inner().Copy(ctx, path, args)
}

func (ca *cacheAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	path = data.NormalizePath(path)
	ca.store.Remove(path)
	ca.store.Remove(data.NormalizePath(args.To))

	return ca.Inner().Rename(ctx, path, args)
}
