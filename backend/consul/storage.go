package consul

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/usal/data"
)

// buildKey maps a normalized path onto the prefixed Consul KV key.
func (cb *ConsulBackend) buildKey(path string) string {
	return data.BuildAbsPath(cb.config.Prefix, path)
}

func (cb *ConsulBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}
	if _, ok := args.Range(); ok {
		return nil, data.NewUnsupported(data.OperationRead, path, errors.New("range reads not available"))
	}

	pair, _, err := cb.kv.Get(cb.buildKey(path), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}
	if pair == nil {
		return nil, data.NewNotFound(data.OperationRead, path, nil)
	}

	content := pair.Value
	if args.MetadataOnly {
		content = nil
	}

	return &data.ReadReply{
		Metadata: data.Metadata{
			Mode: data.EntryModeFile,
			Size: int64(len(pair.Value)),
		},
		Body: io.NopCloser(bytes.NewReader(content)),
	}, nil
}

func (cb *ConsulBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationWrite, path, errors.New("cannot write a directory"))
	}

	content, err := io.ReadAll(io.LimitReader(args.Body, maxValueSize+1))
	if err != nil {
		if ce := data.ClassifyContext(data.OperationWrite, path, err); ce != nil {
			return nil, ce
		}
		return nil, data.NewBackendUnavailable(data.OperationWrite, path, err)
	}
	if len(content) > maxValueSize {
		return nil, data.NewInvalidArgument(data.OperationWrite, path,
			fmt.Errorf("entity exceeds the %d byte KV limit", maxValueSize))
	}
	if err := ctx.Err(); err != nil {
		return nil, data.ClassifyContext(data.OperationWrite, path, err)
	}

	key := cb.buildKey(path)
	writeOpts := (&api.WriteOptions{}).WithContext(ctx)

	if args.IfNotExists {
		// CAS with index 0 only succeeds when the key does not exist.
		ok, _, err := cb.kv.CAS(&api.KVPair{Key: key, Value: content, ModifyIndex: 0}, writeOpts)
		if err != nil {
			return nil, classify(data.OperationWrite, path, err)
		}
		if !ok {
			return nil, data.NewAlreadyExists(data.OperationWrite, path, nil)
		}
	} else {
		if _, err := cb.kv.Put(&api.KVPair{Key: key, Value: content}, writeOpts); err != nil {
			return nil, classify(data.OperationWrite, path, err)
		}
	}

	return &data.WriteReply{Written: int64(len(content))}, nil
}

func (cb *ConsulBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	opts := (&api.QueryOptions{}).WithContext(ctx)

	if data.IsDirPath(path) {
		keys, _, err := cb.kv.Keys(cb.buildKey(path), "", opts)
		if err != nil {
			return nil, classify(data.OperationStat, path, err)
		}
		if len(keys) == 0 {
			return nil, data.NewNotFound(data.OperationStat, path, nil)
		}
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	pair, _, err := cb.kv.Get(cb.buildKey(path), opts)
	if err != nil {
		return nil, classify(data.OperationStat, path, err)
	}
	if pair == nil {
		return nil, data.NewNotFound(data.OperationStat, path, nil)
	}

	return &data.StatReply{
		Metadata: data.Metadata{
			Mode: data.EntryModeFile,
			Size: int64(len(pair.Value)),
		},
	}, nil
}

func (cb *ConsulBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	key := cb.buildKey(path)
	opts := (&api.QueryOptions{}).WithContext(ctx)

	// Consul deletes are idempotent; check first so a missing entity
	// surfaces as NotFound like every other backend.
	pair, _, err := cb.kv.Get(key, opts)
	if err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}
	if pair == nil {
		return nil, data.NewNotFound(data.OperationDelete, path, nil)
	}

	if _, err := cb.kv.Delete(key, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}

	return &data.DeleteReply{}, nil
}

func (cb *ConsulBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := cb.queryPrefix(ctx, data.OperationList, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, 1)
	return &data.ListReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (cb *ConsulBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := cb.queryPrefix(ctx, data.OperationScan, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, args.Depth)
	return &data.ScanReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

// queryPrefix lists every KV entry below a directory path in key order.
func (cb *ConsulBackend) queryPrefix(ctx context.Context, op data.Operation, path string) ([]*data.Entry, error) {
	prefix := cb.buildKey(path)
	if path == "/" {
		prefix = cb.buildKey("/")
	}

	pairs, _, err := cb.kv.List(prefix, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, classify(op, path, err)
	}

	rootPrefix := data.NormalizeRoot(cb.config.Prefix)

	entries := make([]*data.Entry, 0, len(pairs))
	for _, pair := range pairs {
		entries = append(entries, &data.Entry{
			Path: trimRoot("/"+pair.Key, rootPrefix),
			Metadata: data.Metadata{
				Mode: data.EntryModeFile,
				Size: int64(len(pair.Value)),
			},
		})
	}

	return entries, nil
}

func trimRoot(key, root string) string {
	if root == "/" {
		return key[1:]
	}

	trimmed := key
	if len(trimmed) >= len(root) && trimmed[:len(root)] == root {
		trimmed = trimmed[len(root):]
	} else {
		trimmed = trimmed[1:]
	}

	return trimmed
}
