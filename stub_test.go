package usal

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/mwantia/usal/data"
)

// stubAccessor is a minimal map-backed accessor for exercising the
// forwarding and batch machinery without pulling in a real backend.
type stubAccessor struct {
	mu sync.Mutex

	objects map[string][]byte
	caps    *Capabilities

	// calls counts invocations per operation.
	calls map[data.Operation]int
}

func newStubAccessor() *stubAccessor {
	return &stubAccessor{
		objects: make(map[string][]byte),
		calls:   make(map[data.Operation]int),
		caps: &Capabilities{
			Operations: []data.Operation{
				data.OperationRead,
				data.OperationWrite,
				data.OperationStat,
				data.OperationDelete,
				data.OperationBatch,
			},
			Variants:     []Variant{VariantReadRange, VariantWriteIfNotExists},
			MaxBatchSize: 8,
		},
	}
}

func (sa *stubAccessor) count(op data.Operation) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.calls[op]++
}

func (sa *stubAccessor) counted(op data.Operation) int {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.calls[op]
}

func (*stubAccessor) Name() string { return "stub" }

func (*stubAccessor) Open(ctx context.Context) error { return nil }

func (*stubAccessor) Close(ctx context.Context) error { return nil }

func (sa *stubAccessor) GetCapabilities() *Capabilities { return sa.caps }

func (sa *stubAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	sa.count(data.OperationRead)

	sa.mu.Lock()
	content, exists := sa.objects[path]
	sa.mu.Unlock()
	if !exists {
		return nil, data.NewNotFound(data.OperationRead, path, nil)
	}

	return &data.ReadReply{
		Metadata: data.Metadata{Mode: data.EntryModeFile, Size: int64(len(content))},
		Body:     io.NopCloser(bytes.NewReader(content)),
	}, nil
}

func (sa *stubAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	sa.count(data.OperationWrite)

	if err := args.Validate(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(args.Body)
	if err != nil {
		return nil, data.NewBackendUnavailable(data.OperationWrite, path, err)
	}

	sa.mu.Lock()
	defer sa.mu.Unlock()
	if args.IfNotExists {
		if _, exists := sa.objects[path]; exists {
			return nil, data.NewAlreadyExists(data.OperationWrite, path, nil)
		}
	}
	sa.objects[path] = content

	return &data.WriteReply{Written: int64(len(content))}, nil
}

func (sa *stubAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	sa.count(data.OperationStat)

	sa.mu.Lock()
	content, exists := sa.objects[path]
	sa.mu.Unlock()
	if !exists {
		return nil, data.NewNotFound(data.OperationStat, path, nil)
	}

	return &data.StatReply{
		Metadata: data.Metadata{Mode: data.EntryModeFile, Size: int64(len(content))},
	}, nil
}

func (sa *stubAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	sa.count(data.OperationDelete)

	sa.mu.Lock()
	defer sa.mu.Unlock()
	if _, exists := sa.objects[path]; !exists {
		return nil, data.NewNotFound(data.OperationDelete, path, nil)
	}
	delete(sa.objects, path)

	return &data.DeleteReply{}, nil
}

func (sa *stubAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	sa.count(data.OperationList)
	return nil, data.NewUnsupported(data.OperationList, path, nil)
}

func (sa *stubAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	sa.count(data.OperationScan)
	return nil, data.NewUnsupported(data.OperationScan, path, nil)
}

func (sa *stubAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	sa.count(data.OperationCopy)
	return nil, data.NewUnsupported(data.OperationCopy, path, nil)
}

func (sa *stubAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	sa.count(data.OperationRename)
	return nil, data.NewUnsupported(data.OperationRename, path, nil)
}

func (sa *stubAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	sa.count(data.OperationPresign)
	return nil, data.NewUnsupported(data.OperationPresign, path, nil)
}

func (sa *stubAccessor) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	sa.count(data.OperationBatch)
	return ExecuteBatch(ctx, sa, args)
}
