package memory

import (
	"context"
	"sync"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
	"github.com/tidwall/btree"
)

type object struct {
	content []byte
	meta    data.Metadata
}

// MemoryBackend keeps every entity in process memory. Keys are stored in a
// B-tree so listings come back in lexical order without sorting per call.
type MemoryBackend struct {
	mu sync.RWMutex

	objects *btree.Map[string, *object]
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: btree.NewMap[string, *object](0),
	}
}

// Name returns the identifier name defined for this backend.
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.objects.Clear()
	return nil
}

// GetCapabilities returns the descriptor of supported operations.
func (mb *MemoryBackend) GetCapabilities() *usal.Capabilities {
	return &usal.Capabilities{
		Operations: []data.Operation{
			data.OperationRead,
			data.OperationWrite,
			data.OperationStat,
			data.OperationDelete,
			data.OperationList,
			data.OperationScan,
			data.OperationCopy,
			data.OperationRename,
			data.OperationBatch,
		},
		Variants: []usal.Variant{
			usal.VariantReadRange,
			usal.VariantReadMetadataOnly,
			usal.VariantWriteSizeHint,
			usal.VariantWriteIfNotExists,
			usal.VariantListCursor,
			usal.VariantCopyServerSide,
		},
		MaxBatchSize: 1000,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (mb *MemoryBackend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, mb, args)
}

// Presign is not available for an in-process store.
func (mb *MemoryBackend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	return nil, data.NewUnsupported(data.OperationPresign, path, nil)
}
