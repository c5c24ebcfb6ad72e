package usal

import (
	"slices"

	"github.com/mwantia/usal/data"
)

// Variant is a finer-grained capability flag below the operation level.
type Variant string

const (
	VariantReadRange        Variant = "read_range"
	VariantReadMetadataOnly Variant = "read_metadata_only"
	VariantWriteSizeHint    Variant = "write_size_hint"
	VariantWriteIfNotExists Variant = "write_if_not_exists"
	VariantListCursor       Variant = "list_cursor"
	VariantCopyServerSide   Variant = "copy_server_side"
	VariantPresignRead      Variant = "presign_read"
	VariantPresignWrite     Variant = "presign_write"
)

// variantOperations maps every variant onto the operation it refines, so
// capability merging can resolve variants through the same override rule
// as their parent operation.
var variantOperations = map[Variant]data.Operation{
	VariantReadRange:        data.OperationRead,
	VariantReadMetadataOnly: data.OperationRead,
	VariantWriteSizeHint:    data.OperationWrite,
	VariantWriteIfNotExists: data.OperationWrite,
	VariantListCursor:       data.OperationList,
	VariantCopyServerSide:   data.OperationCopy,
	VariantPresignRead:      data.OperationPresign,
	VariantPresignWrite:     data.OperationPresign,
}

// Operation returns the operation this variant refines.
func (v Variant) Operation() data.Operation {
	return variantOperations[v]
}

// Capabilities describes what an accessor supports. Computed once when the
// accessor is constructed and read-only thereafter; a rebuilt chain gets a
// fresh descriptor.
type Capabilities struct {
	Operations []data.Operation `json:"operations"`
	Variants   []Variant        `json:"variants,omitempty"`

	// MaxBatchSize hints the largest accepted batch. Zero means no
	// declared limit.
	MaxBatchSize int `json:"max_batch_size,omitempty"`
}

// Supports reports whether the accessor can execute the operation at all.
// A supported operation may still fail at runtime for other reasons.
func (c *Capabilities) Supports(op data.Operation) bool {
	return slices.Contains(c.Operations, op)
}

// SupportsVariant reports whether the finer-grained variant is available.
func (c *Capabilities) SupportsVariant(v Variant) bool {
	return slices.Contains(c.Variants, v)
}

// CanPresign reports whether presigned request construction is available.
func (c *Capabilities) CanPresign() bool {
	return c.Supports(data.OperationPresign)
}

// MergeCapabilities computes the effective descriptor of a layer-produced
// accessor. For every operation in overridden the layer's own declaration
// wins; everything else inherits the inner accessor unchanged. The merge is
// associative, so querying a deep chain matches querying it one layer at a
// time.
func MergeCapabilities(own *Capabilities, overridden []data.Operation, inner *Capabilities) *Capabilities {
	if len(overridden) == 0 {
		return inner
	}
	if own == nil {
		own = &Capabilities{}
	}

	merged := &Capabilities{}
	for _, op := range data.Operations() {
		declared := inner.Supports(op)
		if slices.Contains(overridden, op) {
			declared = own.Supports(op)
		}
		if declared {
			merged.Operations = append(merged.Operations, op)
		}
	}

	for v, op := range variantOperations {
		declared := inner.SupportsVariant(v)
		if slices.Contains(overridden, op) {
			declared = own.SupportsVariant(v)
		}
		if declared {
			merged.Variants = append(merged.Variants, v)
		}
	}
	slices.Sort(merged.Variants)

	merged.MaxBatchSize = inner.MaxBatchSize
	if slices.Contains(overridden, data.OperationBatch) {
		merged.MaxBatchSize = own.MaxBatchSize
	}

	return merged
}

// SupportAll builds a descriptor declaring plain support for the given
// operations, without variants. Layers that wrap-and-forward use this for
// the operations they override.
func SupportAll(ops ...data.Operation) *Capabilities {
	return &Capabilities{Operations: ops}
}
