package data

import (
	"errors"
	"io"
	"time"
)

// Request arguments, one value object per operation. Arguments are treated
// as immutable once handed to an accessor; layers that need to change them
// forward a modified copy.

// OpRead carries the arguments for a read call.
type OpRead struct {
	// Offset of the first byte to read. Zero reads from the start.
	Offset int64

	// Size limits how many bytes are read. Zero or negative reads to the
	// end of the entity.
	Size int64

	// MetadataOnly skips the body; the reply carries metadata and an
	// empty stream.
	MetadataOnly bool
}

func (op OpRead) Validate() error {
	if op.Offset < 0 {
		return NewInvalidArgument(OperationRead, "", errors.New("negative read offset"))
	}
	return nil
}

// Range reports the requested byte range, or ok=false for a full read.
func (op OpRead) Range() (BytesRange, bool) {
	if op.Offset == 0 && op.Size <= 0 {
		return BytesRange{}, false
	}
	return BytesRange{Offset: op.Offset, Size: op.Size}, true
}

// OpWrite carries the arguments for a write call. Body is consumed exactly
// once; SizeHint lets backends preallocate or set Content-Length but is
// not authoritative.
type OpWrite struct {
	Body io.Reader

	SizeHint int64

	ContentType string

	// IfNotExists requests create-only semantics; writing over an
	// existing entity fails with AlreadyExists.
	IfNotExists bool
}

func (op OpWrite) Validate() error {
	if op.Body == nil {
		return NewInvalidArgument(OperationWrite, "", errors.New("nil write body"))
	}
	if op.SizeHint < 0 {
		return NewInvalidArgument(OperationWrite, "", errors.New("negative size hint"))
	}
	return nil
}

// OpStat carries the arguments for a stat call.
type OpStat struct{}

// OpDelete carries the arguments for a delete call.
type OpDelete struct{}

// OpList carries the arguments for a non-recursive listing.
type OpList struct {
	// Cursor continues a previous listing. Empty starts from the
	// beginning.
	Cursor string

	// Limit caps how many entries a single page fetch requests. Zero
	// lets the backend choose.
	Limit int
}

func (op OpList) Validate() error {
	if op.Limit < 0 {
		return NewInvalidArgument(OperationList, "", errors.New("negative list limit"))
	}
	return nil
}

// OpScan carries the arguments for a recursive listing.
type OpScan struct {
	Cursor string

	Limit int

	// Depth bounds recursion below the starting directory. Zero means
	// unbounded.
	Depth int
}

func (op OpScan) Validate() error {
	if op.Limit < 0 {
		return NewInvalidArgument(OperationScan, "", errors.New("negative scan limit"))
	}
	if op.Depth < 0 {
		return NewInvalidArgument(OperationScan, "", errors.New("negative scan depth"))
	}
	return nil
}

// OpCopy carries the arguments for a copy call. To must be normalized.
type OpCopy struct {
	To string
}

func (op OpCopy) Validate() error {
	if op.To == "" {
		return NewInvalidArgument(OperationCopy, "", errors.New("empty copy destination"))
	}
	return nil
}

// OpRename carries the arguments for a rename call. To must be normalized.
type OpRename struct {
	To string
}

func (op OpRename) Validate() error {
	if op.To == "" {
		return NewInvalidArgument(OperationRename, "", errors.New("empty rename destination"))
	}
	return nil
}

// OpPresign carries the arguments for constructing a presigned request
// descriptor. Operation selects the sub-operation the URL will authorize.
type OpPresign struct {
	Operation Operation

	Expire time.Duration
}

func (op OpPresign) Validate() error {
	if op.Operation != OperationRead && op.Operation != OperationWrite {
		return NewInvalidArgument(OperationPresign, "", errors.New("presign supports read and write only"))
	}
	if op.Expire <= 0 {
		return NewInvalidArgument(OperationPresign, "", errors.New("presign expiry must be positive"))
	}
	return nil
}

// BatchOperation is one position inside a batch request. Operation selects
// which argument field is consulted; exactly the matching field must be set.
type BatchOperation struct {
	Operation Operation
	Path      string

	Read   *OpRead
	Write  *OpWrite
	Stat   *OpStat
	Delete *OpDelete
	Copy   *OpCopy
	Rename *OpRename
}

// OpBatch carries an ordered sequence of sub-operations.
type OpBatch struct {
	Operations []BatchOperation
}

func (op OpBatch) Validate() error {
	if len(op.Operations) == 0 {
		return NewInvalidArgument(OperationBatch, "", errors.New("empty batch"))
	}
	for _, sub := range op.Operations {
		switch sub.Operation {
		case OperationRead, OperationWrite, OperationStat, OperationDelete, OperationCopy, OperationRename:
		default:
			return NewInvalidArgument(OperationBatch, sub.Path, errors.New("operation not batchable: "+sub.Operation.String()))
		}
	}
	return nil
}
