package data

import (
	"io"
	"net/http"
	"time"
)

// Reply is the marker interface satisfied by every typed operation result.
// It keeps batch outcomes typed without a shared dynamic dispatch tag.
type Reply interface {
	reply()
}

// StatReply is the result of a stat call.
type StatReply struct {
	Metadata Metadata
}

// ReadReply is the result of a read call. Body must be closed by the
// caller; resources are released on Close even after a partial read.
type ReadReply struct {
	Metadata Metadata
	Body     io.ReadCloser
}

// WriteReply acknowledges a completed write.
type WriteReply struct {
	Written int64
	ETag    string
}

// DeleteReply acknowledges a completed delete.
type DeleteReply struct{}

// CopyReply acknowledges a completed copy.
type CopyReply struct {
	ETag string
}

// RenameReply acknowledges a completed rename.
type RenameReply struct{}

// ListReply is the result of a list call. Entries produces entries on
// demand and is not restartable once partially consumed.
type ListReply struct {
	Entries Lister
}

// ScanReply is the result of a recursive scan call.
type ScanReply struct {
	Entries Lister
}

// PresignReply is a fully-formed request descriptor. Executing it is the
// caller's concern; constructing it never touches backend state.
type PresignReply struct {
	Method string
	URL    string
	Header http.Header
	Expire time.Time
}

// BatchResult is the outcome of one batch position. Exactly one of Reply
// and Err is set.
type BatchResult struct {
	Operation Operation
	Path      string

	Reply Reply
	Err   error
}

// BatchReply carries per-position outcomes in request order, one-to-one
// with the batch request.
type BatchReply struct {
	Results []BatchResult
}

// AggregateError joins every failed position into a single Aggregate
// classified error, or returns nil when all positions succeeded.
func (r *BatchReply) AggregateError() error {
	errs := Errors{}
	for _, result := range r.Results {
		errs.Add(result.Err)
	}

	joined := errs.Errors()
	if joined == nil {
		return nil
	}

	return NewAggregate(OperationBatch, "", joined)
}

func (*StatReply) reply()    {}
func (*ReadReply) reply()    {}
func (*WriteReply) reply()   {}
func (*DeleteReply) reply()  {}
func (*CopyReply) reply()    {}
func (*RenameReply) reply()  {}
func (*ListReply) reply()    {}
func (*ScanReply) reply()    {}
func (*PresignReply) reply() {}
func (*BatchReply) reply()   {}
