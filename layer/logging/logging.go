// Package logging records every accessor operation. Successful operations
// log at debug with their duration; failures log at warn with the error
// kind so operators can tell a missing entity from a dead backend.
package logging

import (
	"context"
	"time"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
	"github.com/mwantia/usal/log"
)

type LoggingLayer struct {
	// Logger receives the operation records. Nil falls back to a
	// discarding logger.
	Logger *log.Logger
}

func NewLoggingLayer(logger *log.Logger) *LoggingLayer {
	return &LoggingLayer{
		Logger: logger,
	}
}

func (l *LoggingLayer) Apply(inner usal.Accessor) usal.Accessor {
	logger := l.Logger
	if logger == nil {
		logger = log.Discard()
	}

	la := &loggingAccessor{
		Forwarder: usal.NewForwarder(inner),
		log:       logger.Named(inner.Name()),
	}
	la.Bind(la, nil,
		data.OperationRead,
		data.OperationWrite,
		data.OperationStat,
		data.OperationDelete,
		data.OperationList,
		data.OperationScan,
		data.OperationCopy,
		data.OperationRename,
		data.OperationPresign,
		data.OperationBatch,
	)

	return la
}

type loggingAccessor struct {
	usal.Forwarder

	log *log.Logger
}

func (la *loggingAccessor) record(op data.Operation, path string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		la.log.Warn("operation '%s' on '%s' failed after %s: [%s] %v",
			op, path, elapsed, data.KindOf(err), err)
		return
	}

	la.log.Debug("operation '%s' on '%s' completed in %s", op, path, elapsed)
}

func (la *loggingAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	start := time.Now()
	reply, err := la.Inner().Read(ctx, path, args)
	la.record(data.OperationRead, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	start := time.Now()
	reply, err := la.Inner().Write(ctx, path, args)
	la.record(data.OperationWrite, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	start := time.Now()
	reply, err := la.Inner().Stat(ctx, path, args)
	la.record(data.OperationStat, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	start := time.Now()
	reply, err := la.Inner().Delete(ctx, path, args)
	la.record(data.OperationDelete, path, start, err)
	return reply, err
}

func (la *loggingAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	start := time.Now()
	reply, err := la.Inner().List(ctx, path, args)
	la.record(data.OperationList, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	start := time.Now()
	reply, err := la.Inner().Scan(ctx, path, args)
	la.record(data.OperationScan, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	start := time.Now()
	reply, err := la.Inner().Copy(ctx, path, args)
	la.record(data.OperationCopy, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	start := time.Now()
	reply, err := la.Inner().Rename(ctx, path, args)
	la.record(data.OperationRename, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	start := time.Now()
	reply, err := la.Inner().Presign(ctx, path, args)
	la.record(data.OperationPresign, path, start, err)
	return reply, err
}

func (la *loggingAccessor) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	start := time.Now()
	reply, err := usal.ExecuteBatch(ctx, la, args)
	la.record(data.OperationBatch, "", start, err)
	return reply, err
}
