// Package timeout bounds every accessor operation with a deadline. For
// streaming replies the derived context stays alive until the body or
// lister is closed, so consumption is covered by the same deadline.
package timeout

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

type TimeoutLayer struct {
	// Timeout bounds a single operation including stream consumption
	// (default: 30s).
	Timeout time.Duration
}

func NewTimeoutLayer(timeout time.Duration) *TimeoutLayer {
	return &TimeoutLayer{
		Timeout: timeout,
	}
}

func (l *TimeoutLayer) Apply(inner usal.Accessor) usal.Accessor {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ta := &timeoutAccessor{
		Forwarder: usal.NewForwarder(inner),
		timeout:   timeout,
	}
	ta.Bind(ta, nil,
		data.OperationRead,
		data.OperationWrite,
		data.OperationStat,
		data.OperationDelete,
		data.OperationList,
		data.OperationScan,
		data.OperationCopy,
		data.OperationRename,
		data.OperationPresign,
	)

	return ta
}

type timeoutAccessor struct {
	usal.Forwarder

	timeout time.Duration
}

func (ta *timeoutAccessor) classify(op data.Operation, path string, err error) error {
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}
	return err
}

func (ta *timeoutAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)

	reply, err := ta.Inner().Read(tctx, path, args)
	if err != nil {
		cancel()
		return nil, ta.classify(data.OperationRead, path, err)
	}

	return &data.ReadReply{
		Metadata: reply.Metadata,
		Body:     &cancelBody{ReadCloser: reply.Body, cancel: cancel},
	}, nil
}

func (ta *timeoutAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Write(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationWrite, path, err)
	}
	return reply, nil
}

func (ta *timeoutAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Stat(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationStat, path, err)
	}
	return reply, nil
}

func (ta *timeoutAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Delete(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationDelete, path, err)
	}
	return reply, nil
}

func (ta *timeoutAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)

	reply, err := ta.Inner().List(tctx, path, args)
	if err != nil {
		cancel()
		return nil, ta.classify(data.OperationList, path, err)
	}

	return &data.ListReply{
		Entries: &cancelLister{Lister: reply.Entries, cancel: cancel},
	}, nil
}

func (ta *timeoutAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)

	reply, err := ta.Inner().Scan(tctx, path, args)
	if err != nil {
		cancel()
		return nil, ta.classify(data.OperationScan, path, err)
	}

	return &data.ScanReply{
		Entries: &cancelLister{Lister: reply.Entries, cancel: cancel},
	}, nil
}

func (ta *timeoutAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Copy(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationCopy, path, err)
	}
	return reply, nil
}

func (ta *timeoutAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Rename(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationRename, path, err)
	}
	return reply, nil
}

func (ta *timeoutAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	tctx, cancel := context.WithTimeout(ctx, ta.timeout)
	defer cancel()

	reply, err := ta.Inner().Presign(tctx, path, args)
	if err != nil {
		return nil, ta.classify(data.OperationPresign, path, err)
	}
	return reply, nil
}

type cancelBody struct {
	io.ReadCloser

	cancel context.CancelFunc
}

func (cb *cancelBody) Close() error {
	defer cb.cancel()
	return cb.ReadCloser.Close()
}

type cancelLister struct {
	data.Lister

	cancel context.CancelFunc
}

func (cl *cancelLister) Close() error {
	defer cl.cancel()
	return cl.Lister.Close()
}
