// Package retry wraps an accessor with bounded exponential backoff for
// transient failures. Only BackendUnavailable results are retried; every
// other error kind passes through on the first attempt.
package retry

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

type RetryLayer struct {
	// MaxRetries bounds the attempts after the first try.
	MaxRetries uint64

	// InitialInterval seeds the backoff (default: 50ms).
	InitialInterval time.Duration

	// MaxInterval caps the backoff between attempts (default: 2s).
	MaxInterval time.Duration
}

func NewRetryLayer(maxRetries uint64) *RetryLayer {
	return &RetryLayer{
		MaxRetries:      maxRetries,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (l *RetryLayer) Apply(inner usal.Accessor) usal.Accessor {
	ra := &retryAccessor{
		Forwarder: usal.NewForwarder(inner),
		layer:     l,
	}
	ra.Bind(ra, nil,
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

	return ra
}

type retryAccessor struct {
	usal.Forwarder

	layer *RetryLayer
}

// retry runs attempt until it succeeds, fails terminally, or the budget is
// exhausted. The final error is whatever the last attempt produced; a bare
// context error is classified against the operation and path that was cut
// short.
func (ra *retryAccessor) retry(ctx context.Context, op data.Operation, path string, attempt func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = ra.layer.InitialInterval
	policy.MaxInterval = ra.layer.MaxInterval

	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if errors.Is(err, data.ErrBackendUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, ra.layer.MaxRetries), ctx))
	if err == nil {
		return nil
	}

	if _, ok := data.Classified(err); ok {
		return err
	}
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}
	return err
}

func (ra *retryAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	var reply *data.ReadReply
	err := ra.retry(ctx, data.OperationRead, path, func() error {
		var err error
		reply, err = ra.Inner().Read(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	seeker, replayable := args.Body.(io.Seeker)
	if !replayable {
		// A one-shot body cannot be re-sent; a failed attempt must
		// surface instead of silently writing a truncated entity.
		return ra.Inner().Write(ctx, path, args)
	}

	var reply *data.WriteReply
	err := ra.retry(ctx, data.OperationWrite, path, func() error {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(data.NewInvalidArgument(data.OperationWrite, path, err))
		}

		var err error
		reply, err = ra.Inner().Write(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	var reply *data.StatReply
	err := ra.retry(ctx, data.OperationStat, path, func() error {
		var err error
		reply, err = ra.Inner().Stat(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	var reply *data.DeleteReply
	err := ra.retry(ctx, data.OperationDelete, path, func() error {
		var err error
		reply, err = ra.Inner().Delete(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	var reply *data.ListReply
	err := ra.retry(ctx, data.OperationList, path, func() error {
		var err error
		reply, err = ra.Inner().List(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	var reply *data.ScanReply
	err := ra.retry(ctx, data.OperationScan, path, func() error {
		var err error
		reply, err = ra.Inner().Scan(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	var reply *data.CopyReply
	err := ra.retry(ctx, data.OperationCopy, path, func() error {
		var err error
		reply, err = ra.Inner().Copy(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	var reply *data.RenameReply
	err := ra.retry(ctx, data.OperationRename, path, func() error {
		var err error
		reply, err = ra.Inner().Rename(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (ra *retryAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	var reply *data.PresignReply
	err := ra.retry(ctx, data.OperationPresign, path, func() error {
		var err error
		reply, err = ra.Inner().Presign(ctx, path, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}
