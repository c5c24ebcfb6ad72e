// Package ratelimit throttles accessor operations through a shared token
// bucket. Waiting honors the caller context; an expired wait surfaces as a
// Cancelled error without touching the inner accessor.
package ratelimit

import (
	"context"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
	"golang.org/x/time/rate"
)

type RateLimitLayer struct {
	// OpsPerSecond is the sustained operation rate (default: 100).
	OpsPerSecond float64

	// Burst is the bucket capacity (default: OpsPerSecond rounded up,
	// minimum 1).
	Burst int
}

func NewRateLimitLayer(opsPerSecond float64) *RateLimitLayer {
	return &RateLimitLayer{
		OpsPerSecond: opsPerSecond,
	}
}

func (l *RateLimitLayer) Apply(inner usal.Accessor) usal.Accessor {
	ops := l.OpsPerSecond
	if ops <= 0 {
		ops = 100
	}
	burst := l.Burst
	if burst <= 0 {
		burst = int(ops)
		if burst < 1 {
			burst = 1
		}
	}

	ra := &rateLimitAccessor{
		Forwarder: usal.NewForwarder(inner),
		limiter:   rate.NewLimiter(rate.Limit(ops), burst),
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

type rateLimitAccessor struct {
	usal.Forwarder

	limiter *rate.Limiter
}

func (ra *rateLimitAccessor) wait(ctx context.Context, op data.Operation, path string) error {
	if err := ra.limiter.Wait(ctx); err != nil {
		return data.NewCancelled(op, path, err)
	}
	return nil
}

func (ra *rateLimitAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := ra.wait(ctx, data.OperationRead, path); err != nil {
		return nil, err
	}
	return ra.Inner().Read(ctx, path, args)
}

func (ra *rateLimitAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := ra.wait(ctx, data.OperationWrite, path); err != nil {
		return nil, err
	}
	return ra.Inner().Write(ctx, path, args)
}

func (ra *rateLimitAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if err := ra.wait(ctx, data.OperationStat, path); err != nil {
		return nil, err
	}
	return ra.Inner().Stat(ctx, path, args)
}

func (ra *rateLimitAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	if err := ra.wait(ctx, data.OperationDelete, path); err != nil {
		return nil, err
	}
	return ra.Inner().Delete(ctx, path, args)
}

func (ra *rateLimitAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := ra.wait(ctx, data.OperationList, path); err != nil {
		return nil, err
	}
	return ra.Inner().List(ctx, path, args)
}

func (ra *rateLimitAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := ra.wait(ctx, data.OperationScan, path); err != nil {
		return nil, err
	}
	return ra.Inner().Scan(ctx, path, args)
}

func (ra *rateLimitAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := ra.wait(ctx, data.OperationCopy, path); err != nil {
		return nil, err
	}
	return ra.Inner().Copy(ctx, path, args)
}

func (ra *rateLimitAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := ra.wait(ctx, data.OperationRename, path); err != nil {
		return nil, err
	}
	return ra.Inner().Rename(ctx, path, args)
}

func (ra *rateLimitAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	if err := ra.wait(ctx, data.OperationPresign, path); err != nil {
		return nil, err
	}
	return ra.Inner().Presign(ctx, path, args)
}
