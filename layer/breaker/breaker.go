// Package breaker guards an accessor with a circuit breaker. Consecutive
// BackendUnavailable failures trip the circuit; while open, operations fail
// fast with BackendUnavailable instead of hitting the backend.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
	"github.com/sony/gobreaker/v2"
)

type BreakerLayer struct {
	// FailureThreshold trips the circuit after this many consecutive
	// BackendUnavailable failures (default: 5).
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open before probing
	// again (default: 10s).
	OpenTimeout time.Duration
}

func NewBreakerLayer() *BreakerLayer {
	return &BreakerLayer{
		FailureThreshold: 5,
		OpenTimeout:      10 * time.Second,
	}
}

func (l *BreakerLayer) Apply(inner usal.Accessor) usal.Accessor {
	threshold := l.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := l.OpenTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ba := &breakerAccessor{
		Forwarder: usal.NewForwarder(inner),
	}
	ba.circuit = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, data.ErrBackendUnavailable)
		},
	})
	ba.Bind(ba, nil,
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

	return ba
}

type breakerAccessor struct {
	usal.Forwarder

	circuit *gobreaker.CircuitBreaker[any]
}

// execute runs op through the circuit. An open or saturated circuit counts
// as the backend being unavailable.
func execute[R data.Reply](ba *breakerAccessor, op data.Operation, path string, fn func() (R, error)) (R, error) {
	var zero R

	reply, err := ba.circuit.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, data.NewBackendUnavailable(op, path, err)
		}
		return zero, err
	}

	return reply.(R), nil
}

func (ba *breakerAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	return execute(ba, data.OperationRead, path, func() (*data.ReadReply, error) {
		return ba.Inner().Read(ctx, path, args)
	})
}

func (ba *breakerAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	return execute(ba, data.OperationWrite, path, func() (*data.WriteReply, error) {
		return ba.Inner().Write(ctx, path, args)
	})
}

func (ba *breakerAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	return execute(ba, data.OperationStat, path, func() (*data.StatReply, error) {
		return ba.Inner().Stat(ctx, path, args)
	})
}

func (ba *breakerAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	return execute(ba, data.OperationDelete, path, func() (*data.DeleteReply, error) {
		return ba.Inner().Delete(ctx, path, args)
	})
}

func (ba *breakerAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	return execute(ba, data.OperationList, path, func() (*data.ListReply, error) {
		return ba.Inner().List(ctx, path, args)
	})
}

func (ba *breakerAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	return execute(ba, data.OperationScan, path, func() (*data.ScanReply, error) {
		return ba.Inner().Scan(ctx, path, args)
	})
}

func (ba *breakerAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	return execute(ba, data.OperationCopy, path, func() (*data.CopyReply, error) {
		return ba.Inner().Copy(ctx, path, args)
	})
}

func (ba *breakerAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	return execute(ba, data.OperationRename, path, func() (*data.RenameReply, error) {
		return ba.Inner().Rename(ctx, path, args)
	})
}

func (ba *breakerAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	return execute(ba, data.OperationPresign, path, func() (*data.PresignReply, error) {
		return ba.Inner().Presign(ctx, path, args)
	})
}
