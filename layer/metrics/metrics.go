// Package metrics emits counters and latency samples per accessor
// operation. Failures are counted separately with the error kind as a
// label, so dashboards can split missing entities from outages.
package metrics

import (
	"context"
	"time"

	gometrics "github.com/armon/go-metrics"
	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

type MetricsLayer struct {
	// Prefix is the leading metric key segment (default: "usal").
	Prefix string

	// Sink receives the samples. Nil uses the process-global default.
	Sink *gometrics.Metrics
}

func NewMetricsLayer() *MetricsLayer {
	return &MetricsLayer{
		Prefix: "usal",
	}
}

func (l *MetricsLayer) Apply(inner usal.Accessor) usal.Accessor {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "usal"
	}
	sink := l.Sink
	if sink == nil {
		sink = gometrics.Default()
	}

	ma := &metricsAccessor{
		Forwarder: usal.NewForwarder(inner),
		prefix:    prefix,
		sink:      sink,
		backend:   gometrics.Label{Name: "backend", Value: inner.Name()},
	}
	ma.Bind(ma, nil,
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

	return ma
}

type metricsAccessor struct {
	usal.Forwarder

	prefix  string
	sink    *gometrics.Metrics
	backend gometrics.Label
}

func (ma *metricsAccessor) observe(op data.Operation, start time.Time, err error) {
	labels := []gometrics.Label{
		ma.backend,
		{Name: "operation", Value: string(op)},
	}

	ma.sink.IncrCounterWithLabels([]string{ma.prefix, "requests"}, 1, labels)
	ma.sink.MeasureSinceWithLabels([]string{ma.prefix, "latency"}, start, labels)

	if err != nil {
		ma.sink.IncrCounterWithLabels([]string{ma.prefix, "errors"}, 1,
			append(labels, gometrics.Label{Name: "kind", Value: string(data.KindOf(err))}))
	}
}

func (ma *metricsAccessor) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Read(ctx, path, args)
	ma.observe(data.OperationRead, start, err)
	return reply, err
}

func (ma *metricsAccessor) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Write(ctx, path, args)
	ma.observe(data.OperationWrite, start, err)
	return reply, err
}

func (ma *metricsAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Stat(ctx, path, args)
	ma.observe(data.OperationStat, start, err)
	return reply, err
}

func (ma *metricsAccessor) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Delete(ctx, path, args)
	ma.observe(data.OperationDelete, start, err)
	return reply, err
}

func (ma *metricsAccessor) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	start := time.Now()
	reply, err := ma.Inner().List(ctx, path, args)
	ma.observe(data.OperationList, start, err)
	return reply, err
}

func (ma *metricsAccessor) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Scan(ctx, path, args)
	ma.observe(data.OperationScan, start, err)
	return reply, err
}

func (ma *metricsAccessor) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Copy(ctx, path, args)
	ma.observe(data.OperationCopy, start, err)
	return reply, err
}

func (ma *metricsAccessor) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Rename(ctx, path, args)
	ma.observe(data.OperationRename, start, err)
	return reply, err
}

func (ma *metricsAccessor) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	start := time.Now()
	reply, err := ma.Inner().Presign(ctx, path, args)
	ma.observe(data.OperationPresign, start, err)
	return reply, err
}
