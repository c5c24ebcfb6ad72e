package usal

import (
	"context"
	"slices"

	"github.com/mwantia/usal/data"
)

// Forwarder is the layered-accessor forwarding core. A layer embeds a
// Forwarder, overrides only the operation methods it cares about, and every
// other operation is delegated to the inner accessor unchanged. Forwarding
// is a plain method call per hop; no per-hop allocation happens beyond what
// the operation's own arguments and reply require.
//
// Layers that override an operation but still want the inner behaviour as
// part of their own logic call through Inner() explicitly; forwarding is
// never hidden.
type Forwarder struct {
	inner Accessor

	// self is the outermost face of the wrapping accessor. The default
	// Batch dispatcher routes sub-operations through it so overrides on
	// individual operations are honored inside batches.
	self Accessor

	caps       *Capabilities
	overridden []data.Operation
}

// NewForwarder wraps inner with pure forwarding behaviour. Until Bind is
// called the capability descriptor is inherited unchanged.
func NewForwarder(inner Accessor) Forwarder {
	return Forwarder{
		inner: inner,
		caps:  inner.GetCapabilities(),
	}
}

// Bind registers the wrapping accessor and the subset of operations it
// overrides, then computes the merged capability descriptor once.
//
// own declares the layer's capability for the overridden operations; the
// layer's declaration wins there, everything else inherits the inner
// accessor. Passing nil for own keeps the inner accessor's declaration for
// the overridden operations too (the transparent wrap-and-forward case).
func (f *Forwarder) Bind(self Accessor, own *Capabilities, overridden ...data.Operation) {
	f.self = self
	f.overridden = overridden

	inner := f.inner.GetCapabilities()
	if own == nil {
		own = transparentSubset(inner, overridden)
	}

	f.caps = MergeCapabilities(own, overridden, inner)
}

// transparentSubset restricts a descriptor to the given operations and
// their variants.
func transparentSubset(caps *Capabilities, ops []data.Operation) *Capabilities {
	subset := &Capabilities{MaxBatchSize: caps.MaxBatchSize}
	for _, op := range caps.Operations {
		if slices.Contains(ops, op) {
			subset.Operations = append(subset.Operations, op)
		}
	}
	for _, v := range caps.Variants {
		if slices.Contains(ops, v.Operation()) {
			subset.Variants = append(subset.Variants, v)
		}
	}

	return subset
}

// Inner returns the wrapped accessor, the explicit forwarding primitive
// for overriding layers.
func (f *Forwarder) Inner() Accessor {
	return f.inner
}

// target is the accessor batches dispatch through. Falls back to the inner
// accessor when the forwarder was never bound.
func (f *Forwarder) target() Accessor {
	if f.self != nil {
		return f.self
	}
	return f.inner
}

// unsupported enforces the descriptor invariant: an operation the merged
// descriptor declares unsupported fails fast instead of silently
// forwarding.
func (f *Forwarder) unsupported(op data.Operation, path string) error {
	return data.NewUnsupported(op, path, nil)
}

func (f *Forwarder) Name() string {
	return f.inner.Name()
}

func (f *Forwarder) Open(ctx context.Context) error {
	return f.inner.Open(ctx)
}

func (f *Forwarder) Close(ctx context.Context) error {
	return f.inner.Close(ctx)
}

func (f *Forwarder) GetCapabilities() *Capabilities {
	return f.caps
}

func (f *Forwarder) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if !f.caps.Supports(data.OperationRead) {
		return nil, f.unsupported(data.OperationRead, path)
	}
	return f.inner.Read(ctx, path, args)
}

func (f *Forwarder) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if !f.caps.Supports(data.OperationWrite) {
		return nil, f.unsupported(data.OperationWrite, path)
	}
	return f.inner.Write(ctx, path, args)
}

func (f *Forwarder) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if !f.caps.Supports(data.OperationStat) {
		return nil, f.unsupported(data.OperationStat, path)
	}
	return f.inner.Stat(ctx, path, args)
}

func (f *Forwarder) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	if !f.caps.Supports(data.OperationDelete) {
		return nil, f.unsupported(data.OperationDelete, path)
	}
	return f.inner.Delete(ctx, path, args)
}

func (f *Forwarder) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if !f.caps.Supports(data.OperationList) {
		return nil, f.unsupported(data.OperationList, path)
	}
	return f.inner.List(ctx, path, args)
}

func (f *Forwarder) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if !f.caps.Supports(data.OperationScan) {
		return nil, f.unsupported(data.OperationScan, path)
	}
	return f.inner.Scan(ctx, path, args)
}

func (f *Forwarder) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if !f.caps.Supports(data.OperationCopy) {
		return nil, f.unsupported(data.OperationCopy, path)
	}
	return f.inner.Copy(ctx, path, args)
}

func (f *Forwarder) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if !f.caps.Supports(data.OperationRename) {
		return nil, f.unsupported(data.OperationRename, path)
	}
	return f.inner.Rename(ctx, path, args)
}

func (f *Forwarder) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	if !f.caps.Supports(data.OperationPresign) {
		return nil, f.unsupported(data.OperationPresign, path)
	}
	return f.inner.Presign(ctx, path, args)
}

// Batch dispatches every sub-operation through the wrapping accessor's own
// typed operation methods, so per-operation overrides apply inside batches
// without layers special-casing Batch.
func (f *Forwarder) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	if !f.caps.Supports(data.OperationBatch) {
		return nil, f.unsupported(data.OperationBatch, "")
	}
	return ExecuteBatch(ctx, f.target(), args)
}
