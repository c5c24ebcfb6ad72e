package usal

import (
	"context"
	"errors"
)

// Layer transforms an inner accessor into a wrapping accessor. Applying a
// layer never mutates the inner accessor's observable behaviour; the inner
// accessor stays independently usable. Any private state a layer keeps
// (cache entries, counters) belongs to the produced wrapper alone.
type Layer interface {
	Apply(inner Accessor) Accessor
}

// LayerFunc adapts a plain function to the Layer interface.
type LayerFunc func(inner Accessor) Accessor

func (f LayerFunc) Apply(inner Accessor) Accessor {
	return f(inner)
}

// Composition errors. These surface at construction time only and are
// fatal to the chain being built.
var (
	ErrNilBackend = errors.New("usal: nil backend accessor")
	ErrNilLayer   = errors.New("usal: nil layer in composition")
)

// Compose wraps a backend with the given layers, first layer outermost,
// and opens the resulting chain. Open failures tear the chain back down
// and abort composition.
func Compose(ctx context.Context, backend Accessor, layers ...Layer) (Accessor, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	accessor := backend
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] == nil {
			return nil, ErrNilLayer
		}
		accessor = layers[i].Apply(accessor)
	}

	if err := accessor.Open(ctx); err != nil {
		return nil, err
	}

	return accessor, nil
}
