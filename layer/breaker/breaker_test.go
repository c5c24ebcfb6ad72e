package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/backend/memory"
	"github.com/mwantia/usal/data"
)

// outageAccessor fails every stat with BackendUnavailable while down.
type outageAccessor struct {
	usal.Forwarder

	down  bool
	calls int
}

func newOutage(inner usal.Accessor) *outageAccessor {
	oa := &outageAccessor{
		Forwarder: usal.NewForwarder(inner),
		down:      true,
	}
	oa.Bind(oa, nil, data.OperationStat)
	return oa
}

func (oa *outageAccessor) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	oa.calls++
	if oa.down {
		return nil, data.NewBackendUnavailable(data.OperationStat, path, errors.New("backend down"))
	}
	return oa.Inner().Stat(ctx, path, args)
}

func testLayer(threshold uint32) *BreakerLayer {
	layer := NewBreakerLayer()
	layer.FailureThreshold = threshold
	layer.OpenTimeout = 20 * time.Millisecond
	return layer
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	outage := newOutage(memory.NewMemoryBackend())
	accessor := testLayer(3).Apply(outage)

	for range 3 {
		if _, err := accessor.Stat(t.Context(), "/", data.OpStat{}); !errors.Is(err, data.ErrBackendUnavailable) {
			t.Fatalf("expected BackendUnavailable, got %v", err)
		}
	}

	// Circuit is open now; the backend is no longer reached.
	if _, err := accessor.Stat(t.Context(), "/", data.OpStat{}); !errors.Is(err, data.ErrBackendUnavailable) {
		t.Fatalf("expected fail-fast BackendUnavailable, got %v", err)
	}
	if outage.calls != 3 {
		t.Errorf("expected the open circuit to skip the backend, got %d calls", outage.calls)
	}
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	outage := newOutage(memory.NewMemoryBackend())
	accessor := testLayer(2).Apply(outage)

	for range 2 {
		accessor.Stat(t.Context(), "/", data.OpStat{})
	}

	// Backend recovers while the circuit is open.
	outage.down = false
	time.Sleep(40 * time.Millisecond)

	if _, err := accessor.Stat(t.Context(), "/", data.OpStat{}); err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
}

func TestBreakerIgnoresTerminalKinds(t *testing.T) {
	backend := memory.NewMemoryBackend()
	accessor := testLayer(2).Apply(backend)

	// NotFound is not an outage signal and must never trip the circuit.
	for range 5 {
		if _, err := accessor.Stat(t.Context(), "missing.txt", data.OpStat{}); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	}

	if _, err := accessor.Stat(t.Context(), "/", data.OpStat{}); err != nil {
		t.Errorf("expected the circuit to stay closed, got %v", err)
	}
}
