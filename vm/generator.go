package vm

import (
	"context"
	"errors"
	"sync"

	"github.com/wippyai/weaver/value"
)

// generator is the iterator returned by a generator method. The frame does
// not run until the first Next.
type generator struct {
	vm      *Machine
	f       *frame
	mu      sync.Mutex
	started bool
	done    bool
}

func (g *generator) Next(ctx context.Context) (value.Value, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return value.None(), false, nil
	}
	g.started = true

	out, v, err := g.vm.run(ctx, g.f)
	if err != nil {
		g.done = true
		return value.None(), false, err
	}
	switch out {
	case outYield:
		return v, true, nil
	case outAwait:
		g.done = true
		return value.None(), false, value.NewException(value.TypeInvalidOp, "await inside a generator")
	}
	g.done = true
	return value.None(), false, nil
}

// Close abandons the sequence. A started frame unwinds through its finally
// blocks, so exit advice still runs; catch handlers are skipped.
func (g *generator) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return nil
	}
	g.done = true
	if !g.started {
		return nil
	}
	g.vm.log.Debug("abandoning sequence")
	if !g.vm.dispatch(g.f, errAbandoned, g.f.block, 0) {
		return nil
	}
	out, _, err := g.vm.run(ctx, g.f)
	if errors.Is(err, errAbandoned) {
		return nil
	}
	if err == nil && out == outYield {
		return value.NewException(value.TypeInvalidOp, "yield while closing a sequence")
	}
	return err
}
