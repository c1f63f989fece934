package tx

import (
	"context"
	"sync"

	dErrors "examsite/pkg/domain-errors"
)

// Snapshotter is implemented by in-memory stores that take part in a Memory
// transaction. Snapshot copies the current state and returns a function that
// puts it back.
type Snapshotter interface {
	Snapshot() (restore func())
}

type memoryTxKey struct{}

// Memory serializes transactions over a set of in-memory stores. A failed
// function restores every participant to its state before the call.
type Memory struct {
	mu           sync.Mutex
	participants []Snapshotter
}

func NewMemory(participants ...Snapshotter) *Memory {
	return &Memory{participants: participants}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.participants))
	for _, p := range m.participants {
		restores = append(restores, p.Snapshot())
	}

	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
