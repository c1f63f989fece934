package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "examsite/pkg/domain-errors"
)

type counterStore struct {
	mu    sync.Mutex
	value int
}

func (c *counterStore) Snapshot() func() {
	c.mu.Lock()
	saved := c.value
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.value = saved
		c.mu.Unlock()
	}
}

func (c *counterStore) add(n int) {
	c.mu.Lock()
	c.value += n
	c.mu.Unlock()
}

func TestMemoryRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit keeps writes", func(t *testing.T) {
		store := &counterStore{}
		m := NewMemory(store)
		require.NoError(t, m.RunInTx(ctx, func(context.Context) error {
			store.add(3)
			return nil
		}))
		assert.Equal(t, 3, store.value)
	})

	t.Run("error restores every participant", func(t *testing.T) {
		a, b := &counterStore{value: 1}, &counterStore{value: 10}
		m := NewMemory(a, b)
		err := m.RunInTx(ctx, func(context.Context) error {
			a.add(5)
			b.add(5)
			return errors.New("second write failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, a.value)
		assert.Equal(t, 10, b.value)
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		store := &counterStore{}
		m := NewMemory(store)
		err := m.RunInTx(ctx, func(ctx context.Context) error {
			return m.RunInTx(ctx, func(context.Context) error {
				store.add(1)
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, store.value)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := NewMemory().RunInTx(cctx, func(context.Context) error { return nil })
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	t.Run("transactions are serialized", func(t *testing.T) {
		store := &counterStore{}
		m := NewMemory(store)
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.RunInTx(ctx, func(context.Context) error {
					store.add(1)
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, store.value)
	})
}
