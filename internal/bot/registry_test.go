package bot

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsbot/internal/ledger"
)

func testFactory(constructed *int32) func(token string) (*Instance, error) {
	deps := Deps{Store: ledger.NewMemoryStore(), Providers: &fakeProviders{}, AdminID: testAdminID}
	return func(token string) (*Instance, error) {
		atomic.AddInt32(constructed, 1)
		// Widen the construction window so racing Ensure calls overlap.
		time.Sleep(5 * time.Millisecond)
		return newInstance(token, deps), nil
	}
}

func TestRegistryEnsureIdempotent(t *testing.T) {
	var constructed int32
	r := NewRegistry(testFactory(&constructed))

	first, created, err := r.Ensure("token-a")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.Ensure("token-a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&constructed))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEnsureConcurrentSameToken(t *testing.T) {
	var constructed int32
	r := NewRegistry(testFactory(&constructed))

	const callers = 20
	var wg sync.WaitGroup
	instances := make([]*Instance, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			inst, _, err := r.Ensure("shared-token")
			require.NoError(t, err)
			instances[i] = inst
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&constructed))
	for _, inst := range instances {
		assert.Same(t, instances[0], inst)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDistinctTokens(t *testing.T) {
	var constructed int32
	r := NewRegistry(testFactory(&constructed))

	a, _, err := r.Ensure("token-a")
	require.NoError(t, err)
	b, _, err := r.Ensure("token-b")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryFactoryErrorNotCached(t *testing.T) {
	failNext := true
	r := NewRegistry(func(token string) (*Instance, error) {
		if failNext {
			return nil, errors.New("unauthorized")
		}
		return newInstance(token, Deps{Store: ledger.NewMemoryStore(), Providers: &fakeProviders{}}), nil
	})

	_, _, err := r.Ensure("token-a")
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())

	// A later attempt with working credentials succeeds.
	failNext = false
	_, created, err := r.Ensure("token-a")
	require.NoError(t, err)
	assert.True(t, created)
}
