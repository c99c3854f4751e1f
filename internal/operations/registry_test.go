package operations_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecli/internal/operations"
	opstest "scorecli/internal/operations/testutil"
)

func TestRegistry(t *testing.T) {
	registry := operations.NewRegistry()

	assert.Equal(t, 0, registry.Count())
	steps := registry.List()
	assert.NotNil(t, steps, "List() should return empty slice, not nil")
	assert.Empty(t, steps)
}

func TestRegistryRegister(t *testing.T) {
	registry := operations.NewRegistry()

	step1 := opstest.CreateSuccessfulStep("s20", "Step 1")
	step2 := opstest.CreateSuccessfulStep("z20", "Step 2")
	step3 := opstest.CreateSuccessfulStep("gap", "Step 3")

	require.NoError(t, registry.Register(step1))
	require.NoError(t, registry.Register(step2))
	require.NoError(t, registry.Register(step3))

	assert.Equal(t, 3, registry.Count())

	got, err := registry.Get("s20")
	require.NoError(t, err)
	assert.Same(t, step1, got)

	assert.Equal(t, []string{"s20", "z20", "gap"}, registry.ListIDs())
}

func TestRegistryRegisterErrors(t *testing.T) {
	registry := operations.NewRegistry()

	err := registry.Register(nil)
	assert.ErrorContains(t, err, "nil Step")

	err = registry.Register(&opstest.MockStep{IDValue: "", NameValue: "Empty ID Step"})
	assert.ErrorContains(t, err, "ID cannot be empty")

	step := opstest.CreateSuccessfulStep("dup", "Duplicate")
	require.NoError(t, registry.Register(step))
	assert.ErrorContains(t, registry.Register(step), "already registered")
}

func TestRegistryUnregister(t *testing.T) {
	registry := operations.NewRegistry()
	for _, id := range []string{"s20", "z20", "gap"} {
		require.NoError(t, registry.Register(opstest.CreateSuccessfulStep(id, id)))
	}

	require.NoError(t, registry.Unregister("z20"))
	assert.False(t, registry.Has("z20"))
	assert.Equal(t, []string{"s20", "gap"}, registry.ListIDs())

	assert.ErrorContains(t, registry.Unregister("z20"), "not found")
	_, err := registry.Get("z20")
	assert.Error(t, err)

	registry.Clear()
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.ListIDs())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := operations.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("step%d", i)
			assert.NoError(t, registry.Register(opstest.CreateSuccessfulStep(id, id)))
		}(i)
		go func() {
			defer wg.Done()
			_ = registry.List()
			_ = registry.Count()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, registry.Count())
	assert.Len(t, registry.ListIDs(), 20)
}
