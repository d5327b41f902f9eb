package scope

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/packetflow/types"
)

// ============================================================
// Test member types
// ============================================================

type sensorHub struct {
	id string
}

type cacheHandle struct {
	size int
}

// ============================================================
// Install / Find
// ============================================================

func TestInstall_FindLocal(t *testing.T) {
	root := New("root")

	hub := &sensorHub{id: "hub-1"}
	require.NoError(t, Install(root, hub))

	got, ok := Find[*sensorHub](root)
	require.True(t, ok)
	assert.Same(t, hub, got)

	_, ok = Find[*cacheHandle](root)
	assert.False(t, ok)
}

func TestInstall_DuplicateMember(t *testing.T) {
	root := New("root")

	require.NoError(t, Install(root, &sensorHub{id: "a"}))
	err := Install(root, &sensorHub{id: "b"})
	require.Error(t, err)
	assert.Equal(t, types.ErrDuplicateMember, types.GetErrorCode(err))

	// The first member stays in place.
	got, ok := Find[*sensorHub](root)
	require.True(t, ok)
	assert.Equal(t, "a", got.id)
}

func TestInstall_OnClosedScope(t *testing.T) {
	root := New("root")
	root.Close()

	err := Install(root, &sensorHub{id: "late"})
	require.Error(t, err)
	assert.Equal(t, types.ErrScopeClosed, types.GetErrorCode(err))
}

func TestInstall_SameTypeOnSiblingScopes(t *testing.T) {
	root := New("root")
	a := root.Child("a")
	b := root.Child("b")

	require.NoError(t, Install(a, &sensorHub{id: "a"}))
	require.NoError(t, Install(b, &sensorHub{id: "b"}))

	got, ok := FindRecursive[*sensorHub](root)
	require.True(t, ok)
	assert.Equal(t, "a", got.id, "depth-first search visits children in creation order")
}

// ============================================================
// FindRecursive
// ============================================================

func TestFindRecursive_PrefersSelfOverDescendants(t *testing.T) {
	root := New("root")
	child := root.Child("child")

	require.NoError(t, Install(child, &sensorHub{id: "deep"}))
	require.NoError(t, Install(root, &sensorHub{id: "local"}))

	got, ok := FindRecursive[*sensorHub](root)
	require.True(t, ok)
	assert.Equal(t, "local", got.id)
}

func TestFindRecursive_Grandchild(t *testing.T) {
	root := New("root")
	grandchild := root.Child("child").Child("grandchild")

	hub := &sensorHub{id: "deep"}
	require.NoError(t, Install(grandchild, hub))

	got, ok := FindRecursive[*sensorHub](root)
	require.True(t, ok)
	assert.Same(t, hub, got)

	// Lookup never walks upward.
	_, ok = FindRecursive[*sensorHub](grandchild)
	assert.True(t, ok)
	middle := root.Child("other")
	_, ok = FindRecursive[*sensorHub](middle)
	assert.False(t, ok)
}

// ============================================================
// NotifyWhenInstalled
// ============================================================

func TestNotifyWhenInstalled_ImmediateWhenPresent(t *testing.T) {
	root := New("root")
	child := root.Child("child")
	require.NoError(t, Install(child, &sensorHub{id: "present"}))

	var got *sensorHub
	NotifyWhenInstalled(root, func(h *sensorHub) { got = h })

	require.NotNil(t, got)
	assert.Equal(t, "present", got.id)
}

func TestNotifyWhenInstalled_FiresOnDescendantInstall(t *testing.T) {
	root := New("root")

	var calls []string
	NotifyWhenInstalled(root, func(h *sensorHub) { calls = append(calls, h.id) })

	grandchild := root.Child("child").Child("grandchild")
	require.NoError(t, Install(grandchild, &sensorHub{id: "gc"}))

	require.Equal(t, []string{"gc"}, calls)

	// One-shot: a second install of the same type elsewhere stays silent.
	sibling := root.Child("sibling")
	require.NoError(t, Install(sibling, &sensorHub{id: "sib"}))
	assert.Equal(t, []string{"gc"}, calls)
}

func TestNotifyWhenInstalled_DroppedOnClose(t *testing.T) {
	root := New("root")
	child := root.Child("child")

	fired := false
	NotifyWhenInstalled(child, func(*sensorHub) { fired = true })

	child.Close()
	require.NoError(t, Install(root, &sensorHub{id: "after"}))
	assert.False(t, fired, "watchers on a closed scope must never fire")
}

func TestNotifyWhenInstalled_OnClosedScope(t *testing.T) {
	root := New("root")
	root.Close()

	fired := false
	NotifyWhenInstalled(root, func(*sensorHub) { fired = true })
	assert.False(t, fired)
}

func TestNotifyWhenInstalled_IndependentTypes(t *testing.T) {
	root := New("root")

	var hubs, caches int
	NotifyWhenInstalled(root, func(*sensorHub) { hubs++ })
	NotifyWhenInstalled(root, func(*cacheHandle) { caches++ })

	require.NoError(t, Install(root, &cacheHandle{size: 8}))
	assert.Equal(t, 0, hubs)
	assert.Equal(t, 1, caches)
}

// ============================================================
// Close / lifecycle
// ============================================================

func TestClose_TearsDownSubtree(t *testing.T) {
	root := New("root")
	child := root.Child("child")
	grandchild := child.Child("grandchild")
	require.NoError(t, Install(grandchild, &sensorHub{id: "gc"}))

	root.Close()

	assert.True(t, root.Closed())
	assert.True(t, child.Closed())
	assert.True(t, grandchild.Closed())

	_, ok := FindRecursive[*sensorHub](root)
	assert.False(t, ok, "members are dropped on close")

	// Idempotent.
	root.Close()
	assert.True(t, root.Closed())
}

func TestChild_OfClosedParentStartsClosed(t *testing.T) {
	root := New("root")
	root.Close()

	orphan := root.Child("orphan")
	assert.True(t, orphan.Closed())

	err := Install(orphan, &sensorHub{id: "x"})
	assert.Equal(t, types.ErrScopeClosed, types.GetErrorCode(err))
}

func TestScope_NameAndPath(t *testing.T) {
	root := New("root")
	grandchild := root.Child("child").Child("grandchild")

	assert.Equal(t, "root", root.Name())
	assert.Equal(t, "root", root.Path())
	assert.Equal(t, "grandchild", grandchild.Name())
	assert.Equal(t, "root/child/grandchild", grandchild.Path())
}

// ============================================================
// Concurrency
// ============================================================

func TestInstall_ConcurrentDistinctScopes(t *testing.T) {
	root := New("root")

	const n = 32
	scopes := make([]*Scope, n)
	for i := range scopes {
		scopes[i] = root.Child(fmt.Sprintf("worker-%d", i))
	}

	var wg sync.WaitGroup
	for i, s := range scopes {
		wg.Add(1)
		go func(i int, s *Scope) {
			defer wg.Done()
			_ = Install(s, &sensorHub{id: fmt.Sprintf("hub-%d", i)})
		}(i, s)
	}
	wg.Wait()

	for i, s := range scopes {
		got, ok := Find[*sensorHub](s)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("hub-%d", i), got.id)
	}
}

func TestNotifyWhenInstalled_RacesWithInstall(t *testing.T) {
	// However the registration and the install interleave, the watcher
	// observes the member exactly once.
	for i := 0; i < 100; i++ {
		root := New("root")
		child := root.Child("child")

		fired := make(chan *sensorHub, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			NotifyWhenInstalled(root, func(h *sensorHub) { fired <- h })
		}()
		go func() {
			defer wg.Done()
			_ = Install(child, &sensorHub{id: "raced"})
		}()
		wg.Wait()

		close(fired)
		var count int
		for range fired {
			count++
		}
		require.Equal(t, 1, count, "iteration %d", i)
	}
}
