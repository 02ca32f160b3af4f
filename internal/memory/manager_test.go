package memory

import (
	"testing"

	"github.com/cockpit-vm/cockpitvm/internal/vmerr"
	"github.com/stretchr/testify/require"
)

func TestGlobalRoundTrip(t *testing.T) {
	m := NewManager(NewContext())
	require.NoError(t, m.StoreGlobal(9, 42))
	v, err := m.LoadGlobal(9)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
	require.GreaterOrEqual(t, m.GlobalHigh(), 10)
}

func TestGlobalBounds(t *testing.T) {
	m := NewManager(NewContext())
	err := m.StoreGlobal(GlobalCount, 1)
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.MemoryBounds, kind)

	_, err = m.LoadGlobal(-1)
	kind, ok = vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.MemoryBounds, kind)
}

func TestArrayLifecycle(t *testing.T) {
	m := NewManager(NewContext())
	require.NoError(t, m.CreateArray(0, ArraySize))
	require.NoError(t, m.StoreArrayElement(0, ArraySize-1, 7))
	v, err := m.LoadArrayElement(0, ArraySize-1)
	require.NoError(t, err)
	require.EqualValues(t, 7, v)

	_, err = m.LoadArrayElement(0, ArraySize)
	kind, ok := vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.MemoryBounds, kind)

	_, err = m.LoadArrayElement(1, 0)
	kind, ok = vmerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.MemoryBounds, kind)
}

func TestArrayRecreateClears(t *testing.T) {
	m := NewManager(NewContext())
	require.NoError(t, m.CreateArray(3, ArraySize))
	require.NoError(t, m.StoreArrayElement(3, 0, 99))
	require.NoError(t, m.CreateArray(3, ArraySize))
	v, err := m.LoadArrayElement(3, 0)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestResetCompleteness(t *testing.T) {
	m := NewManager(NewContext())
	require.NoError(t, m.StoreGlobal(5, 1))
	require.NoError(t, m.CreateArray(0, ArraySize))
	m.Reset()

	for i := 0; i < GlobalCount; i++ {
		v, err := m.LoadGlobal(i)
		require.NoError(t, err)
		require.Zero(t, v)
	}
	require.Zero(t, m.GlobalHigh())
	require.True(t, m.ValidateIntegrity())

	_, err := m.LoadArrayElement(0, 0)
	require.Error(t, err)
}
