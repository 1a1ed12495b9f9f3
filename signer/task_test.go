package signer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskQueueOrdering(t *testing.T) {
	q := NewTaskQueue()
	zoneA := &Zone{Name: "a."}
	zoneB := &Zone{Name: "b."}
	zoneC := &Zone{Name: "c."}

	q.Lock()
	q.Add(&Task{When: 300, Kind: SignZone, Zone: zoneC})
	q.Add(&Task{When: 100, Kind: SignZone, Zone: zoneA})
	q.Add(&Task{When: 200, Kind: SignZone, Zone: zoneB})
	q.Unlock()

	q.Lock()
	defer q.Unlock()
	require.Equal(t, 3, q.Len())
	require.Equal(t, zoneA, q.Pop().Zone)
	require.Equal(t, zoneB, q.Pop().Zone)
	require.Equal(t, zoneC, q.Pop().Zone)
}

func TestTaskQueueReplaceDedups(t *testing.T) {
	q := NewTaskQueue()
	zone := &Zone{Name: "a."}

	q.Lock()
	q.Add(&Task{When: 500, Kind: SignZone, Zone: zone, Replace: true})
	q.Add(&Task{When: 100, Kind: SignZone, Zone: zone, Replace: true})
	require.Equal(t, 1, q.Len())
	require.Equal(t, int64(100), q.tasks[0].When)
	q.Unlock()
}

func TestTaskQueueHasDueAndNextWait(t *testing.T) {
	q := NewTaskQueue()
	zone := &Zone{Name: "a."}

	q.Lock()
	defer q.Unlock()
	require.Equal(t, int64(0), q.NextWait(1000))
	require.False(t, q.HasDue(1000))

	q.Add(&Task{When: 950, Kind: SignZone, Zone: zone})
	require.True(t, q.HasDue(1000))
	require.Equal(t, int64(-50), q.NextWait(1000))

	q.tasks[0].When = 1050
	require.False(t, q.HasDue(1000))
	require.Equal(t, int64(50), q.NextWait(1000))
}

func TestTaskQueueRescheduleAllNow(t *testing.T) {
	q := NewTaskQueue()
	zoneA := &Zone{Name: "a."}
	zoneB := &Zone{Name: "b."}

	q.Lock()
	q.Add(&Task{When: 500, Kind: SignZone, Zone: zoneB})
	q.Add(&Task{When: 100, Kind: SignZone, Zone: zoneA})
	q.RescheduleAllNow()
	require.Equal(t, zoneA, q.tasks[0].Zone)
	require.Equal(t, zoneB, q.tasks[1].Zone)
	require.Equal(t, int64(0), q.tasks[0].When)
	require.Equal(t, int64(0), q.tasks[1].When)
	q.Unlock()
}
