package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	r := New()

	require.True(t, r.Create(&Task{ID: "t1", Status: Queued}))
	require.False(t, r.Create(&Task{ID: "t1"}), "ids must never be reused")

	got, ok := r.Get("t1")
	require.True(t, ok)
	require.Equal(t, Queued, got.Status)

	require.True(t, r.Remove("t1"))
	require.False(t, r.Remove("t1"))
	_, ok = r.Get("t1")
	require.False(t, ok)
}

func TestRegistry_UpdateNotFound(t *testing.T) {
	r := New()
	err := r.Update("ghost", func(*Task) {})
	require.ErrorIs(t, err, ErrNotFound)

	require.True(t, r.Create(&Task{ID: "t1", Status: Queued}))
	require.NoError(t, r.Update("t1", func(tk *Task) { tk.Status = Uploading }))
	got, _ := r.Get("t1")
	require.Equal(t, Uploading, got.Status)
}

func TestRegistry_ListAdmissionOrderAndFilter(t *testing.T) {
	r := New()
	require.True(t, r.Create(&Task{ID: "a", Status: Queued}))
	require.True(t, r.Create(&Task{ID: "b", Status: Failed}))
	require.True(t, r.Create(&Task{ID: "c", Status: Queued}))

	all := r.List("")
	require.Len(t, all, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})

	queued := r.List(Queued)
	require.Len(t, queued, 2)
	require.Equal(t, "a", queued[0].ID)
	require.Equal(t, "c", queued[1].ID)

	require.Equal(t, 2, r.CountByStatus(Queued))
	require.Equal(t, 1, r.CountByStatus(Failed))
	require.Equal(t, 0, r.CountByStatus(Completed))
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	r := New()
	require.True(t, r.Create(&Task{ID: "a", Status: Queued}))

	listed := r.List("")
	listed[0].Status = Cancelled

	got, _ := r.Get("a")
	require.Equal(t, Queued, got.Status, "listing must not expose the live record")
}

func TestTerminal(t *testing.T) {
	require.True(t, Terminal(Completed))
	require.True(t, Terminal(Cancelled))
	require.False(t, Terminal(Failed))
	require.False(t, Terminal(Queued))
	require.False(t, Terminal(Uploading))
}
