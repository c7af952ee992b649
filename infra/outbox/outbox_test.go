package outbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestOutboxLifecycle(t *testing.T) {
	o := openTest(t)

	require.NoError(t, o.Put(1, []byte(`{"trade_id":1}`)))

	e, err := o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateNew, e.State)
	require.Equal(t, []byte(`{"trade_id":1}`), e.Payload)
	require.Zero(t, e.Retries)

	require.NoError(t, o.MarkSent(1))
	e, err = o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateSent, e.State)
	require.Equal(t, uint32(1), e.Retries)
	require.NotZero(t, e.LastAttempt)

	require.NoError(t, o.MarkAcked(1))
	e, err = o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateAcked, e.State)
}

func TestScanPendingSkipsAcked(t *testing.T) {
	o := openTest(t)

	for id := uint64(1); id <= 5; id++ {
		require.NoError(t, o.Put(id, []byte{byte(id)}))
	}
	require.NoError(t, o.MarkSent(2))
	require.NoError(t, o.MarkAcked(2))
	require.NoError(t, o.MarkSent(4)) // sent but unacked: still pending

	var got []uint64
	err := o.ScanPending(func(id uint64, e Entry) error {
		got = append(got, id)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3, 4, 5}, got)
}

func TestScanPendingOrdered(t *testing.T) {
	o := openTest(t)

	// Insert out of numeric order; zero-padded keys must still iterate
	// in trade-ID order.
	for _, id := range []uint64{90, 7, 1100, 3} {
		require.NoError(t, o.Put(id, nil))
	}

	var got []uint64
	require.NoError(t, o.ScanPending(func(id uint64, e Entry) error {
		got = append(got, id)
		return nil
	}))
	require.Equal(t, []uint64{3, 7, 90, 1100}, got)
}

func TestDeleteAcked(t *testing.T) {
	o := openTest(t)

	for id := uint64(1); id <= 6; id++ {
		require.NoError(t, o.Put(id, nil))
	}
	for _, id := range []uint64{1, 2, 3, 5} {
		require.NoError(t, o.MarkSent(id))
		require.NoError(t, o.MarkAcked(id))
	}

	require.NoError(t, o.DeleteAcked(3))

	for _, id := range []uint64{1, 2, 3} {
		_, err := o.Get(id)
		require.Error(t, err, "entry %d should be gone", id)
	}
	// Acked above the bound, and everything pending, survives.
	for _, id := range []uint64{4, 5, 6} {
		_, err := o.Get(id)
		require.NoError(t, err, "entry %d should survive", id)
	}
}

func TestOutboxSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	o, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, o.Put(42, []byte("payload")))
	require.NoError(t, o.Close())

	o, err = Open(dir)
	require.NoError(t, err)
	defer o.Close()

	e, err := o.Get(42)
	require.NoError(t, err)
	require.Equal(t, StateNew, e.State)
	require.Equal(t, []byte("payload"), e.Payload)
}
