package pisa

import (
	"context"
	"testing"
	"time"

	"github.com/GoAethereal/cancel"
	"github.com/stretchr/testify/require"
)

func TestTransportRejectsNegativeOptions(t *testing.T) {
	_, err := Options{RemoveBatchSize: -1}.Verify()
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Options{OutboundQueueSize: -1}.Verify()
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestTransportOptionsDefaults(t *testing.T) {
	opts, err := Options{}.Verify()
	require.NoError(t, err)
	require.Equal(t, DefaultRemoveBatchSize, opts.RemoveBatchSize)
	require.Equal(t, DefaultOutboundQueueSize, opts.OutboundQueueSize)
	require.NotNil(t, opts.Logger)
}

func TestTransportCloseResolvesOutstandingRequests(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()

	slot, err := tr.StoreCode(ctx, "(E_Int) (1)")
	require.NoError(t, err)

	require.NoError(t, tr.Close())

	_, err = slot.wait(context.Background(), tr)
	require.ErrorIs(t, err, ErrTransportClosed)

	// Further calls on a closed Transport fail immediately rather than hanging.
	_, err = tr.StoreCode(ctx, "(E_Int) (2)")
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestSlotWaitDetachesOnCancellation(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	sig := cancel.New()

	// A request that never resolves (no matching reply will ever arrive, since no command was
	// ever sent for this slot) should unblock once its signal is cancelled rather than hang
	// forever, and mark the slot detached so a late reply would be dropped.
	s := newSlot()
	done := make(chan error, 1)
	go func() {
		_, err := s.wait(sig, tr)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("wait returned before cancellation")
	case <-time.After(20 * time.Millisecond):
	}

	sig.Cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after cancellation")
	}

	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	require.True(t, detached)
}
