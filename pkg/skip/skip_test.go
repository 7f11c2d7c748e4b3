package skip

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgreach/pkg/logger"
)

func TestWaitReturnsOnSkipKey(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	l := New(DefaultKey, logger.NewTestLogger(), WithInput(r))

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()

	_, err := w.Write([]byte{'t'})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after skip key")
	}
}

func TestWaitIgnoresOtherKeys(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	l := New(DefaultKey, logger.NewTestLogger(), WithInput(r))

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()

	_, err := w.Write([]byte("xyz"))
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("Wait returned on a non-skip key")
	case <-time.After(100 * time.Millisecond):
	}

	_, err = w.Write([]byte{'T'})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after uppercase skip key")
	}
}

func TestWaitReturnsContextError(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	l := New(DefaultKey, logger.NewTestLogger(), WithInput(r))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestDisabledListenerBlocksUntilCancel(t *testing.T) {
	// stdin is not a terminal under go test, so the listener is inert.
	l := New(DefaultKey, logger.NewTestLogger())
	require.False(t, l.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
