package operation

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	op, err := s.Create("/tmp/a.tif", "gs://b/a.tif")
	require.NoError(t, err)
	_, err = uuid.Parse(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, op.Status)

	require.NoError(t, s.MarkRunning(op.ID))
	require.NoError(t, s.RecordAttempt(op.ID, errors.New("503")))
	require.NoError(t, s.RecordAttempt(op.ID, nil))
	require.NoError(t, s.MarkComplete(op.ID, "gs://b/a.tif"))

	got, err := s.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "503", got.LastError)
	assert.Equal(t, "gs://b/a.tif", got.URI)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	op, err := s.Create("src", "dst")
	require.NoError(t, err)

	got, err := s.Get(op.ID)
	require.NoError(t, err)
	got.Status = StatusFailed

	again, err := s.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryStoreUnknownID(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get("nope")
	assert.Error(t, err)
	assert.Error(t, s.MarkRunning("nope"))
	assert.Error(t, s.RecordAttempt("nope", nil))
}

func TestMemoryStoreConcurrentAttempts(t *testing.T) {
	s := NewMemoryStore()
	op, err := s.Create("src", "dst")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RecordAttempt(op.ID, nil)
		}()
	}
	wg.Wait()

	got, err := s.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Attempts)
	assert.Len(t, s.List(), 1)
}

func TestTracker(t *testing.T) {
	s := NewMemoryStore()

	tr := Track(s, "src", "gs://b/k")
	require.NotEmpty(t, tr.ID())

	op, err := s.Get(tr.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, op.Status)

	tr.Attempt(errors.New("flaky"))
	tr.Done("", errors.New("gave up"))

	op, err = s.Get(tr.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, op.Status)
	assert.Equal(t, "gave up", op.Error)
	assert.Equal(t, 1, op.Attempts)
}

func TestTrackerWithoutStore(t *testing.T) {
	tr := Track(nil, "src", "dst")
	assert.Empty(t, tr.ID())
	assert.NotPanics(t, func() {
		tr.Attempt(errors.New("x"))
		tr.Done("uri", nil)
	})
}
