package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/repo"
)

func TestResolveByTags(t *testing.T) {
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	seedWorker(t, gdb, "w1", "", 1)
	seedWorker(t, gdb, "w2", "", 1, 2)
	seedWorker(t, gdb, "w3", "", 3)

	any := NewSelectionService(workers, NewMemorySnapshotStore(), time.Minute, false)
	got, err := any.Resolve(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, got)

	all := NewSelectionService(workers, NewMemorySnapshotStore(), time.Minute, true)
	got, err = all.Resolve(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, got)
}

func TestResolveSpecValidation(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewSelectionService(repo.NewWorkerRepository(gdb), NewMemorySnapshotStore(), time.Minute, false)

	_, err := svc.Resolve(context.Background(), 1, dto.SelectionSpec{})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Resolve(context.Background(), 1, dto.SelectionSpec{WorkerUUIDs: []string{"w"}, TagIDs: []uint{1}})
	assert.True(t, apperr.IsValidation(err))
}

func TestSnapshotStableAcrossTagChanges(t *testing.T) {
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	seedWorker(t, gdb, "w1", "", 7)
	seedWorker(t, gdb, "w2", "", 7)
	svc := NewSelectionService(workers, NewMemorySnapshotStore(), time.Minute, false)

	searchID, snap, err := svc.Snapshot(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{7}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, snap)

	// Đổi tag giữa preview và act: snapshot vẫn trả đúng tập cũ.
	require.NoError(t, workers.ReplaceTags("w2", nil))

	got, err := svc.Resolve(context.Background(), 1, dto.SelectionSpec{SearchID: searchID})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, got)

	// Query tag trực tiếp thì nhìn thấy thay đổi.
	got, err = svc.Resolve(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{7}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, got)
}

func TestSnapshotExpiry(t *testing.T) {
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	seedWorker(t, gdb, "w1", "", 7)
	store := NewMemorySnapshotStore()
	svc := NewSelectionService(workers, store, 20*time.Millisecond, false)

	searchID, _, err := svc.Snapshot(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{7}})
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = svc.Resolve(context.Background(), 1, dto.SelectionSpec{SearchID: searchID})
	assert.True(t, apperr.IsSnapshotExpired(err), "expected SnapshotExpiredError, got %v", err)

	// Sweep dọn sạch entry hết hạn còn sót.
	_, _, err = svc.Snapshot(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{7}})
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, store.Sweep())
}

func TestSnapshotScopedPerUser(t *testing.T) {
	gdb := newTestDB(t)
	workers := repo.NewWorkerRepository(gdb)
	seedWorker(t, gdb, "w1", "", 7)
	svc := NewSelectionService(workers, NewMemorySnapshotStore(), time.Minute, false)

	searchID, _, err := svc.Snapshot(context.Background(), 1, dto.SelectionSpec{TagIDs: []uint{7}})
	require.NoError(t, err)

	// User khác không thấy snapshot của user 1.
	_, err = svc.Resolve(context.Background(), 2, dto.SelectionSpec{SearchID: searchID})
	assert.True(t, apperr.IsSnapshotExpired(err))
}
