package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/repo"
)

func newContainerService(t *testing.T) *ContainerService {
	t.Helper()
	return NewContainerService(repo.NewContainerRepository(newTestDB(t)))
}

func TestResolveMembersNested(t *testing.T) {
	svc := newContainerService(t)

	inner, err := svc.Create(dto.ContainerRequest{Name: "shelf", Rows: 1, Cols: 2, Cells: []dto.ContainerCellRequest{
		{X: 0, Y: 0, WorkerUUID: "worker-b"},
	}})
	require.NoError(t, err)

	outer, err := svc.Create(dto.ContainerRequest{Name: "room", Rows: 1, Cols: 2, Cells: []dto.ContainerCellRequest{
		{X: 0, Y: 0, WorkerUUID: "worker-a"},
		{X: 1, Y: 0, ChildID: &inner.ID},
	}})
	require.NoError(t, err)

	members, err := svc.ResolveMembers(outer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"worker-a", "worker-b"}, members)
}

func TestResolveMembersSkipsEmptyCellsAndDedupes(t *testing.T) {
	svc := newContainerService(t)

	inner, err := svc.Create(dto.ContainerRequest{Name: "inner", Rows: 1, Cols: 1, Cells: []dto.ContainerCellRequest{
		{X: 0, Y: 0, WorkerUUID: "worker-a"},
	}})
	require.NoError(t, err)

	// worker-a xuất hiện trực tiếp lẫn qua container con; cell (2,0) bỏ trống.
	outer, err := svc.Create(dto.ContainerRequest{Name: "outer", Rows: 1, Cols: 3, Cells: []dto.ContainerCellRequest{
		{X: 0, Y: 0, WorkerUUID: "worker-a"},
		{X: 1, Y: 0, ChildID: &inner.ID},
	}})
	require.NoError(t, err)

	members, err := svc.ResolveMembers(outer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"worker-a"}, members)
}

func TestAttachCycleRejected(t *testing.T) {
	svc := newContainerService(t)

	a, err := svc.Create(dto.ContainerRequest{Name: "a", Rows: 1, Cols: 1})
	require.NoError(t, err)
	b, err := svc.Create(dto.ContainerRequest{Name: "b", Rows: 1, Cols: 1})
	require.NoError(t, err)

	// a -> b hợp lệ
	require.NoError(t, svc.SetCell(a.ID, dto.ContainerCellRequest{X: 0, Y: 0, ChildID: &b.ID}))

	// b -> a tạo cycle
	err = svc.SetCell(b.ID, dto.ContainerCellRequest{X: 0, Y: 0, ChildID: &a.ID})
	assert.True(t, apperr.IsCyclicContainer(err), "expected CyclicContainerError, got %v", err)

	// tự trỏ vào mình cũng bị chặn
	err = svc.SetCell(a.ID, dto.ContainerCellRequest{X: 0, Y: 0, ChildID: &a.ID})
	assert.True(t, apperr.IsCyclicContainer(err))
}

func TestContainerValidation(t *testing.T) {
	svc := newContainerService(t)

	_, err := svc.Create(dto.ContainerRequest{Name: "bad", Rows: 0, Cols: 2})
	assert.True(t, apperr.IsValidation(err))

	ct, err := svc.Create(dto.ContainerRequest{Name: "ok", Rows: 2, Cols: 2})
	require.NoError(t, err)

	// ngoài lưới
	err = svc.SetCell(ct.ID, dto.ContainerCellRequest{X: 5, Y: 0, WorkerUUID: "w"})
	assert.True(t, apperr.IsValidation(err))

	// cả worker lẫn child
	child := ct.ID
	err = svc.SetCell(ct.ID, dto.ContainerCellRequest{X: 0, Y: 0, WorkerUUID: "w", ChildID: &child})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.ResolveMembers(9999)
	assert.True(t, apperr.IsNotFound(err))
}
