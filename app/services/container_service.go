package services

import (
	"errors"
	"fmt"
	"sort"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/repo"

	"gorm.io/gorm"
)

// maxContainerDepth chặn đệ quy khi dữ liệu hỏng lọt qua kiểm tra attach.
const maxContainerDepth = 32

type ContainerService struct {
	containers *repo.ContainerRepository
}

func NewContainerService(containers *repo.ContainerRepository) *ContainerService {
	return &ContainerService{containers: containers}
}

func (s *ContainerService) Create(req dto.ContainerRequest) (*models.Container, error) {
	if req.Rows <= 0 || req.Cols <= 0 {
		return nil, apperr.Validation("rows", "grid dimensions must be positive")
	}
	c := &models.Container{FarmID: req.FarmID, Name: req.Name, Rows: req.Rows, Cols: req.Cols}
	cells := make([]models.ContainerCell, 0, len(req.Cells))
	for _, rc := range req.Cells {
		cell, err := s.buildCell(c, rc)
		if err != nil {
			return nil, err
		}
		// Container mới chưa bị ai tham chiếu nên không thể tạo cycle;
		// chỉ cần child tồn tại.
		if rc.ChildID != nil {
			if _, err := s.containers.Find(*rc.ChildID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, apperr.NotFound("container", fmt.Sprint(*rc.ChildID))
				}
				return nil, err
			}
		}
		cells = append(cells, *cell)
	}
	if err := s.containers.Create(c, cells); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContainerService) buildCell(c *models.Container, rc dto.ContainerCellRequest) (*models.ContainerCell, error) {
	if rc.X < 0 || rc.X >= c.Cols || rc.Y < 0 || rc.Y >= c.Rows {
		return nil, apperr.Validation("cell", fmt.Sprintf("position (%d,%d) outside %dx%d grid", rc.X, rc.Y, c.Rows, c.Cols))
	}
	if (rc.WorkerUUID == "") == (rc.ChildID == nil) {
		return nil, apperr.Validation("cell", "exactly one of worker_uuid and child_id must be set")
	}
	return &models.ContainerCell{X: rc.X, Y: rc.Y, WorkerUUID: rc.WorkerUUID, ChildID: rc.ChildID}, nil
}

func (s *ContainerService) Get(id uint) (*models.Container, []models.ContainerCell, error) {
	c, err := s.containers.Find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("container", fmt.Sprint(id))
		}
		return nil, nil, err
	}
	cells, err := s.containers.Cells(id)
	if err != nil {
		return nil, nil, err
	}
	return c, cells, nil
}

// SetCell gắn worker hoặc container con vào một ô. Cycle bị chặn tại đây
// (validate on write); ResolveMembers vẫn tự vệ thêm (defend on read).
func (s *ContainerService) SetCell(containerID uint, rc dto.ContainerCellRequest) error {
	c, err := s.containers.Find(containerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("container", fmt.Sprint(containerID))
		}
		return err
	}
	cell, err := s.buildCell(c, rc)
	if err != nil {
		return err
	}
	if rc.ChildID != nil {
		if *rc.ChildID == containerID {
			return &apperr.CyclicContainerError{ContainerID: containerID}
		}
		if _, err := s.containers.Find(*rc.ChildID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("container", fmt.Sprint(*rc.ChildID))
			}
			return err
		}
		if err := s.ensureAcyclic(containerID, *rc.ChildID); err != nil {
			return err
		}
	}
	cell.ContainerID = containerID
	return s.containers.UpsertCell(cell)
}

func (s *ContainerService) ClearCell(containerID uint, x, y int) error {
	return s.containers.DeleteCell(containerID, x, y)
}

func (s *ContainerService) Delete(id uint) error { return s.containers.Delete(id) }

// ensureAcyclic: parent không được nằm trong subtree của child sắp attach.
func (s *ContainerService) ensureAcyclic(parentID, childID uint) error {
	visited := map[uint]bool{}
	var walk func(id uint, depth int) error
	walk = func(id uint, depth int) error {
		if id == parentID {
			return &apperr.CyclicContainerError{ContainerID: parentID}
		}
		if visited[id] || depth > maxContainerDepth {
			return nil
		}
		visited[id] = true
		cells, err := s.containers.Cells(id)
		if err != nil {
			return err
		}
		for _, cell := range cells {
			if cell.ChildID != nil {
				if err := walk(*cell.ChildID, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(childID, 0)
}

// ResolveMembers làm phẳng cây container thành tập worker uuid, sort cho ổn
// định. Cell rỗng bị bỏ qua; gặp cycle trả CyclicContainerError thay vì đệ
// quy mãi.
func (s *ContainerService) ResolveMembers(containerID uint) ([]string, error) {
	if _, err := s.containers.Find(containerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("container", fmt.Sprint(containerID))
		}
		return nil, err
	}
	members := map[string]bool{}
	visiting := map[uint]bool{}
	var walk func(id uint, depth int) error
	walk = func(id uint, depth int) error {
		if visiting[id] {
			return &apperr.CyclicContainerError{ContainerID: id}
		}
		if depth > maxContainerDepth {
			return &apperr.CyclicContainerError{ContainerID: id}
		}
		visiting[id] = true
		defer delete(visiting, id)
		cells, err := s.containers.Cells(id)
		if err != nil {
			return err
		}
		for _, cell := range cells {
			switch {
			case cell.WorkerUUID != "":
				members[cell.WorkerUUID] = true
			case cell.ChildID != nil:
				if err := walk(*cell.ChildID, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(containerID, 0); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for uuid := range members {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out, nil
}
