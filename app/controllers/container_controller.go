package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/services"
)

type ContainerController struct {
	Containers *services.ContainerService
}

func NewContainerController(containers *services.ContainerService) *ContainerController {
	return &ContainerController{Containers: containers}
}

func parseID(r *http.Request, key string) (uint, bool) {
	raw := r.URL.Query().Get(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (c *ContainerController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	ct, err := c.Containers.Create(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint{"id": ct.ID})
}

func (c *ContainerController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	ct, cells, err := c.Containers.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := dto.ContainerResponse{ID: ct.ID, FarmID: ct.FarmID, Name: ct.Name, Rows: ct.Rows, Cols: ct.Cols}
	for _, cell := range cells {
		resp.Cells = append(resp.Cells, toCellRequest(cell))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toCellRequest(cell models.ContainerCell) dto.ContainerCellRequest {
	return dto.ContainerCellRequest{X: cell.X, Y: cell.Y, WorkerUUID: cell.WorkerUUID, ChildID: cell.ChildID}
}

// SetCell: PUT /containers/cell?id=...
func (c *ContainerController) SetCell(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	var req dto.ContainerCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	if r.Method == http.MethodDelete {
		if err := c.Containers.ClearCell(id, req.X, req.Y); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := c.Containers.SetCell(id, req); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ContainerController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	if err := c.Containers.Delete(id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members: tập worker đã làm phẳng của cả cây container.
func (c *ContainerController) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	workers, err := c.Containers.ResolveMembers(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MembersResponse{Workers: workers})
}
