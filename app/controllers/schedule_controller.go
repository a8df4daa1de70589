package controllers

import (
	"encoding/json"
	"net/http"

	"rigfleet/app/dto"
	"rigfleet/app/models"
	"rigfleet/app/services"
)

type ScheduleController struct {
	Scheduler *services.SchedulerService
}

func NewScheduleController(scheduler *services.SchedulerService) *ScheduleController {
	return &ScheduleController{Scheduler: scheduler}
}

func (c *ScheduleController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	sch, err := c.Scheduler.Create(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleResponse(sch))
}

func (c *ScheduleController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	sch, err := c.Scheduler.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sch))
}

func (c *ScheduleController) List(w http.ResponseWriter, r *http.Request) {
	schs, err := c.Scheduler.List()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.ScheduleResponse, 0, len(schs))
	for i := range schs {
		out = append(out, *toScheduleResponse(&schs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (c *ScheduleController) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	if err := c.Scheduler.SetActive(id, req.Active); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ScheduleController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	if err := c.Scheduler.Delete(id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toScheduleResponse(sch *models.Schedule) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:          sch.ID,
		FarmID:      sch.FarmID,
		Name:        sch.Name,
		ContainerID: sch.ContainerID,
		LaunchAt:    sch.LaunchAt.Unix(),
		RRule:       sch.RRule,
		Timezone:    sch.Timezone,
		Active:      sch.Active,
	}
	if sch.TagIDs != "" {
		_ = json.Unmarshal([]byte(sch.TagIDs), &resp.TagIDs)
	}
	if sch.Action != "" {
		_ = json.Unmarshal([]byte(sch.Action), &resp.Action)
	}
	if sch.PrevLaunchAt != nil {
		ts := sch.PrevLaunchAt.Unix()
		resp.PrevLaunchAt = &ts
	}
	if sch.NextLaunchAt != nil {
		ts := sch.NextLaunchAt.Unix()
		resp.NextLaunchAt = &ts
	}
	return resp
}
