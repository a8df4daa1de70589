package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rigfleet/app/dto"
	"rigfleet/app/middleware"
	"rigfleet/app/services"
)

type OverclockController struct {
	Overclocks *services.OverclockService
	Dispatcher *services.DispatcherService
	Selections *services.SelectionService
}

func NewOverclockController(overclocks *services.OverclockService, dispatcher *services.DispatcherService, selections *services.SelectionService) *OverclockController {
	return &OverclockController{Overclocks: overclocks, Dispatcher: dispatcher, Selections: selections}
}

func (c *OverclockController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.OCProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	p, err := c.Overclocks.CreateProfile(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint{"id": p.ID})
}

func (c *OverclockController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	_, resp, err := c.Overclocks.GetProfile(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *OverclockController) List(w http.ResponseWriter, r *http.Request) {
	farmID, _ := strconv.ParseUint(r.URL.Query().Get("farm_id"), 10, 32)
	profiles, err := c.Overclocks.ListProfiles(uint(farmID))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (c *OverclockController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	var req dto.OCProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	if _, err := c.Overclocks.UpdateProfile(id, req); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OverclockController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	if err := c.Overclocks.DeleteProfile(id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve: preview effective config của profile cho một algorithm.
// GET /oc/resolve?id=...&algo=ethash
func (c *OverclockController) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	algo := r.URL.Query().Get("algo")
	eff, err := c.Overclocks.ResolveByID(id, algo)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eff)
}

type ocApplyRequest struct {
	Selection dto.SelectionSpec `json:"selection"`
	ProfileID uint              `json:"profile_id"`
	Mode      dto.ApplyMode     `json:"mode,omitempty"`
}

// Apply fan-out một profile overclock lên selection, mỗi worker resolve theo
// algorithm của chính nó.
func (c *OverclockController) Apply(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var userID uint
	if claims != nil {
		userID = claims.UserID
	}
	var req ocApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfileID == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "profile_id required", Field: "profile_id"})
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = dto.ApplyReplace
	}
	_, profile, err := c.Overclocks.GetProfile(req.ProfileID)
	if err != nil {
		writeErr(w, err)
		return
	}
	targets, err := c.Selections.Resolve(r.Context(), userID, req.Selection)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Dispatcher.ApplyOverclock(targets, *profile, mode))
}
