package controllers

import (
	"encoding/json"
	"net/http"

	"rigfleet/app/dto"
	jwtutil "rigfleet/app/jwt"
	"rigfleet/app/middleware"
	"rigfleet/app/models"
	"rigfleet/app/presence"
	"rigfleet/app/services"
)

type WorkerController struct {
	Workers    *services.WorkerService
	Dispatcher *services.DispatcherService
	Presence   *presence.Tracker
	Signer     *jwtutil.Signer
}

func NewWorkerController(workers *services.WorkerService, dispatcher *services.DispatcherService, tracker *presence.Tracker, signer *jwtutil.Signer) *WorkerController {
	return &WorkerController{Workers: workers, Dispatcher: dispatcher, Presence: tracker, Signer: signer}
}

// Register: worker-facing, chưa có token. Đăng ký (hoặc đăng ký lại) trả về
// uuid + token dùng cho poll/report.
func (c *WorkerController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	worker, err := c.Workers.Register(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	token, err := c.Signer.SignWorker(worker.UUID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "token error"})
		return
	}
	writeJSON(w, http.StatusOK, dto.RegisterResponse{UUID: worker.UUID, Token: token})
}

// Poll: heartbeat + snapshot queue + config hiện tại, trong một round-trip.
// Queue không bị clear — worker report từng command sau khi chạy.
func (c *WorkerController) Poll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil || claims.WorkerUUID == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	uuid := claims.WorkerUUID
	worker, err := c.Workers.FindByUUID(uuid)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = c.Workers.Heartbeat(uuid)
	c.Presence.Touch(uuid)

	cmds, err := c.Dispatcher.Pull(uuid)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := dto.PollResponse{
		Commands:      cmds,
		FlightSheetID: worker.FlightSheetID,
		OCAlgo:        worker.ResolvedOCAlgo,
	}
	if worker.ResolvedOC != "" {
		var cfg dto.OCConfig
		if err := json.Unmarshal([]byte(worker.ResolvedOC), &cfg); err == nil {
			resp.OCConfig = &cfg
		}
	}
	if worker.MinerConfig != "" {
		resp.MinerConfig = json.RawMessage(worker.MinerConfig)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *WorkerController) Report(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil || claims.WorkerUUID == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dto.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommandID == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "command_id required", Field: "command_id"})
		return
	}
	if err := c.Dispatcher.Report(claims.WorkerUUID, req); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin-facing.

func (c *WorkerController) List(w http.ResponseWriter, r *http.Request) {
	workers, err := c.Workers.ListAll()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.WorkerResponse, 0, len(workers))
	for i := range workers {
		out = append(out, c.toResponse(&workers[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *WorkerController) Get(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "uuid required", Field: "uuid"})
		return
	}
	worker, err := c.Workers.FindByUUID(uuid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.toResponse(worker))
}

func (c *WorkerController) Messages(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "uuid required", Field: "uuid"})
		return
	}
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"
	msgs, err := c.Workers.Messages(uuid, unresolvedOnly)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.MessageResponse{
			ID:        m.ID,
			CommandID: m.CommandID,
			Level:     string(m.Level),
			Title:     m.Title,
			Payload:   json.RawMessage(m.Payload),
			CreatedAt: m.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *WorkerController) AssignTags(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "uuid required", Field: "uuid"})
		return
	}
	var req dto.TagAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	if err := c.Workers.AssignTags(uuid, req.TagIDs); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *WorkerController) Online(w http.ResponseWriter, r *http.Request) {
	list := c.Presence.OnlineWorkers()
	writeJSON(w, http.StatusOK, map[string]any{"online_workers": list, "count": len(list)})
}

func (c *WorkerController) toResponse(worker *models.Worker) dto.WorkerResponse {
	resp := dto.WorkerResponse{
		UUID:          worker.UUID,
		FarmID:        worker.FarmID,
		Name:          worker.Name,
		Platform:      string(worker.Platform),
		Active:        worker.Active,
		Online:        c.Presence.IsOnline(worker.UUID),
		FlightSheetID: worker.FlightSheetID,
		OCAlgo:        worker.ResolvedOCAlgo,
	}
	if tags, err := c.Workers.TagIDs(worker.UUID); err == nil {
		resp.TagIDs = tags
	}
	if worker.LastSeenAt != nil {
		ts := worker.LastSeenAt.Unix()
		resp.LastSeenAt = &ts
	}
	if cmds, err := c.Dispatcher.Queue(worker.UUID, false); err == nil {
		resp.PendingCmds = len(cmds)
	}
	return resp
}
