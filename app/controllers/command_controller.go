package controllers

import (
	"encoding/json"
	"net/http"

	"rigfleet/app/dto"
	"rigfleet/app/middleware"
	"rigfleet/app/models"
	"rigfleet/app/services"
)

type CommandController struct {
	Dispatcher *services.DispatcherService
	Selections *services.SelectionService
	Async      *services.AsyncService
}

func NewCommandController(dispatcher *services.DispatcherService, selections *services.SelectionService, async *services.AsyncService) *CommandController {
	return &CommandController{Dispatcher: dispatcher, Selections: selections, Async: async}
}

// Post enqueue một command cho một worker.
func (c *CommandController) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkerUUID == "" || req.Command == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "worker_uuid and command required"})
		return
	}
	id, err := c.Dispatcher.Enqueue(req.WorkerUUID, models.CommandType(req.Command), req.Payload)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]uint{"command_id": id})
}

// FanOut resolve selection rồi enqueue cho từng worker. Lỗi lẻ tẻ nằm trong
// body per-worker; HTTP status vẫn 200. async=true thì bọc trong async
// request và trả 202 + request id.
func (c *CommandController) FanOut(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var userID uint
	if claims != nil {
		userID = claims.UserID
	}
	var req dto.FanOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "command required", Field: "command"})
		return
	}
	targets, err := c.Selections.Resolve(r.Context(), userID, req.Selection)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Async {
		id, err := c.Async.Submit(func() (services.Envelope, error) {
			resp := c.Dispatcher.FanOut(targets, models.CommandType(req.Command), req.Payload)
			body, _ := json.Marshal(resp)
			return services.Envelope{
				Status:  http.StatusOK,
				Headers: map[string][]string{"Content-Type": {"application/json"}},
				Body:    body,
			}, nil
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
		return
	}
	writeJSON(w, http.StatusOK, c.Dispatcher.FanOut(targets, models.CommandType(req.Command), req.Payload))
}

// Queue: view queue của một worker cho operator.
// GET /command/queue?uuid=...&include_resolved=true|false
func (c *CommandController) Queue(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "uuid required", Field: "uuid"})
		return
	}
	includeResolved := r.URL.Query().Get("include_resolved") == "true"
	cmds, err := c.Dispatcher.Queue(uuid, includeResolved)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.QueuedCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, dto.QueuedCommand{
			ID:        cmd.ID,
			Command:   string(cmd.Type),
			Payload:   json.RawMessage(cmd.Payload),
			Status:    string(cmd.Status),
			CreatedAt: cmd.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Snapshot: preview một selection và cache lại tập kết quả; search_id trả về
// dùng được cho fan-out trong TTL, bất kể tag đổi giữa chừng.
func (c *CommandController) Snapshot(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var userID uint
	if claims != nil {
		userID = claims.UserID
	}
	var spec dto.SelectionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
		return
	}
	searchID, workers, err := c.Selections.Snapshot(r.Context(), userID, spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SnapshotResponse{SearchID: searchID, Workers: workers})
}
