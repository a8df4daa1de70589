package controllers

import (
	"net/http"

	"rigfleet/app/dto"
	"rigfleet/app/services"
)

type AsyncController struct {
	Async *services.AsyncService
}

func NewAsyncController(async *services.AsyncService) *AsyncController {
	return &AsyncController{Async: async}
}

// Get: GET /requests?id=... — pending/processing/expired trả status; done và
// error replay nguyên envelope gốc (status code, headers, body, bit-for-bit).
// id không tồn tại là 404, khác hẳn expired (id từng tồn tại).
func (c *AsyncController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "id required", Field: "id"})
		return
	}
	req, env, err := c.Async.GetStatus(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if env == nil {
		writeJSON(w, http.StatusOK, dto.AsyncRequestResponse{ID: req.ID, Status: string(req.Status)})
		return
	}
	if r.URL.Query().Get("replay") == "true" {
		for k, vs := range env.Headers {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(env.Status)
		_, _ = w.Write(env.Body)
		return
	}
	writeJSON(w, http.StatusOK, dto.AsyncRequestResponse{
		ID:      req.ID,
		Status:  string(req.Status),
		Result:  string(env.Body),
		HTTP:    env.Status,
		Headers: env.Headers,
	})
}
