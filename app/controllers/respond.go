package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"rigfleet/app/apperr"
	"rigfleet/app/dto"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr map taxonomy lỗi sang HTTP status. Lỗi không phân loại được là 500.
func writeErr(w http.ResponseWriter, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}
	switch {
	case apperr.IsValidation(err):
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			resp.Field = ve.Field
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case apperr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, resp)
	case apperr.IsSnapshotExpired(err):
		writeJSON(w, http.StatusGone, resp)
	case apperr.IsCyclicContainer(err):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case apperr.IsConflict(err):
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
