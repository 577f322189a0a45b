package api

import (
	"net/http"
)

func (a *Api) handlePostConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.daemon.Connect() {
			a.jsonError(w, "Connection attempt in progress or already connected", http.StatusConflict)
			return
		}

		a.jsonResponse(w, &getStatusResponse{
			Status: a.daemon.Status().String(),
		}, http.StatusAccepted)
	}
}
