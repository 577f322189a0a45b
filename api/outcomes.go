package api

import (
	"net/http"
	"strconv"
)

const defaultOutcomesLimit = 50

func (a *Api) handleGetOutcomes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultOutcomesLimit

		if raw := r.URL.Query().Get("limit"); raw != "" {
			var err error

			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				a.jsonError(w, "limit must be a positive number", http.StatusBadRequest)
				return
			}
		}

		outcomes, err := a.daemon.Outcomes(limit)
		if err != nil {
			a.log.Errorf("Could not read outcomes: %v", err)
			a.jsonError(w, "Could not read outcomes", http.StatusInternalServerError)
			return
		}

		a.jsonResponse(w, outcomes, http.StatusOK)
	}
}
