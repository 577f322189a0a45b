package api

import (
	"net/http"
)

type candidateResponse struct {
	Ssid    string `json:"ssid"`
	Rssi    int    `json:"rssi"`
	Channel int    `json:"channel"`
}

func (a *Api) handleGetCandidates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := []candidateResponse{}

		for _, c := range a.daemon.Candidates() {
			res = append(res, candidateResponse{
				Ssid:    c.Ssid,
				Rssi:    c.Rssi,
				Channel: c.Channel,
			})
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
