package api

import (
	"net/http"
	"time"
)

type lastConnectedResponse struct {
	Ssid string    `json:"ssid"`
	Time time.Time `json:"time"`
}

type getStatusResponse struct {
	Status  string                 `json:"status"`
	Ssid    string                 `json:"ssid,omitempty"`
	Rssi    int                    `json:"rssi,omitempty"`
	Channel int                    `json:"channel,omitempty"`
	Last    *lastConnectedResponse `json:"last,omitempty"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := &getStatusResponse{
			Status: a.daemon.Status().String(),
		}

		if current, ok := a.daemon.Current(); ok {
			res.Ssid = current.Ssid
			res.Rssi = current.Rssi
			res.Channel = current.Channel
		}

		last, err := a.daemon.LastConnected()
		if err != nil {
			a.log.Warnf("Could not read last connection: %v", err)
		} else if last != nil {
			res.Last = &lastConnectedResponse{
				Ssid: last.Ssid,
				Time: last.Time,
			}
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
