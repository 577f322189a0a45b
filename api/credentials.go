package api

import (
	"encoding/json"
	"net/http"
)

type credentialResponse struct {
	Ssid string `json:"ssid"`
}

type postCredentialRequest struct {
	Ssid       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
}

func (a *Api) handleGetCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := []credentialResponse{}

		for _, c := range a.daemon.Credentials() {
			res = append(res, credentialResponse{Ssid: c.Ssid})
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}

func (a *Api) handlePostCredential() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := postCredentialRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if !a.daemon.AddCredential(req.Ssid, req.Passphrase) {
			a.jsonError(w, "Invalid or duplicate access point", http.StatusConflict)
			return
		}

		a.log.Infof("Added access point %q", req.Ssid)

		a.jsonResponse(w, &credentialResponse{Ssid: req.Ssid}, http.StatusCreated)
	}
}

func (a *Api) handleDeleteCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.daemon.ClearCredentials()

		a.log.Infof("Cleared access points")

		w.WriteHeader(http.StatusNoContent)
	}
}
