package httpapi

import (
	"encoding/json"
	"net/http"

	"applyflow-engine/internal/secrets"
)

type SecretsHandler struct{}

type setTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := secrets.SetBackendToken(req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := secrets.DeleteBackendToken(); err != nil {
		http.Error(w, "failed to delete token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
