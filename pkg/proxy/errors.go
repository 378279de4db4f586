package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

type errorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// WriteError answers with a JSON error document carrying status and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set(httpclient.ContentTypeHeader, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: status, Message: message})
}
