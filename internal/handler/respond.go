package handler

import (
	"log"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/kdduha/image-edit/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.ConfigDefault.Marshal(v)
	if err != nil {
		log.Printf("failed to encode response: %v\n", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Printf("failed to write response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg, Detail: detail})
}
