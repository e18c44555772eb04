package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"showrunner/pkg/tasks"
)

type dispatchRequest struct {
	Season  int  `json:"season"`
	Episode int  `json:"episode"`
	Force   bool `json:"force"`
}

type triggerResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// PostSweep enqueues a full sweep over all eligible episodes.
func (h *Handlers) PostSweep(w http.ResponseWriter, r *http.Request) {
	task, err := tasks.NewSweepTask()
	if err != nil {
		log.Printf("Error creating sweep task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		log.Printf("Error enqueuing sweep task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "enqueued", TaskID: info.ID})
}

// PostDispatch enqueues a targeted run for one episode.
func (h *Handlers) PostDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Season < 1 || req.Episode < 1 {
		http.Error(w, "season and episode are required", http.StatusBadRequest)
		return
	}

	task, err := tasks.NewDispatchTask(req.Season, req.Episode, req.Force)
	if err != nil {
		log.Printf("Error creating dispatch task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		log.Printf("Error enqueuing dispatch task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "enqueued", TaskID: info.ID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
