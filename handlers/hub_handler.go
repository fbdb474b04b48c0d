package handlers

import (
	"net/http"

	"github.com/Dosada05/court-scheduler/hub"
)

type HubHandler struct {
	hub *hub.Hub
}

func NewHubHandler(h *hub.Hub) *HubHandler {
	return &HubHandler{hub: h}
}

// Metrics godoc
// @Summary Distribution hub counters
// @Tags realtime
// @Produce json
// @Success 200 {object} hub.Metrics
// @Failure 503 {object} map[string]string "Hub stopped"
// @Router /hub/metrics [get]
func (h *HubHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.hub.Metrics()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, m, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
