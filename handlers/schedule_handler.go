package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/court-scheduler/export"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
	logger          *slog.Logger
	now             func() time.Time
}

func NewScheduleHandler(ss services.ScheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: ss,
		logger:          logger.With("component", "schedule_handler"),
		now:             time.Now,
	}
}

// Optimize godoc
// @Summary Build a schedule for all unscheduled matches
// @Tags schedule
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param constraints body models.Constraints true "Operational constraints"
// @Success 200 {object} services.OptimizeResult
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} map[string]string "Invalid constraints or nothing to schedule"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/schedule/optimize [post]
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var constraints models.Constraints
	if err := readJSON(w, r, &constraints); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.scheduleService.Optimize(r.Context(), tournamentID, constraints)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetSchedule godoc
// @Summary Current schedule of a tournament
// @Tags schedule
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "slots"
// @Failure 404 {object} map[string]string "No schedule yet"
// @Router /tournaments/{tournamentID}/schedule [get]
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	schedule, err := h.scheduleService.Schedule(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament_id": tournamentID, "slots": schedule.Slots}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetConflicts godoc
// @Summary Re-validate the current schedule
// @Tags schedule
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "conflicts"
// @Failure 404 {object} map[string]string "No schedule yet"
// @Router /tournaments/{tournamentID}/schedule/conflicts [get]
func (h *ScheduleHandler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conflicts, err := h.scheduleService.Validate(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"conflicts": conflicts, "count": len(conflicts)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Export godoc
// @Summary Download the current schedule as an xlsx workbook
// @Tags schedule
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string "No schedule yet"
// @Router /tournaments/{tournamentID}/schedule/export [get]
func (h *ScheduleHandler) Export(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	schedule, err := h.scheduleService.Schedule(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	data, err := export.Bytes(*schedule)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(tournamentID, h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("export write failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}

// ApplyAdjustment godoc
// @Summary Apply a delay, reschedule or court change
// @Tags schedule
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param event body models.AdjustmentEvent true "Adjustment event"
// @Success 200 {object} services.AdjustmentOutcome
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 404 {object} map[string]string "Unknown match or no schedule yet"
// @Failure 409 {object} map[string]string "Infeasible"
// @Failure 422 {object} map[string]string "Invalid event"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/schedule/adjustments [post]
func (h *ScheduleHandler) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var event models.AdjustmentEvent
	if err := readJSON(w, r, &event); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.scheduleService.ApplyAdjustment(r.Context(), tournamentID, event)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, outcome, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
