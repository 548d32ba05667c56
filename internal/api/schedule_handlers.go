package api

import (
	"net/http"
	"strconv"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/http/response"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

const defaultScheduleDays = 7

// SlotsResponse lists the valid slot start times for the current shift
// length.
type SlotsResponse struct {
	ShiftHours int      `json:"shift_hours"`
	Slots      []string `json:"slots"`
}

// handleGetSlots returns the daily slot grid.
func (s *Server) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hours, err := s.settings.ShiftHours(ctx)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	slots, err := s.schedule.ComputeSlots(ctx)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, SlotsResponse{ShiftHours: hours, Slots: slots}, s.logger)
}

// handleStatusCards returns the dashboard card for every title.
func (s *Server) handleStatusCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.schedule.StatusCards(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, cards, s.logger)
}

// handleRequestableTitles returns the titles open for booking.
func (s *Server) handleRequestableTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.schedule.RequestableTitles(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if titles == nil {
		titles = []*domain.Title{}
	}
	response.Success(w, titles, s.logger)
}

// ScheduleResponse is the occupancy grid keyed day -> slot -> title.
type ScheduleResponse struct {
	Days     int                                              `json:"days"`
	Schedule map[string]map[string]map[string]service.ScheduleCell `json:"schedule"`
}

// handleScheduleGrid returns the occupancy grid for the coming days.
func (s *Server) handleScheduleGrid(w http.ResponseWriter, r *http.Request) {
	days, ok := queryDays(w, r, s)
	if !ok {
		return
	}

	grid, err := s.schedule.ScheduleGrid(r.Context(), days)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, ScheduleResponse{Days: days, Schedule: grid}, s.logger)
}

// handleUpcomingReservations returns pending reservations inside the window.
func (s *Server) handleUpcomingReservations(w http.ResponseWriter, r *http.Request) {
	days, ok := queryDays(w, r, s)
	if !ok {
		return
	}

	reservations, err := s.schedule.UpcomingReservations(r.Context(), days)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if reservations == nil {
		reservations = []*domain.Reservation{}
	}
	response.Success(w, reservations, s.logger)
}

// queryDays parses the optional ?days= parameter, writing the error response
// itself when the value is unusable.
func queryDays(w http.ResponseWriter, r *http.Request, s *Server) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultScheduleDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		response.BadRequest(w, "days must be a positive integer", s.logger)
		return 0, false
	}
	return days, true
}
