package api

import (
	"encoding/json/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/http/response"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

// ManualAssignRequest is the request body for assigning a title directly.
type ManualAssignRequest struct {
	TitleName string `json:"title_name" validate:"required,max=100"`
	Holder    string `json:"holder" validate:"required,max=100"`
	Location  string `json:"location,omitempty" validate:"omitempty,max=32"`
}

// handleManualAssign makes someone the active holder immediately.
func (s *Server) handleManualAssign(w http.ResponseWriter, r *http.Request) {
	var req ManualAssignRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	holder, err := s.holders.ManualAssign(r.Context(), req.TitleName, req.Holder, req.Location)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, holder, s.logger)
}

// ForceReleaseRequest names the title to vacate.
type ForceReleaseRequest struct {
	TitleName string `json:"title_name" validate:"required,max=100"`
}

// handleForceRelease vacates a title regardless of its expiry.
func (s *Server) handleForceRelease(w http.ResponseWriter, r *http.Request) {
	var req ForceReleaseRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.holders.ForceRelease(r.Context(), req.TitleName); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// ReleaseReservationRequest identifies a reservation by its slot.
type ReleaseReservationRequest struct {
	TitleName string `json:"title_name" validate:"required,max=100"`
	SlotStart string `json:"slot_start" validate:"required"`
}

// handleAdminReleaseReservation removes a reservation without its cancel
// token.
func (s *Server) handleAdminReleaseReservation(w http.ResponseWriter, r *http.Request) {
	var req ReleaseReservationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	slotStart, err := time.Parse(time.RFC3339, req.SlotStart)
	if err != nil {
		response.BadRequest(w, "slot_start must be an RFC 3339 timestamp", s.logger)
		return
	}

	removed, err := s.booking.AdminRelease(r.Context(), req.TitleName, slotStart)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, removed, s.logger)
}

// handleListAudit returns recent audit ledger entries, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "limit must be a positive integer", s.logger)
			return
		}
		limit = n
	}

	records, err := s.holders.AuditLog(r.Context(), limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if records == nil {
		records = []*domain.AuditRecord{}
	}
	response.Success(w, records, s.logger)
}

// SettingsResponse is the full settings snapshot.
type SettingsResponse struct {
	ShiftHours int                    `json:"shift_hours"`
	Reminders  *domain.ReminderPolicy `json:"reminders"`
}

// handleGetSettings returns the shift length and reminder policy.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeSettings(w, r)
}

// UpdateSettingsRequest is a partial settings update; absent fields are left
// unchanged.
type UpdateSettingsRequest struct {
	ShiftHours *int `json:"shift_hours,omitempty" validate:"omitempty,gte=1,lte=72"`
	Reminders  *struct {
		Enabled     *bool    `json:"enabled,omitempty"`
		LeadMinutes *int     `json:"lead_minutes,omitempty" validate:"omitempty,gt=0"`
		Titles      []string `json:"titles,omitempty"`
	} `json:"reminders,omitempty"`
}

// handleUpdateSettings applies a partial settings update and returns the
// resulting snapshot.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	ctx := r.Context()
	if req.ShiftHours != nil {
		if err := s.settings.SetShiftHours(ctx, *req.ShiftHours); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}
	if req.Reminders != nil {
		update := &service.ReminderPolicyUpdate{
			Enabled:     req.Reminders.Enabled,
			LeadMinutes: req.Reminders.LeadMinutes,
			Titles:      req.Reminders.Titles,
		}
		if err := s.settings.UpdateReminderPolicy(ctx, update); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}

	s.writeSettings(w, r)
}

func (s *Server) writeSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hours, err := s.settings.ShiftHours(ctx)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	policy, err := s.settings.ReminderPolicy(ctx)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, SettingsResponse{ShiftHours: hours, Reminders: policy}, s.logger)
}

// UpdateTitleRequest carries title administration changes: rename, toggle
// requestability, or both.
type UpdateTitleRequest struct {
	NewName     *string `json:"new_name,omitempty" validate:"omitempty,min=1,max=100"`
	Requestable *bool   `json:"requestable,omitempty"`
}

// handleUpdateTitle renames a title or toggles whether it can be booked.
func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	var req UpdateTitleRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	ctx := r.Context()
	current := name
	if req.NewName != nil && *req.NewName != name {
		if err := s.titles.Rename(ctx, name, *req.NewName); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		current = *req.NewName
	}
	if req.Requestable != nil {
		if err := s.titles.SetRequestable(ctx, current, *req.Requestable); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}

	title, err := s.titles.Get(ctx, current)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, title, s.logger)
}

// pathParam returns a URL parameter with percent-encoding resolved, so
// title names with spaces round-trip through the path.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
