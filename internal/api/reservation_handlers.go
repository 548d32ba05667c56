package api

import (
	"encoding/json/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/http/response"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

// BookTitleRequest is the request body for creating a reservation.
type BookTitleRequest struct {
	TitleName string `json:"title_name" validate:"required,max=100"`
	Holder    string `json:"holder" validate:"required,max=100"`
	Location  string `json:"location,omitempty" validate:"omitempty,max=32"`
	SlotStart string `json:"slot_start" validate:"required"`
	TenantID  string `json:"tenant_id,omitempty" validate:"omitempty,max=64"`
}

// BookTitleResponse is the committed or reused booking.
type BookTitleResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
	CancelToken string              `json:"cancel_token"`
	Created     bool                `json:"created"`
}

// handleBook books a title for a future slot. Repeating an identical booking
// returns the original reservation with 200 instead of 201.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req BookTitleRequest
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

	result, err := s.booking.Book(r.Context(), &service.BookRequest{
		TitleName: req.TitleName,
		Holder:    req.Holder,
		Location:  req.Location,
		SlotStart: slotStart,
		TenantID:  req.TenantID,
		Source:    domain.SourceWeb,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	body := BookTitleResponse{
		Reservation: result.Reservation,
		CancelToken: result.CancelToken,
		Created:     result.Created,
	}
	if result.Created {
		response.Created(w, body, s.logger)
		return
	}
	response.Success(w, body, s.logger)
}

// handleCancel removes a reservation by its cancel token.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	removed, err := s.booking.Cancel(r.Context(), token)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, removed, s.logger)
}
