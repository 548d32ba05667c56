package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/http/response"
)

// handleListTenants returns every registered tenant, default first.
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	response.Success(w, tenants, s.logger)
}

// CreateTenantRequest is the request body for registering a tenant.
type CreateTenantRequest struct {
	ID            string `json:"id" validate:"required,min=1,max=64"`
	WebhookURL    string `json:"webhook_url" validate:"required,url"`
	MentionTarget string `json:"mention_target,omitempty" validate:"omitempty,max=100"`
	IsDefault     bool   `json:"is_default,omitempty"`
}

// handleCreateTenant registers a new notification tenant.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tenant := &domain.Tenant{
		ID:            req.ID,
		WebhookURL:    req.WebhookURL,
		MentionTarget: req.MentionTarget,
		IsDefault:     req.IsDefault,
	}
	if err := s.tenants.Create(r.Context(), tenant); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, tenant, s.logger)
}

// UpdateTenantRequest is a partial tenant update.
type UpdateTenantRequest struct {
	WebhookURL    *string `json:"webhook_url,omitempty" validate:"omitempty,url"`
	MentionTarget *string `json:"mention_target,omitempty" validate:"omitempty,max=100"`
}

// handleUpdateTenant changes a tenant's destination or mention target.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req UpdateTenantRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	ctx := r.Context()
	tenant, err := s.tenants.Get(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.WebhookURL != nil {
		tenant.WebhookURL = *req.WebhookURL
	}
	if req.MentionTarget != nil {
		tenant.MentionTarget = *req.MentionTarget
	}
	if err := s.tenants.Update(ctx, tenant); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tenant, s.logger)
}

// handleDeleteTenant removes a tenant from the registry.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.Delete(r.Context(), pathParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleSetDefaultTenant makes one tenant the registry default.
func (s *Server) handleSetDefaultTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.SetDefault(r.Context(), pathParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleTestTenant sends a test notification to the tenant's webhook.
func (s *Server) handleTestTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.SendTest(r.Context(), pathParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]bool{"sent": true}, s.logger)
}
