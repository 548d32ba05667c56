package api

import (
	"net/http"

	"github.com/titlekeep/titlekeep-server/internal/http/response"
)

// handleHealthCheck reports liveness.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"}, s.logger)
}
